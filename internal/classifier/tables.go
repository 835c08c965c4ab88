package classifier

import (
	"regexp"

	"portfolio_tracker/internal/models"
)

// staticCategories is the curated ticker -> category reference table.
var staticCategories = buildTable(map[models.Category][]string{
	models.CategoryUSATech: {
		"SPY", "QQQ", "IWM", "NVDA", "AMZN", "META", "GOOGL", "GOOG", "ASML",
		"ADBE", "UNH", "WMT", "BKNG", "XLU", "AAPL", "MSFT", "TSLA",
	},
	models.CategoryArgentinaEquity: {
		"PAMP", "PAMPA", "PAMP.BA", "PAM", "TGS", "TGSU2", "TGSU2.BA", "YPF",
		"YPFD", "YPFD.BA", "VIST", "VISTA", "CRES", "CRESUD", "CRESY", "EDN",
		"EDENOR", "GGAL", "GALICIA", "BMA", "BBAR", "SUPV", "CEPU", "LOMA",
		"TXAR", "ALUA", "COME", "MIRG", "TECO2", "BYMA",
	},
	models.CategorySovereignBondsUSD: {
		"AL30", "AL30D", "AL30C", "AL35", "AL35D", "AL35C", "AL41", "AL41D",
		"GD30", "GD30D", "GD30C", "GD35", "GD35D", "GD38", "GD38D", "GD41",
		"GD41D", "GD46", "GD46D", "AE38", "AE38D", "GD29", "GD29D", "AL29",
		"AL29D",
	},
	models.CategoryPesoFixedIncome: {
		"T13F6", "T15D5", "TZXD5", "TZXO6", "S31E5", "S14F5", "S28F5", "S31M5",
		"S30A5", "S30J5", "S31L5", "S29G5", "S12S5", "S30S5", "S17O5", "S28N5",
		"S30D5", "T15E6", "T17F6", "T15A6", "PBA25", "CABA24", "BDC24", "BDC28",
		"CO26", "ERF25",
	},
	models.CategoryGold: {
		"GLD", "IAU", "GOLD", "B", "BARRICK", "AEM", "NEM", "FNV", "WPM", "VALE",
	},
	models.CategorySilver:    {"SLV", "PSLV", "SIL"},
	models.CategoryCryptoBTC: {"IBIT", "GBTC", "FBTC", "BITO"},
	models.CategoryCryptoETH: {"ETHA", "ETHE", "FETH"},
	models.CategoryBrazil:    {"EWZ", "ARGT"},
	models.CategoryCommoditiesExtras: {
		"BHP", "RIO", "TINTO", "FCX", "SCCO", "URA", "CCJ", "UUUU",
	},
	models.CategoryCashEquivalent: {
		"PESOS", "ARS", "USD", "USD.C", "USDC", "DOLARES", "DOLAR", "GAINVEST",
		"GAINVESTFF", "SCHRODERS", "CONSULTATIO", "FIMA", "BALANZ", "GALILEO",
		"MEGAINVER", "PIONERO", "SBS", "COMPASS", "ALLARIA", "COCOS", "STONEX",
	},
})

// staticSectors is the curated ticker -> sector reference table.
var staticSectors = buildTable(map[models.Sector][]string{
	models.SectorSemiconductors: {"NVDA", "AMD", "INTC", "ASML", "TSM", "AVGO", "QCOM", "MU"},
	models.SectorEnergy: {
		"YPF", "YPFD", "YPFD.BA", "PAMP", "PAMPA", "PAM", "VIST", "VISTA", "TGS",
		"TGSU2", "TGSU2.BA", "CEPU", "EDN", "EDENOR", "XOM", "CVX", "COP", "SLB", "OXY",
	},
	models.SectorBanks: {
		"GGAL", "GALICIA", "BMA", "BBAR", "SUPV", "BYMA", "JPM", "BAC", "WFC", "C", "GS", "MS",
	},
	models.SectorMining: {
		"VALE", "FCX", "BHP", "RIO", "TINTO", "GOLD", "B", "BARRICK", "NEM", "AEM",
		"FNV", "WPM", "SCCO", "CCJ", "URA", "UUUU",
	},
	models.SectorTech:        {"AAPL", "MSFT", "GOOGL", "GOOG", "META", "AMZN", "TSLA", "ADBE", "CRM", "ORCL", "NFLX"},
	models.SectorConsumer:    {"WMT", "KO", "PEP", "MCD", "SBUX", "NKE", "PG", "COST"},
	models.SectorHealthcare:  {"UNH", "JNJ", "PFE", "ABBV", "MRK", "LLY"},
	models.SectorRealEstate:  {"CRES", "CRESUD", "CRESY", "IRSA", "O"},
	models.SectorUtilities:   {"XLU", "NEE", "DUK", "SO"},
	models.SectorTelecom:     {"TECO2", "VZ", "T", "TMUS"},
	models.SectorIndustrial:  {"CAT", "DE", "BA", "GE", "HON", "UNP", "TXAR", "ALUA", "LOMA"},
	models.SectorAgro:        {"AGRO", "ADM", "BG", "MIRG"},
	models.SectorETF:         {"SPY", "QQQ", "IWM", "EWZ", "ARGT"},
	models.SectorCommodities: {"GLD", "IAU", "SLV", "PSLV"},
	models.SectorCrypto:      {"IBIT", "GBTC", "FBTC", "BITO", "ETHA", "ETHE", "FETH"},
})

type categoryPatterns struct {
	category models.Category
	patterns []*regexp.Regexp
}

// patternTable is evaluated in order; the first category with any matching pattern wins.
var patternTable = []categoryPatterns{
	{models.CategorySovereignBondsUSD, compileAll(
		`^(AL|GD|AE|AY)\d{2}[DC]?$`,
		`BONO.*GLOBAL|GLOBAL.*BONO`,
		`BONAR`,
	)},
	{models.CategoryPesoFixedIncome, compileAll(
		`^[ST]\d{2}[A-Z]\d$`,
		`^TZ[A-Z]{2}\d$`,
		`LETRA|LECAP|LEFI|BONCAP`,
		`CHEQUE|PAGARE|ECHEQ`,
		`^\*[A-Z]{3}\d+`,
	)},
	{models.CategoryCashEquivalent, compileAll(
		`FCI|MONEY\s*MARKET|CAUCION|MM$`,
		`CUENTA|SALDO|DISPONIBLE|EFECTIVO`,
		`GAINVEST`,
	)},
	{models.CategoryArgentinaEquity, compileAll(
		`\.BA$`,
	)},
}

var baseExposure = map[models.Category]models.Exposure{
	models.CategoryUSATech:           models.ExposureForeign,
	models.CategoryArgentinaEquity:   models.ExposureDomestic,
	models.CategorySovereignBondsUSD: models.ExposureDomestic,
	models.CategoryPesoFixedIncome:   models.ExposureDomestic,
	models.CategoryGold:              models.ExposureForeign,
	models.CategorySilver:            models.ExposureForeign,
	models.CategoryCryptoBTC:         models.ExposureForeign,
	models.CategoryCryptoETH:         models.ExposureForeign,
	models.CategoryBrazil:            models.ExposureForeign,
	models.CategoryCommoditiesExtras: models.ExposureForeign,
	models.CategoryCashEquivalent:    models.ExposureDomestic,
	models.CategoryUnclassified:      models.ExposureDomestic,
}

var baseDisplayNames = map[models.Category]string{
	models.CategoryUSATech:           "USA / Tech",
	models.CategoryArgentinaEquity:   "Argentina (MERV)",
	models.CategorySovereignBondsUSD: "Sovereign Bonds USD",
	models.CategoryPesoFixedIncome:   "Peso Fixed Income",
	models.CategoryGold:              "Gold",
	models.CategorySilver:            "Silver",
	models.CategoryCryptoBTC:         "Crypto - Bitcoin",
	models.CategoryCryptoETH:         "Crypto - Ethereum",
	models.CategoryBrazil:            "Brazil",
	models.CategoryCommoditiesExtras: "Commodities / Extras",
	models.CategoryCashEquivalent:    "Cash Equivalents",
	models.CategoryUnclassified:      "Unclassified",
}

var baseColors = map[models.Category]string{
	models.CategoryUSATech:           "#3366CC",
	models.CategoryArgentinaEquity:   "#109618",
	models.CategorySovereignBondsUSD: "#1E90FF",
	models.CategoryPesoFixedIncome:   "#FF9900",
	models.CategoryGold:              "#FFD700",
	models.CategorySilver:            "#C0C0C0",
	models.CategoryCryptoBTC:         "#F7931A",
	models.CategoryCryptoETH:         "#627EEA",
	models.CategoryBrazil:            "#009739",
	models.CategoryCommoditiesExtras: "#B87333",
	models.CategoryCashEquivalent:    "#22AA99",
	models.CategoryUnclassified:      "#999999",
}

var sectorDisplayNames = map[models.Sector]string{
	models.SectorSemiconductors: "Semiconductors",
	models.SectorEnergy:         "Energy",
	models.SectorBanks:          "Banks",
	models.SectorMining:         "Mining",
	models.SectorTech:           "Technology",
	models.SectorConsumer:       "Consumer",
	models.SectorHealthcare:     "Healthcare",
	models.SectorRealEstate:     "Real Estate",
	models.SectorUtilities:      "Utilities",
	models.SectorTelecom:        "Telecommunications",
	models.SectorIndustrial:     "Industrial",
	models.SectorAgro:           "Agribusiness",
	models.SectorFixedIncome:    "Fixed Income",
	models.SectorCrypto:         "Crypto",
	models.SectorCommodities:    "Commodities",
	models.SectorETF:            "ETF",
	models.SectorNone:           "Unclassified",
}

// DefaultColor is used for custom categories registered without one.
const DefaultColor = "#808080"

func buildTable[V comparable](groups map[V][]string) map[string]V {
	table := make(map[string]V)
	for value, tickers := range groups {
		for _, t := range tickers {
			table[t] = value
		}
	}
	return table
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}
