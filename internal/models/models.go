// Package models contains the domain models for the portfolio tracker.
package models

import "time"

// Category is an asset category. The base set is fixed; custom categories
// extend it at runtime.
type Category string

// Base categories, in display order.
const (
	CategoryUSATech           Category = "USA_TECH"
	CategoryArgentinaEquity   Category = "ARGENTINA_EQUITY"
	CategorySovereignBondsUSD Category = "SOVEREIGN_BONDS_USD"
	CategoryPesoFixedIncome   Category = "PESO_FIXED_INCOME"
	CategoryGold              Category = "GOLD"
	CategorySilver            Category = "SILVER"
	CategoryCryptoBTC         Category = "CRYPTO_BTC"
	CategoryCryptoETH         Category = "CRYPTO_ETH"
	CategoryBrazil            Category = "BRAZIL"
	CategoryCommoditiesExtras Category = "COMMODITIES_EXTRAS"
	CategoryCashEquivalent    Category = "CASH_EQUIVALENT"
	CategoryUnclassified      Category = "UNCLASSIFIED"
)

// BaseCategories lists the built-in categories in display order.
var BaseCategories = []Category{
	CategoryUSATech,
	CategoryArgentinaEquity,
	CategorySovereignBondsUSD,
	CategoryPesoFixedIncome,
	CategoryGold,
	CategorySilver,
	CategoryCryptoBTC,
	CategoryCryptoETH,
	CategoryBrazil,
	CategoryCommoditiesExtras,
	CategoryCashEquivalent,
	CategoryUnclassified,
}

// Exposure is the geographic risk tag of a category.
type Exposure string

const (
	ExposureDomestic Exposure = "DOMESTIC"
	ExposureForeign  Exposure = "FOREIGN"
)

// Sector is the industry classification axis, used for display only.
type Sector string

const (
	SectorSemiconductors Sector = "SEMICONDUCTORS"
	SectorEnergy         Sector = "ENERGY"
	SectorBanks          Sector = "BANKS"
	SectorMining         Sector = "MINING"
	SectorTech           Sector = "TECH"
	SectorConsumer       Sector = "CONSUMER"
	SectorHealthcare     Sector = "HEALTHCARE"
	SectorRealEstate     Sector = "REAL_ESTATE"
	SectorUtilities      Sector = "UTILITIES"
	SectorTelecom        Sector = "TELECOM"
	SectorIndustrial     Sector = "INDUSTRIAL"
	SectorAgro           Sector = "AGRO"
	SectorFixedIncome    Sector = "FIXED_INCOME"
	SectorCrypto         Sector = "CRYPTO"
	SectorCommodities    Sector = "COMMODITIES"
	SectorETF            Sector = "ETF"
	SectorNone           Sector = "N/A"
)

// Holding is one normalized position row from a broker export.
type Holding struct {
	Ticker        string    `json:"ticker"`
	Description   string    `json:"description"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Value         float64   `json:"value"` // Authoritative, even when Quantity*Price disagrees
	Category      Category  `json:"category"`
	Sector        Sector    `json:"sector"`
	BrokerSection string    `json:"broker_section,omitempty"`
	SourceFile    string    `json:"source_file"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// FXRates holds the two named dollar rates found in a sectioned export.
type FXRates struct {
	MEP float64 `json:"mep"`
	CCL float64 `json:"ccl"`
}

// FileMetadata is what the filename says about a source file. Any field may be nil.
type FileMetadata struct {
	ClientID   *string `json:"client_id"`
	ClientName *string `json:"client_name"`
	Date       *string `json:"date"`
}

// Client is a portfolio identified by its broker account number (comitente).
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Profile   string    `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

// AllocationProfile is a named category -> target percentage map.
type AllocationProfile struct {
	Name        string               `json:"name"`
	Builtin     bool                 `json:"builtin"`
	Allocations map[Category]float64 `json:"allocations"`
	CreatedBy   string               `json:"created_by,omitempty"`
	CreatedAt   *time.Time           `json:"created_at,omitempty"`
}

// CustomAllocation is a per-client override for one category.
type CustomAllocation struct {
	ClientID  string   `json:"client_id"`
	Category  Category `json:"category"`
	TargetPct float64  `json:"target_pct"`
}

// CustomCategory is a user-defined category. Inactive categories are kept for history.
type CustomCategory struct {
	Name        Category  `json:"name"`
	DisplayName string    `json:"display_name"`
	Color       string    `json:"color"`
	Exposure    Exposure  `json:"exposure"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Snapshot is the aggregate row for one (client, date).
type Snapshot struct {
	Date         time.Time `json:"date"`
	ClientID     string    `json:"client_id"`
	ClientName   string    `json:"client_name"`
	TotalValue   float64   `json:"total_value"`
	VariationPct *float64  `json:"variation_pct"` // nil when there is no earlier snapshot
	VariationAbs *float64  `json:"variation_abs"`
}

// HistoryRow is one per-category row of a snapshot.
type HistoryRow struct {
	Date           time.Time `json:"date"`
	ClientID       string    `json:"client_id"`
	ClientName     string    `json:"client_name"`
	Category       Category  `json:"category"`
	Value          float64   `json:"value"`
	Pct            float64   `json:"pct"`
	PortfolioTotal float64   `json:"portfolio_total"`
}

// DetailRecord is a persisted per-ticker row. The field order mirrors the
// stored column order: date, client_id, client_name, ticker, description,
// quantity, price, value, category, sector, fx_mep, fx_ccl.
type DetailRecord struct {
	Date        time.Time `json:"date"`
	ClientID    string    `json:"client_id"`
	ClientName  string    `json:"client_name"`
	Ticker      string    `json:"ticker"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	Value       float64   `json:"value"`
	Category    Category  `json:"category"`
	Sector      Sector    `json:"sector"`
	FXMEP       float64   `json:"fx_mep"`
	FXCCL       float64   `json:"fx_ccl"`
}

// DetailColumns is the versioned column contract for detail rows.
// New columns may only be appended.
var DetailColumns = []string{
	"date", "client_id", "client_name", "ticker", "description",
	"quantity", "price", "value", "category", "sector", "fx_mep", "fx_ccl",
}

// TickerMapping is a persisted ticker -> category correction.
type TickerMapping struct {
	Ticker      string    `json:"ticker"`
	Category    Category  `json:"category"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SectorMapping is a persisted ticker -> sector correction.
type SectorMapping struct {
	Ticker      string    `json:"ticker"`
	Sector      Sector    `json:"sector"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ingest run statuses.
const (
	RunStatusStarted = "started"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusError   = "error"
)

// IngestRun records one batch ingestion.
type IngestRun struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	FilesTotal     int        `json:"files_total"`
	FilesParsed    int        `json:"files_parsed"`
	ClientsOK      int        `json:"clients_ok"`
	ClientsRetried int        `json:"clients_retried"`
	ClientsFailed  int        `json:"clients_failed"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	DurationMs     *int64     `json:"duration_ms,omitempty"`
}

// Retry log statuses.
const (
	RetryStatusSuccess = "success"
	RetryStatusFailed  = "failed"
)

// RetryLogEntry records a store write that hit the rate limit.
type RetryLogEntry struct {
	ID        int64     `json:"id"`
	Operation string    `json:"operation"`
	ClientID  string    `json:"client_id"`
	Attempts  int       `json:"attempts"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
