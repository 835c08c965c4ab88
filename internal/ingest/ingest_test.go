package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"portfolio_tracker/internal/classifier"
	"portfolio_tracker/internal/models"
)

// writeWorkbook saves sheets (name -> rows) as an .xlsx file in dir.
func writeWorkbook(t *testing.T, dir, name string, sheets map[string][][]any, order ...string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for r, row := range sheets[sheet] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(sheet, cell, &values))
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func sectionedRows() [][]any {
	return [][]any{
		{"Tenencias en Portfolio"},
		{"Fecha: 10/01/2026"},
		{"TC USD MEP", 1180.5},
		{"TC USD CCL", 1195},
		{"Tipo de Activo: Acciones"},
		{"Ticker", "Nombre", "", "Garantia", "Disponibles", "Moneda", "Precio", "Monto $"},
		{"GGAL", "Grupo Galicia", "", 0, 100, "ARS", 5000, 500000},
		{"Subtotal Acciones", "", "", "", "", "", "", 500000},
		{"Tipo de Activo: CEDEARs"},
		{"Ticker", "Nombre", "", "Garantia", "Disponibles", "Moneda", "Precio", "Monto $"},
		{"spy", "SPDR S&P 500", "", 10, "", "USD", 600},
		{"Total", "", "", "", "", "", "", 506000},
	}
}

func columnarRows() [][]any {
	return [][]any{
		{"Resumen de cartera"},
		{"Especie", "Descripción", "Cantidad", "Valorización"},
		{"al30", "Bono Rep. Argentina", "1000", "850.000,50"},
		{"XYZ", "Desconocido", "5", "100"},
		{"", "fila vacia", "1", "1"},
		{"nan", "", "1", "1"},
	}
}

func TestCleanNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"$ 1.500", 1.5},
		{"USD 250,5", 250.5},
		{"ARS 1.000.000,00", 1000000},
		{"12,5", 12.5},
		{"  42 ", 42},
		{"-3,5", -3.5},
		{"1.5E3", 1500},
		{"abc", 0},
		{"", 0},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.InDelta(t, tc.want, CleanNumeric(tc.in), 1e-9)
		})
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		clientID string
		client   string
		date     string
	}{
		{"holdings pattern", "Tenencias-34491_LOPEZ_JUAN ANTONIO-2026-01-10.xlsx", "34491", "LOPEZ JUAN ANTONIO", "2026-01-10"},
		{"copy suffix", "Tenencias -34491_LOPEZ_JUAN ANTONIO-2026-01-10 (1).xlsx", "34491", "LOPEZ JUAN ANTONIO", "2026-01-10"},
		{"compound surname", "Tenencias-34462_LOPEZ ROJAS_PEDRO-2026-01-09.xlsx", "34462", "LOPEZ ROJAS PEDRO", "2026-01-09"},
		{"plain pattern", "34491_LOPEZ JUAN ANTONIO_2026-01-10.xlsx", "34491", "LOPEZ JUAN ANTONIO", "2026-01-10"},
		{"with directory", filepath.Join("inbox", "2026", "Tenencias-243999_PEREZ_ANA-2026-02-01.xlsx"), "243999", "PEREZ ANA", "2026-02-01"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			meta := ParseFilename(tc.file)
			require.NotNil(t, meta.ClientID)
			require.NotNil(t, meta.ClientName)
			require.NotNil(t, meta.Date)
			assert.Equal(t, tc.clientID, *meta.ClientID)
			assert.Equal(t, tc.client, *meta.ClientName)
			assert.Equal(t, tc.date, *meta.Date)
		})
	}
}

func TestParseFilename_AccountOnly(t *testing.T) {
	meta := ParseFilename("Cartera_34491_2026_01_10.xlsx")

	require.NotNil(t, meta.ClientID)
	assert.Equal(t, "34491", *meta.ClientID)
	assert.Nil(t, meta.ClientName)
	require.NotNil(t, meta.Date)
	assert.Equal(t, "2026-01-10", *meta.Date)
}

func TestParseFilename_AccountWithoutDate(t *testing.T) {
	meta := ParseFilename("cartera 247585.xlsx")

	require.NotNil(t, meta.ClientID)
	assert.Equal(t, "247585", *meta.ClientID)
	assert.Nil(t, meta.Date)
}

func TestParseFilename_NoPattern(t *testing.T) {
	meta := ParseFilename("archivo_sin_patron.xlsx")

	assert.Nil(t, meta.ClientID)
	assert.Nil(t, meta.ClientName)
	assert.Nil(t, meta.Date)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatSectioned, DetectFormat([][]string{{"TC USD MEP", "1100"}}))
	assert.Equal(t, FormatSectioned, DetectFormat([][]string{{"foo"}, {"Tipo de Activo: Bonos"}}))
	assert.Equal(t, FormatColumnar, DetectFormat([][]string{{"Cartera"}, {"Símbolo", "Valor"}}))
	assert.Equal(t, FormatUnknown, DetectFormat([][]string{{"Symbol", "Value"}}))
	assert.Equal(t, FormatUnknown, DetectFormat(nil))
}

func TestDetectFormat_OnlyScansTopRows(t *testing.T) {
	rows := make([][]string, 12)
	for i := range rows {
		rows[i] = []string{"x"}
	}
	rows[11] = []string{"Tipo de Activo: Bonos"}

	assert.Equal(t, FormatUnknown, DetectFormat(rows))
}

func TestExtractFXRates(t *testing.T) {
	rows := [][]string{
		{"Fecha"},
		{"TC USD MEP", "1.180,50"},
		{"TC USD CCL", "0"},
	}

	fx := ExtractFXRates(rows, 1150)

	assert.InDelta(t, 1180.5, fx.MEP, 1e-9)
	assert.Equal(t, 1150.0, fx.CCL)
}

func TestParseSectioned(t *testing.T) {
	rows := [][]string{
		{"Tipo de Activo: Acciones"},
		{"Ticker", "Nombre"},
		{"ggal", "Grupo Galicia", "", "0", "100", "ARS", "5000", "500000"},
		{"YPFD", "YPF", "", "20", "", "ARS", "30000"},
		{"Subtotal", "", "", "", "", "", "", "1100000"},
		{""},
		{"Tipo de Activo: Bonos"},
		{"AL30", "", "", "", "1000", "USD", "0.85", ""},
		{"Total"},
	}

	holdings := ParseSectioned(rows)

	require.Len(t, holdings, 3)
	assert.Equal(t, "GGAL", holdings[0].Ticker)
	assert.Equal(t, "Acciones", holdings[0].BrokerSection)
	assert.Equal(t, 100.0, holdings[0].Quantity)
	assert.Equal(t, 500000.0, holdings[0].Value)

	// quantity falls back to the guarantee column, value to qty*price
	assert.Equal(t, 20.0, holdings[1].Quantity)
	assert.Equal(t, 600000.0, holdings[1].Value)

	assert.Equal(t, "Bonos", holdings[2].BrokerSection)
	assert.InDelta(t, 850.0, holdings[2].Value, 1e-9)
	assert.Empty(t, holdings[2].Description)
}

func TestParseColumnar_NoTickerColumn(t *testing.T) {
	res := ParseColumnar([][]string{{"Fecha", "Monto"}, {"2026-01-01", "10"}})

	assert.Empty(t, res.Holdings)
	assert.Equal(t, []string{"ticker"}, res.MissingColumns)
}

func TestParseColumnar_MissingAmountDefaultsToZero(t *testing.T) {
	res := ParseColumnar([][]string{{"Ticker", "Cantidad"}, {"SPY", "3"}})

	require.Len(t, res.Holdings, 1)
	assert.Equal(t, 3.0, res.Holdings[0].Quantity)
	assert.Zero(t, res.Holdings[0].Value)
	assert.Equal(t, []string{"amount"}, res.MissingColumns)
}

func TestReadSheet_FallsBackToUsableSheet(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), "multi.xlsx", map[string][][]any{
		"Cover": {{"Generated by broker"}},
		"Data":  {{"Ticker", "Valor"}, {"SPY", 100}},
	}, "Cover", "Data")

	rows, err := ReadSheet(path)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Ticker", "Valor"}, rows[0])
}

func TestReadSheet_MissingFile(t *testing.T) {
	_, err := ReadSheet(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}

func newTestParser() *Parser {
	return NewParser(classifier.NewRegistry(), 1150, zerolog.Nop())
}

func TestParser_ParseFile_Sectioned(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), "Tenencias-34491_LOPEZ_JUAN ANTONIO-2026-01-10.xlsx",
		map[string][][]any{"Sheet1": sectionedRows()}, "Sheet1")

	res := newTestParser().ParseFile(path)

	assert.Equal(t, FormatSectioned, res.Format)
	assert.InDelta(t, 1180.5, res.FX.MEP, 1e-9)
	assert.InDelta(t, 1195.0, res.FX.CCL, 1e-9)
	require.NotNil(t, res.Meta.ClientID)
	assert.Equal(t, "34491", *res.Meta.ClientID)

	require.Len(t, res.Holdings, 2)
	ggal, spy := res.Holdings[0], res.Holdings[1]

	assert.Equal(t, "GGAL", ggal.Ticker)
	assert.Equal(t, models.CategoryArgentinaEquity, ggal.Category)
	assert.Equal(t, models.SectorBanks, ggal.Sector)
	assert.Equal(t, 500000.0, ggal.Value)

	assert.Equal(t, "SPY", spy.Ticker)
	assert.Equal(t, models.CategoryUSATech, spy.Category)
	assert.Equal(t, models.SectorETF, spy.Sector)
	assert.Equal(t, 10.0, spy.Quantity)
	assert.Equal(t, 6000.0, spy.Value)
	assert.Equal(t, "CEDEARs", spy.BrokerSection)
	assert.Equal(t, filepath.Base(path), spy.SourceFile)
	assert.False(t, spy.ProcessedAt.IsZero())

	assert.Equal(t, 506000.0, res.Total())
	assert.Empty(t, res.Unclassified)
}

func TestParser_ParseFile_Columnar(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), "34462_LOPEZ ROJAS PEDRO_2026-01-09.xlsx",
		map[string][][]any{"Cartera": columnarRows()}, "Cartera")

	res := newTestParser().ParseFile(path)

	assert.Equal(t, FormatColumnar, res.Format)
	assert.Equal(t, models.FXRates{MEP: 1150, CCL: 1150}, res.FX)
	require.Len(t, res.Holdings, 2)

	assert.Equal(t, "AL30", res.Holdings[0].Ticker)
	assert.Equal(t, models.CategorySovereignBondsUSD, res.Holdings[0].Category)
	assert.Equal(t, models.SectorFixedIncome, res.Holdings[0].Sector)
	assert.Equal(t, 1000.0, res.Holdings[0].Quantity)
	assert.InDelta(t, 850000.5, res.Holdings[0].Value, 1e-9)

	assert.Equal(t, models.CategoryUnclassified, res.Holdings[1].Category)
	assert.Equal(t, []string{"XYZ"}, res.Unclassified)
}

func TestParser_ParseFile_UnknownFormatStillParsesColumns(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), "export.xlsx", map[string][][]any{
		"Sheet1": {{"Symbol", "Market_Value"}, {"GLD", 2500}},
	}, "Sheet1")

	res := newTestParser().ParseFile(path)

	assert.Equal(t, FormatUnknown, res.Format)
	require.Len(t, res.Holdings, 1)
	assert.Equal(t, models.CategoryGold, res.Holdings[0].Category)
	assert.Equal(t, 2500.0, res.Holdings[0].Value)
	assert.Nil(t, res.Meta.ClientID)
}

func TestParser_ParseFile_UnreadableFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Tenencias-34491_LOPEZ_JUAN-2026-01-10.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o600))

	res := newTestParser().ParseFile(path)

	assert.Empty(t, res.Holdings)
	assert.Equal(t, FormatUnknown, res.Format)
	require.NotNil(t, res.Meta.ClientID)
	assert.Equal(t, "34491", *res.Meta.ClientID)
}
