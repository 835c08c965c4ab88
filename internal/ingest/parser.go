// Package ingest turns broker spreadsheet exports into classified holdings.
package ingest

import (
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"portfolio_tracker/internal/classifier"
	"portfolio_tracker/internal/logger"
	"portfolio_tracker/internal/models"
)

// Result is the outcome of parsing one file. A file that could not be
// read or understood yields an empty Holdings slice, never an error.
type Result struct {
	SourceFile   string              `json:"source_file"`
	Format       Format              `json:"format"`
	Holdings     []models.Holding    `json:"holdings"`
	FX           models.FXRates      `json:"fx"`
	Meta         models.FileMetadata `json:"meta"`
	Unclassified []string            `json:"unclassified,omitempty"`
}

// Total sums holding values.
func (r *Result) Total() float64 {
	var total float64
	for _, h := range r.Holdings {
		total += h.Value
	}
	return total
}

// Parser reads, detects, parses and classifies broker exports.
type Parser struct {
	registry   *classifier.Registry
	fxFallback float64
	log        zerolog.Logger
	now        func() time.Time
}

// NewParser creates a Parser. fxFallback replaces FX rates a file does not carry.
func NewParser(registry *classifier.Registry, fxFallback float64, log zerolog.Logger) *Parser {
	return &Parser{
		registry:   registry,
		fxFallback: fxFallback,
		log:        logger.Component(log, "parser"),
		now:        time.Now,
	}
}

// ParseFile parses one export. Failures are logged as warnings and
// produce an empty result.
func (p *Parser) ParseFile(path string) *Result {
	name := filepath.Base(path)
	res := &Result{
		SourceFile: name,
		Format:     FormatUnknown,
		Meta:       ParseFilename(path),
		FX:         models.FXRates{MEP: p.fxFallback, CCL: p.fxFallback},
	}
	log := p.log.With().Str("file", name).Logger()

	rows, err := ReadSheet(path)
	if err != nil {
		log.Warn().Err(err).Msg("Unreadable file")
		return res
	}
	if len(rows) == 0 {
		log.Warn().Msg("Empty file")
		return res
	}

	res.Format = DetectFormat(rows)
	switch res.Format {
	case FormatSectioned:
		res.FX = ExtractFXRates(rows, p.fxFallback)
		res.Holdings = ParseSectioned(rows)
	default:
		// unknown layouts still get a columnar attempt
		cr := ParseColumnar(rows)
		if len(cr.MissingColumns) > 0 {
			log.Warn().Strs("missing", cr.MissingColumns).Int("header_row", cr.HeaderRow).
				Msg("Columns not found")
		}
		res.Holdings = cr.Holdings
	}

	if len(res.Holdings) == 0 {
		log.Warn().Str("format", string(res.Format)).Msg("No holdings found")
		return res
	}

	processedAt := p.now()
	for i := range res.Holdings {
		h := &res.Holdings[i]
		h.Category = p.registry.Classify(h.Ticker, h.Description)
		h.Sector = p.registry.ClassifySector(h.Ticker, h.Category)
		h.SourceFile = name
		h.ProcessedAt = processedAt
		if h.Category == models.CategoryUnclassified {
			res.Unclassified = append(res.Unclassified, h.Ticker)
			log.Warn().Str("ticker", h.Ticker).Str("description", truncate(h.Description, 50)).
				Msg("Unclassified ticker")
		}
	}

	log.Info().
		Str("format", string(res.Format)).
		Int("holdings", len(res.Holdings)).
		Float64("fx_mep", res.FX.MEP).
		Float64("fx_ccl", res.FX.CCL).
		Msg("File parsed")

	return res
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
