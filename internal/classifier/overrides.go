package classifier

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"portfolio_tracker/internal/models"
)

// OverrideFile is the on-disk shape of a mappings file:
//
//	[tickers]
//	ACME = "USA_TECH"
//
//	[sectors]
//	ACME = "TECH"
//
//	[[categories]]
//	name = "CORPORATE_BONDS"
//	display_name = "Corporate Bonds"
//	color = "#AA3366"
//	exposure = "DOMESTIC"
type OverrideFile struct {
	Tickers    map[string]string `toml:"tickers"`
	Sectors    map[string]string `toml:"sectors"`
	Categories []struct {
		Name        string `toml:"name"`
		DisplayName string `toml:"display_name"`
		Color       string `toml:"color"`
		Exposure    string `toml:"exposure"`
	} `toml:"categories"`
}

// LoadResult counts what an override file contributed.
type LoadResult struct {
	Categories int
	Tickers    int
	Sectors    int
}

// LoadOverrides applies a TOML mappings file to the registry. Categories
// are registered first so ticker entries may reference them. A missing
// file is not an error.
func (r *Registry) LoadOverrides(path string) (LoadResult, error) {
	var res LoadResult
	if path == "" {
		return res, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("reading mappings file: %w", err)
	}

	var file OverrideFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return res, fmt.Errorf("parsing mappings file %s: %w", path, err)
	}

	for _, c := range file.Categories {
		if _, err := r.RegisterCategory(models.CustomCategory{
			Name:        models.Category(c.Name),
			DisplayName: c.DisplayName,
			Color:       c.Color,
			Exposure:    models.Exposure(c.Exposure),
			Active:      true,
		}); err != nil {
			return res, fmt.Errorf("category %q: %w", c.Name, err)
		}
		res.Categories++
	}

	for ticker, category := range file.Tickers {
		if err := r.RegisterMapping(ticker, models.Category(category)); err != nil {
			return res, fmt.Errorf("ticker %q: %w", ticker, err)
		}
		res.Tickers++
	}

	for ticker, sector := range file.Sectors {
		if err := r.RegisterSectorMapping(ticker, models.Sector(sector)); err != nil {
			return res, fmt.Errorf("sector for %q: %w", ticker, err)
		}
		res.Sectors++
	}

	return res, nil
}
