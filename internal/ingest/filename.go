package ingest

import (
	"path/filepath"
	"regexp"
	"strings"

	"portfolio_tracker/internal/models"
)

var (
	copySuffix = regexp.MustCompile(`\s*\(\d+\)$`)

	// Tenencias-34491_LOPEZ_JUAN ANTONIO-2026-01-10
	holdingsPattern = regexp.MustCompile(`(?i)Tenencias\s*-?\s*(\d+)[_-]([A-Z\s_]+?)-(\d{4}-\d{2}-\d{2})`)
	// 34491_LOPEZ JUAN ANTONIO_2026-01-10
	plainPattern = regexp.MustCompile(`(?i)(\d+)[_-]([A-Z\s]+)[_-](\d{4}-\d{2}-\d{2})`)
	// anything with a 5-6 digit account number
	accountPattern = regexp.MustCompile(`(\d{5,6})`)
	looseDate      = regexp.MustCompile(`(\d{4}[-_]\d{2}[-_]\d{2})`)
)

// ParseFilename extracts client id, client name and date from a broker
// export filename. Patterns are tried from most to least specific; fields
// that cannot be recovered are nil.
func ParseFilename(path string) models.FileMetadata {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = copySuffix.ReplaceAllString(name, "")

	for _, re := range []*regexp.Regexp{holdingsPattern, plainPattern} {
		if m := re.FindStringSubmatch(name); m != nil {
			clientName := strings.TrimSpace(strings.ReplaceAll(m[2], "_", " "))
			return models.FileMetadata{
				ClientID:   strPtr(m[1]),
				ClientName: strPtr(clientName),
				Date:       strPtr(m[3]),
			}
		}
	}

	if m := accountPattern.FindStringSubmatch(name); m != nil {
		meta := models.FileMetadata{ClientID: strPtr(m[1])}
		if d := looseDate.FindStringSubmatch(name); d != nil {
			meta.Date = strPtr(strings.ReplaceAll(d[1], "_", "-"))
		}
		return meta
	}

	return models.FileMetadata{}
}

func strPtr(s string) *string {
	return &s
}
