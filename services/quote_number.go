package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// DefaultQuotePrefix starts every quote number unless the company sets its own.
const DefaultQuotePrefix = "DEV"

// FormatQuoteNumber constructs the quote number string from components.
// Format: {prefix}-{yyyy}-{mm}-{sequence}, e.g. DEV-2026-10-001.
func FormatQuoteNumber(prefix string, t time.Time, sequence int) string {
	return fmt.Sprintf("%s-%s%03d", prefix, monthPrefix(t), sequence)
}

func monthPrefix(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-", t.Year(), int(t.Month()))
}

// GenerateQuoteNumber creates the next quote number for a company.
// - prefix: company's quote_prefix (falls back to DEV)
// - sequence: 3-digit zero-padded, per company per month, one above the
//   highest sequence already issued so deleted quotes never free a number
func GenerateQuoteNumber(app core.App, companyID string, now time.Time) (string, error) {
	prefix := DefaultQuotePrefix
	if companyID != "" {
		company, err := app.FindRecordById("companies", companyID)
		if err != nil {
			return "", fmt.Errorf("company not found: %w", err)
		}
		if p := company.GetString("quote_prefix"); p != "" {
			prefix = p
		}
	}

	pattern := prefix + "-" + monthPrefix(now)

	existing, err := app.FindRecordsByFilter(
		"quotes",
		"company = {:companyId} && number ~ {:prefix}",
		"",
		0,
		0,
		map[string]any{
			"companyId": companyID,
			"prefix":    pattern + "%",
		},
	)
	if err != nil {
		return "", fmt.Errorf("list quote numbers: %w", err)
	}

	return FormatQuoteNumber(prefix, now, maxSequence(existing, pattern)+1), nil
}

// maxSequence returns the highest numeric suffix after pattern. Numbers with
// a non-numeric suffix are ignored.
func maxSequence(records []*core.Record, pattern string) int {
	highest := 0
	for _, r := range records {
		suffix, ok := strings.CutPrefix(r.GetString("number"), pattern)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}
