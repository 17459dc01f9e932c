// Copyright 2025 James Ross
package scraper

import (
	"strconv"
	"strings"
)

// parsePrice implements §4.2's price normalization: strip '.' thousands
// separators, convert decimal comma to decimal point. An unparseable price
// becomes 0, which causes the listing to be dropped during normalization.
func parsePrice(raw string) float64 {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = strings.TrimFunc(cleaned, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.'
	})
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// collapseWhitespace normalizes multi-space/newline runs in extracted
// titles to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
