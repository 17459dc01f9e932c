// Copyright 2025 James Ross
package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriceBrazilianFormat(t *testing.T) {
	assert.Equal(t, 1299.90, parsePrice("1.299,90"))
}

func TestParsePriceUnparseableBecomesZero(t *testing.T) {
	assert.Equal(t, 0.0, parsePrice("indisponível"))
}

func TestParsePriceWithCurrencyPrefix(t *testing.T) {
	assert.Equal(t, 99.9, parsePrice("R$ 99,90"))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "Notebook Gamer 15", collapseWhitespace("  Notebook   Gamer\n15  "))
}
