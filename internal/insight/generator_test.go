// Copyright 2025 James Ross
package insight

import (
	"testing"

	"github.com/marketintel/engine/internal/analyzer"
	"github.com/marketintel/engine/internal/marketplace"
	"github.com/marketintel/engine/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(prices ...float64) []queue.ScrapedProduct {
	products := make([]queue.ScrapedProduct, len(prices))
	for i, p := range prices {
		products[i] = queue.ScrapedProduct{Price: p, SellerName: "seller", Title: "item"}
	}
	return products
}

func TestOverPricedRule(t *testing.T) {
	product := Product{ID: "p1", Name: "Widget", Price: 400, Cost: 200}
	sample := sampleAt(300, 310, 290, 305, 295)

	insights := Generate(product, sample, nil)

	var found *MarketInsight
	for i := range insights {
		if insights[i].Type == PricingOpportunity && insights[i].Priority == PriorityHigh {
			found = &insights[i]
		}
	}
	require.NotNil(t, found)
	diff, ok := found.Data["diff_percent"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 33.33, diff, 0.5)
}

func TestSuggestOptimalPrice(t *testing.T) {
	product := Product{ID: "p1", Price: 400, Cost: 200}
	sample := sampleAt(300, 310, 290, 305, 295)

	got := SuggestOptimalPrice(product, sample, 0.30)
	assert.InDelta(t, 285.0, got, 0.01)
}

func TestSuggestOptimalPriceEmptySampleReturnsCurrentPrice(t *testing.T) {
	product := Product{ID: "p1", Price: 123.45}
	got := SuggestOptimalPrice(product, nil, 0.3)
	assert.Equal(t, 123.45, got)
}

func TestSweetSpotRule(t *testing.T) {
	product := Product{ID: "p1", Price: 300}
	sample := sampleAt(295, 300, 305, 298, 302)

	insights := Generate(product, sample, nil)
	var found bool
	for _, in := range insights {
		if in.Type == PricingOpportunity && in.Priority == PriorityLow {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheaperCompetitorRule(t *testing.T) {
	product := Product{ID: "p1", Price: 100}
	sample := sampleAt(50, 120, 130)

	insights := Generate(product, sample, nil)
	var found bool
	for _, in := range insights {
		if in.Type == PriceAlert && in.Priority == PriorityCritical {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEmptySampleSuppressesPricingButNotTrendRules(t *testing.T) {
	product := Product{ID: "p1", Name: "Smartwatch Pro", Price: 100}
	trend := &analyzer.TrendAnalysis{
		Marketplace:      marketplace.AmazonBR,
		TotalProducts:    150,
		CompetitionLevel: analyzer.Low,
		TrendingKeywords: []string{"smartwatch"},
	}

	insights := Generate(product, nil, trend)

	var types []InsightType
	for _, in := range insights {
		types = append(types, in.Type)
	}
	assert.Contains(t, types, HighDemand)
	assert.Contains(t, types, LowCompetition)
	assert.Contains(t, types, TrendingProduct)
	assert.NotContains(t, types, PricingOpportunity)
	assert.NotContains(t, types, PriceAlert)
}

func TestTrendingKeywordMatch(t *testing.T) {
	product := Product{ID: "p1", Name: "Relogio Smartwatch Pro", Price: 100}
	trend := &analyzer.TrendAnalysis{TrendingKeywords: []string{"smartwatch"}}

	insights := Generate(product, nil, trend)
	require.Len(t, insights, 1)
	assert.Equal(t, TrendingProduct, insights[0].Type)
	assert.Equal(t, PriorityMedium, insights[0].Priority)
}
