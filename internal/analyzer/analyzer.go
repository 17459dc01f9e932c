// Copyright 2025 James Ross
// Package analyzer computes statistical trend summaries over a sample of
// scraped products. Every function here is pure: no I/O, no shared state,
// safe for property-based and table-driven testing without fixtures.
package analyzer

import (
	"sort"
	"time"

	"github.com/marketintel/engine/internal/marketplace"
	"github.com/marketintel/engine/internal/queue"
)

// CompetitionLevel buckets a sample by its count of unique sellers.
type CompetitionLevel string

const (
	Low      CompetitionLevel = "low"
	Medium   CompetitionLevel = "medium"
	High     CompetitionLevel = "high"
	VeryHigh CompetitionLevel = "very_high"
)

// SellerCount is one entry of the top-sellers ranking.
type SellerCount struct {
	SellerName string `json:"seller_name"`
	Count      int    `json:"count"`
}

// TrendAnalysis is a pure summary over a product sample.
type TrendAnalysis struct {
	Marketplace      marketplace.Marketplace `json:"marketplace"`
	Category         string                  `json:"category,omitempty"`
	TotalProducts    int                     `json:"total_products"`
	MeanPrice        float64                 `json:"mean_price"`
	MedianPrice      float64                 `json:"median_price"`
	MinPrice         float64                 `json:"min_price"`
	MaxPrice         float64                 `json:"max_price"`
	TopSellers       []SellerCount           `json:"top_sellers"`
	TrendingKeywords []string                `json:"trending_keywords"`
	GrowthRate       float64                 `json:"growth_rate"`
	CompetitionLevel CompetitionLevel        `json:"competition_level"`
	WindowStart      time.Time               `json:"window_start"`
	WindowEnd        time.Time               `json:"window_end"`
	AnalyzedAt       time.Time               `json:"analyzed_at"`
}

const maxTopSellers = 10
const maxTrendingKeywords = 20

// Analyze reduces a product sample to a TrendAnalysis. Empty input produces
// zeroed price stats, an empty seller/keyword list, and Low competition,
// per §4.3.
func Analyze(mp marketplace.Marketplace, category string, products []queue.ScrapedProduct) TrendAnalysis {
	now := time.Now().UTC()
	analysis := TrendAnalysis{
		Marketplace:      mp,
		Category:         category,
		TotalProducts:    len(products),
		CompetitionLevel: Low,
		TopSellers:       []SellerCount{},
		TrendingKeywords: []string{},
		GrowthRate:       0,
		AnalyzedAt:       now,
		WindowEnd:        now,
	}
	if len(products) == 0 {
		return analysis
	}

	prices := make([]float64, len(products))
	for i, p := range products {
		prices[i] = p.Price
	}
	sort.Float64s(prices)

	analysis.MinPrice = prices[0]
	analysis.MaxPrice = prices[len(prices)-1]
	analysis.MedianPrice = median(prices)
	analysis.MeanPrice = mean(prices)

	analysis.TopSellers = topSellers(products)
	analysis.TrendingKeywords = TrendingKeywords(products)
	analysis.CompetitionLevel = competitionLevel(len(uniqueSellers(products)))

	earliest := products[0].ScrapedAt
	for _, p := range products {
		if p.ScrapedAt.Before(earliest) {
			earliest = p.ScrapedAt
		}
	}
	analysis.WindowStart = earliest

	return analysis
}

func mean(sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}

// median takes the lower middle element for even counts — a documented
// choice (nearest-rank interpolation is not used), per §4.3.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1]
}

func uniqueSellers(products []queue.ScrapedProduct) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range products {
		set[p.SellerName] = struct{}{}
	}
	return set
}

// topSellers ranks sellers by listing count descending, ties broken by
// first-seen order in the input slice.
func topSellers(products []queue.ScrapedProduct) []SellerCount {
	order := []string{}
	counts := map[string]int{}
	for _, p := range products {
		if _, seen := counts[p.SellerName]; !seen {
			order = append(order, p.SellerName)
		}
		counts[p.SellerName]++
	}

	result := make([]SellerCount, len(order))
	for i, name := range order {
		result[i] = SellerCount{SellerName: name, Count: counts[name]}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if len(result) > maxTopSellers {
		result = result[:maxTopSellers]
	}
	return result
}

// competitionLevel buckets by unique seller count per §3: Low ≤10,
// Medium 11..50, High 51..100, VeryHigh >100.
func competitionLevel(uniqueSellerCount int) CompetitionLevel {
	switch {
	case uniqueSellerCount <= 10:
		return Low
	case uniqueSellerCount <= 50:
		return Medium
	case uniqueSellerCount <= 100:
		return High
	default:
		return VeryHigh
	}
}
