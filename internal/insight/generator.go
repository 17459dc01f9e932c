// Copyright 2025 James Ross
// Package insight maps a tenant's catalog product, a market sample, and an
// optional trend summary to a list of typed recommendations. Every
// function is a pure rule evaluator: no I/O, no persistence.
package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketintel/engine/internal/analyzer"
	"github.com/marketintel/engine/internal/queue"
)

const (
	overPricedThreshold  = 1.20
	underPricedThreshold = 0.85
	sweetSpotTolerance   = 0.10
	highDemandThreshold  = 100
	cheaperCompetitorPct = 0.90
)

// Generate runs every rule from §4.4 and returns the insights that fired.
// An empty market sample suppresses the pricing rules but not the
// demand/competition/trend rules, which only depend on trend.
func Generate(product Product, sample []queue.ScrapedProduct, trend *analyzer.TrendAnalysis) []MarketInsight {
	var insights []MarketInsight
	now := time.Now().UTC()

	if len(sample) > 0 {
		avg := marketAverage(sample)
		insights = append(insights, pricingRules(product, sample, avg, now)...)
	}

	if trend != nil {
		if trend.TotalProducts > highDemandThreshold {
			insights = append(insights, MarketInsight{
				ID:              uuid.NewString(),
				TenantProductID: product.ID,
				Type:            HighDemand,
				Title:           "High demand detected",
				Description:     fmt.Sprintf("%d listings found in the current market sample", trend.TotalProducts),
				SuggestedAction: "Consider increasing stock or ad spend for this category",
				Priority:        PriorityHigh,
				Data: map[string]any{
					"total_products": trend.TotalProducts,
				},
				CreatedAt: now,
			})
		}

		if trend.CompetitionLevel == analyzer.Low {
			insights = append(insights, MarketInsight{
				ID:              uuid.NewString(),
				TenantProductID: product.ID,
				Type:            LowCompetition,
				Title:           "Low competition in this category",
				Description:     "Few distinct sellers are active in the current market sample",
				SuggestedAction: "Consider expanding catalog presence before competition increases",
				Priority:        PriorityHigh,
				Data: map[string]any{
					"competition_level": trend.CompetitionLevel,
				},
				CreatedAt: now,
			})
		}

		if keyword, ok := matchingTrendingKeyword(product.Name, trend.TrendingKeywords); ok {
			insights = append(insights, MarketInsight{
				ID:              uuid.NewString(),
				TenantProductID: product.ID,
				Type:            TrendingProduct,
				Title:           "Product matches a trending keyword",
				Description:     fmt.Sprintf("%q matches the trending term %q", product.Name, keyword),
				SuggestedAction: "Highlight this product in trending/featured placements",
				Priority:        PriorityMedium,
				Data: map[string]any{
					"trending_keywords": trend.TrendingKeywords,
					"matched_keyword":   keyword,
				},
				CreatedAt: now,
			})
		}
	}

	return insights
}

func pricingRules(product Product, sample []queue.ScrapedProduct, avg float64, now time.Time) []MarketInsight {
	var insights []MarketInsight

	if avg > 0 {
		diffPct := (product.Price - avg) / avg * 100

		switch {
		case product.Price > avg*overPricedThreshold:
			insights = append(insights, MarketInsight{
				ID:              uuid.NewString(),
				TenantProductID: product.ID,
				Type:            PricingOpportunity,
				Title:           "Product is over-priced relative to the market",
				Description:     fmt.Sprintf("Priced %.0f%% above the market average of %.2f", diffPct, avg),
				SuggestedAction: fmt.Sprintf("reduce to market_avg × 1.05 (%.2f)", avg*1.05),
				Priority:        PriorityHigh,
				Data: map[string]any{
					"market_avg":   avg,
					"diff_percent": diffPct,
				},
				CreatedAt: now,
			})
		case product.Price < avg*underPricedThreshold:
			insights = append(insights, MarketInsight{
				ID:              uuid.NewString(),
				TenantProductID: product.ID,
				Type:            PricingOpportunity,
				Title:           "Product is under-priced relative to the market",
				Description:     fmt.Sprintf("Priced %.0f%% below the market average of %.2f", -diffPct, avg),
				SuggestedAction: fmt.Sprintf("raise toward market_avg × 0.95 (%.2f)", avg*0.95),
				Priority:        PriorityMedium,
				Data: map[string]any{
					"market_avg":   avg,
					"diff_percent": diffPct,
				},
				CreatedAt: now,
			})
		case absFloat(diffPct/100) <= sweetSpotTolerance:
			insights = append(insights, MarketInsight{
				ID:              uuid.NewString(),
				TenantProductID: product.ID,
				Type:            PricingOpportunity,
				Title:           "Product price is within the market sweet spot",
				Description:     fmt.Sprintf("Within %.0f%% of the market average of %.2f", sweetSpotTolerance*100, avg),
				SuggestedAction: "No pricing change recommended",
				Priority:        PriorityLow,
				Data: map[string]any{
					"market_avg":   avg,
					"diff_percent": diffPct,
				},
				CreatedAt: now,
			})
		}
	}

	if minPrice := minPrice(sample); minPrice < product.Price*cheaperCompetitorPct {
		insights = append(insights, MarketInsight{
			ID:              uuid.NewString(),
			TenantProductID: product.ID,
			Type:            PriceAlert,
			Title:           "A competitor is pricing below this product",
			Description:     fmt.Sprintf("Cheapest competitor listing is %.2f, below 90%% of this product's price", minPrice),
			SuggestedAction: "Review pricing against the cheaper competitor listing",
			Priority:        PriorityCritical,
			Data: map[string]any{
				"cheapest_competitor_price": minPrice,
			},
			CreatedAt: now,
		})
	}

	return insights
}

// SuggestOptimalPrice returns max(cost×(1+margin), market_avg×0.95). With an
// empty sample it returns the product's current price, per §4.4.
func SuggestOptimalPrice(product Product, sample []queue.ScrapedProduct, targetMargin float64) float64 {
	if len(sample) == 0 {
		return product.Price
	}
	avg := marketAverage(sample)
	costBased := product.Cost * (1 + targetMargin)
	marketBased := avg * 0.95
	if costBased > marketBased {
		return costBased
	}
	return marketBased
}

func marketAverage(sample []queue.ScrapedProduct) float64 {
	if len(sample) == 0 {
		return 0
	}
	var sum float64
	for _, p := range sample {
		sum += p.Price
	}
	return sum / float64(len(sample))
}

func minPrice(sample []queue.ScrapedProduct) float64 {
	if len(sample) == 0 {
		return 0
	}
	min := sample[0].Price
	for _, p := range sample[1:] {
		if p.Price < min {
			min = p.Price
		}
	}
	return min
}

func matchingTrendingKeyword(productName string, keywords []string) (string, bool) {
	lower := strings.ToLower(productName)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
