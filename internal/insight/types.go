// Copyright 2025 James Ross
package insight

import "time"

// InsightType is the closed set of recommendation categories.
type InsightType string

const (
	PricingOpportunity InsightType = "pricing_opportunity"
	HighDemand         InsightType = "high_demand"
	LowCompetition     InsightType = "low_competition"
	TrendingProduct    InsightType = "trending_product"
	PriceAlert         InsightType = "price_alert"
)

// Priority is the closed set of recommendation urgency levels.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// MarketInsight is a typed recommendation produced by the rule engine.
type MarketInsight struct {
	ID              string         `json:"id"`
	TenantProductID string         `json:"tenant_product_id"`
	Type            InsightType    `json:"type"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	SuggestedAction string         `json:"suggested_action"`
	Priority        Priority       `json:"priority"`
	Data            map[string]any `json:"data"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Product is the minimal tenant catalog entry the rule engine reasons
// about: its own price and cost, plus an identifying name used for
// trending-keyword matches.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Cost  float64 `json:"cost"`
}
