// Copyright 2025 James Ross
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketintel/engine/internal/marketplace"
)

// ScrapedProduct is one listing extracted by a driver, normalized to a
// uniform shape regardless of source marketplace.
type ScrapedProduct struct {
	ID           string                  `json:"id"`
	JobID        string                  `json:"job_id"`
	Marketplace  marketplace.Marketplace `json:"marketplace"`
	ExternalID   string                  `json:"external_id,omitempty"`
	Title        string                  `json:"title"`
	Price        float64                 `json:"price"`
	Currency     string                  `json:"currency"`
	URL          string                  `json:"url"`
	ImageURL     string                  `json:"image_url,omitempty"`
	SellerName   string                  `json:"seller_name"`
	SellerID     string                  `json:"seller_id,omitempty"`
	SellerRating *float64                `json:"seller_rating,omitempty"`
	SalesRank    *int                    `json:"sales_rank,omitempty"`
	Rating       *float64                `json:"rating,omitempty"`
	NumReviews   int                     `json:"num_reviews"`
	Availability bool                    `json:"availability"`
	Category     string                  `json:"category,omitempty"`
	Brand        string                  `json:"brand,omitempty"`
	ScrapedAt    time.Time               `json:"scraped_at"`
	Extra        map[string]any          `json:"extra,omitempty"`
}

// NewScrapedProduct fills in the identifier and timestamp; callers supply
// everything the driver extracted.
func NewScrapedProduct(jobID string, mp marketplace.Marketplace) ScrapedProduct {
	return ScrapedProduct{
		ID:           uuid.NewString(),
		JobID:        jobID,
		Marketplace:  mp,
		Currency:     "BRL",
		SellerName:   mp.DisplaySellerName(),
		Availability: true,
		Extra:        map[string]any{},
		ScrapedAt:    time.Now().UTC(),
	}
}

// Valid implements the normalization invariant from §3: products with an
// empty title or a non-positive price must be dropped.
func (p ScrapedProduct) Valid() bool {
	return p.Title != "" && p.Price > 0
}

func MarshalProducts(products []ScrapedProduct) (string, error) {
	b, err := json.Marshal(products)
	if err != nil {
		return "", fmt.Errorf("marshal products: %w", err)
	}
	return string(b), nil
}

func UnmarshalProducts(s string) ([]ScrapedProduct, error) {
	if s == "" {
		return nil, nil
	}
	var products []ScrapedProduct
	if err := json.Unmarshal([]byte(s), &products); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}
	return products, nil
}
