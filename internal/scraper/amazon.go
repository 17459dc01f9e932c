// Copyright 2025 James Ross
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/marketintel/engine/internal/marketplace"
	"github.com/marketintel/engine/internal/obs"
	"github.com/marketintel/engine/internal/queue"
	"go.uber.org/zap"
)

const amazonResultSelector = "div[data-component-type='s-search-result']"

// scrapeAmazon implements the Amazon-BR driver: query-string-encoded
// search term, result-container wait selector, and the field extraction
// rules from §4.2.
func scrapeAmazon(ctx context.Context, session *Session, job queue.Job, pageTimeout time.Duration, log *zap.Logger) ([]queue.ScrapedProduct, error) {
	base, err := job.Marketplace.BaseURL()
	if err != nil {
		return nil, wrapDriverError("resolve base url", err)
	}

	var products []queue.ScrapedProduct
	searchURL := fmt.Sprintf("%s/s?k=%s", base, url.QueryEscape(job.SearchQuery))

	for page := 1; page <= job.MaxPages; page++ {
		pageURL := searchURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s&page=%d", searchURL, page)
		}

		html, err := session.NavigateAndWait(pageURL, amazonResultSelector, pageTimeout)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Warn("amazon page navigation failed, stopping with partial results",
				obs.Err(err), obs.Int("page", page))
			break
		}

		HumanizedDelay(ctx)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			log.Warn("amazon parse document failed, stopping with partial results", obs.Err(err))
			break
		}

		found := 0
		doc.Find(amazonResultSelector).Each(func(_ int, sel *goquery.Selection) {
			product, ok := extractAmazonListing(job, base, sel)
			if !ok {
				return
			}
			found++
			products = append(products, product)
		})

		if found == 0 {
			break
		}
	}

	return products, nil
}

func extractAmazonListing(job queue.Job, baseURL string, sel *goquery.Selection) (queue.ScrapedProduct, bool) {
	title := collapseWhitespace(sel.Find("h2 a span").First().Text())
	priceText := sel.Find("span.a-price-whole").First().Text()
	price := parsePrice(priceText)

	if title == "" || price <= 0 {
		return queue.ScrapedProduct{}, false
	}

	href, _ := sel.Find("h2 a").First().Attr("href")
	listingURL := href
	if listingURL != "" && !strings.HasPrefix(listingURL, "http") {
		listingURL = baseURL + listingURL
	}

	product := queue.NewScrapedProduct(job.ID, marketplace.AmazonBR)
	product.Title = title
	product.Price = price
	product.URL = listingURL
	product.Category = job.Category
	product.ExternalID = amazonExternalID(listingURL)

	if ratingText := sel.Find("span.a-icon-alt").First().Text(); ratingText != "" {
		if r := parseLeadingFloat(ratingText); r > 0 {
			product.Rating = &r
		}
	}

	return product, true
}

// amazonExternalID implements §4.2's rule: the path segment that begins
// with "dp" or is exactly 10 characters.
func amazonExternalID(listingURL string) string {
	u, err := url.Parse(listingURL)
	if err != nil {
		return ""
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "dp") || len(seg) == 10 {
			return seg
		}
	}
	return ""
}

func parseLeadingFloat(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	return parsePrice(fields[0])
}
