// Copyright 2025 James Ross
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/marketintel/engine/internal/marketplace"
	"github.com/marketintel/engine/internal/obs"
	"github.com/marketintel/engine/internal/queue"
	"go.uber.org/zap"
)

const mercadoLivreResultSelector = "li.ui-search-layout__item"

const mercadoLivrePageSize = 50

// scrapeMercadoLivre implements the MercadoLivre driver: hyphenated slug
// plus offset-based pagination, per §4.2.
func scrapeMercadoLivre(ctx context.Context, session *Session, job queue.Job, pageTimeout time.Duration, log *zap.Logger) ([]queue.ScrapedProduct, error) {
	base, err := job.Marketplace.BaseURL()
	if err != nil {
		return nil, wrapDriverError("resolve base url", err)
	}

	slug := strings.ReplaceAll(job.SearchQuery, " ", "-")
	var products []queue.ScrapedProduct

	for page := 1; page <= job.MaxPages; page++ {
		offset := (page - 1) * mercadoLivrePageSize
		pageURL := fmt.Sprintf("%s/%s/_Desde_%d", base, slug, offset)

		html, err := session.NavigateAndWait(pageURL, mercadoLivreResultSelector, pageTimeout)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Warn("mercado livre page navigation failed, stopping with partial results", obs.Err(err), obs.Int("page", page))
			break
		}

		HumanizedDelay(ctx)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			log.Warn("mercado livre parse document failed, stopping with partial results", obs.Err(err))
			break
		}

		found := 0
		doc.Find(mercadoLivreResultSelector).Each(func(_ int, sel *goquery.Selection) {
			product, ok := extractMercadoLivreListing(job, sel)
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

func extractMercadoLivreListing(job queue.Job, sel *goquery.Selection) (queue.ScrapedProduct, bool) {
	title := collapseWhitespace(sel.Find("h2.ui-search-item__title").First().Text())
	priceText := sel.Find("span.andes-money-amount__fraction").First().Text()
	price := parsePrice(priceText)

	if title == "" || price <= 0 {
		return queue.ScrapedProduct{}, false
	}

	href, _ := sel.Find("a.ui-search-link").First().Attr("href")

	product := queue.NewScrapedProduct(job.ID, marketplace.MercadoLivre)
	product.Title = title
	product.Price = price
	product.URL = href
	product.Category = job.Category
	product.ExternalID = lastPathSegment(href)

	return product, true
}

// lastPathSegment implements §4.2's MercadoLivre external-id rule: the
// last non-empty path segment of the listing URL.
func lastPathSegment(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx == -1 {
		return trimmed
	}
	return trimmed[idx+1:]
}
