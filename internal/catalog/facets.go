package catalog

import (
	"sort"

	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

type Facets struct {
	Sizes       []string        `json:"sizes"`
	Colors      []string        `json:"colors"`
	Features    []string        `json:"features"`
	Brands      []string        `json:"brands"`
	BrandCounts map[string]int  `json:"brandCounts"`
	MaxPrice    decimal.Decimal `json:"maxPrice"`
}

var priceStep = decimal.NewFromInt(1000)

// BuildFacets collects the distinct filter values present in products. The
// max price uses list prices and is rounded up to the next multiple of 1000.
func BuildFacets(products []models.ProductSummary) Facets {
	sizes := map[string]struct{}{}
	colors := map[string]struct{}{}
	features := map[string]struct{}{}
	counts := map[string]int{}
	maxPrice := decimal.Zero

	for _, p := range products {
		for _, s := range p.Sizes {
			sizes[s] = struct{}{}
		}
		for _, c := range p.Colors {
			colors[c] = struct{}{}
		}
		for _, f := range p.Features {
			features[f] = struct{}{}
		}
		counts[BrandOf(p.Brand, p.Name)]++
		if p.Price.GreaterThan(maxPrice) {
			maxPrice = p.Price
		}
	}

	brands := make([]string, 0, len(counts))
	for b := range counts {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	return Facets{
		Sizes:       sortedKeys(sizes),
		Colors:      sortedKeys(colors),
		Features:    sortedKeys(features),
		Brands:      brands,
		BrandCounts: counts,
		MaxPrice:    maxPrice.Div(priceStep).Ceil().Mul(priceStep),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
