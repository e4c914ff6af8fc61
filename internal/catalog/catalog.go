package catalog

import (
	"context"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

// HomeSize is the number of products on the landing page.
const HomeSize = 6

type Reader interface {
	ListProducts(ctx context.Context, f store.ProductFilter) (*store.ProductPage, error)
	SearchProducts(ctx context.Context, f store.ProductFilter) ([]models.ProductSummary, error)
	HomeProducts(ctx context.Context, n int) ([]models.ProductSummary, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

type Catalog struct {
	reader Reader
}

func New(reader Reader) *Catalog {
	return &Catalog{reader: reader}
}

// List runs a listing query. The home variant is featured-only, first page,
// capped at HomeListingSize.
func (c *Catalog) List(ctx context.Context, q Query) (*store.ProductPage, error) {
	f := q.ProductFilter
	if q.Home {
		f.Featured = true
		f.Page = 1
		f.Limit = HomeListingSize
	}
	return c.reader.ListProducts(ctx, f)
}

// Home returns featured products first, backfilled with the newest others.
func (c *Catalog) Home(ctx context.Context) ([]models.ProductSummary, error) {
	return c.reader.HomeProducts(ctx, HomeSize)
}

// Facets computes filter options over every product matching q, ignoring
// paging.
func (c *Catalog) Facets(ctx context.Context, q Query) (Facets, error) {
	products, err := c.reader.SearchProducts(ctx, q.ProductFilter)
	if err != nil {
		return Facets{}, err
	}
	return BuildFacets(products), nil
}

func (c *Catalog) Product(ctx context.Context, id string) (*models.Product, error) {
	return c.reader.GetProduct(ctx, id)
}
