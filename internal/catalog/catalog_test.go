package catalog

import (
	"context"
	"net/url"
	"testing"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterDefaults(t *testing.T) {
	q, err := ParseFilter(url.Values{})
	require.NoError(t, err)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 12, q.Limit)
	assert.Equal(t, store.SortNewest, q.Sort)
	assert.False(t, q.MinPrice.Valid)
	assert.False(t, q.Home)
}

func TestParseFilter(t *testing.T) {
	v := url.Values{}
	v.Set("q", " kurta ")
	v.Set("page", "3")
	v.Set("limit", "500")
	v.Set("minPrice", "100")
	v.Set("maxPrice", "2500.50")
	v.Set("category", "ethnic")
	v.Set("sort", "price-desc")
	v.Set("featured", "true")
	v.Set("inStock", "true")
	v.Set("home", "true")

	q, err := ParseFilter(v)
	require.NoError(t, err)

	assert.Equal(t, "kurta", q.Query)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, store.MaxPageSize, q.Limit)
	assert.True(t, q.MinPrice.Decimal.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "2500.5", q.MaxPrice.Decimal.String())
	assert.Equal(t, "ethnic", q.CategorySlug)
	assert.Equal(t, store.SortPriceDesc, q.Sort)
	assert.True(t, q.Featured)
	assert.True(t, q.InStock)
	assert.False(t, q.OnSale)
	assert.True(t, q.Home)
}

func TestParseFilterRejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad sort", "sort", "cheapest"},
		{"bad min price", "minPrice", "abc"},
		{"negative max price", "maxPrice", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(url.Values{tt.key: {tt.value}})
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}

	_, err := ParseFilter(url.Values{"minPrice": {"500"}, "maxPrice": {"100"}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestParseFilterLenientPaging(t *testing.T) {
	q, err := ParseFilter(url.Values{"page": {"x"}, "limit": {"-4"}})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, store.DefaultPageSize, q.Limit)
}

func TestExtractBrand(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Nike Air Max", "Nike"},
		{"aurelia Printed Kurta", "aurelia"},
		{"plain cotton tee", "plain cotton tee"},
		{" Biba kurti", "Biba"},
		{"  ", "Unknown"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBrand(tt.name))
		})
	}
}

func TestBrandOfPrefersStructuredBrand(t *testing.T) {
	assert.Equal(t, "W", BrandOf(" W ", "Nike Air"))
	assert.Equal(t, "Nike", BrandOf("", "Nike Air"))
}

func TestBuildFacets(t *testing.T) {
	products := []models.ProductSummary{
		{Name: "Nike Air", Price: decimal.NewFromInt(2499), Sizes: []string{"M", "L"}, Colors: []string{"Red"}},
		{Name: "Nike Zoom", Price: decimal.NewFromInt(1800), Sizes: []string{"S", "M"}, Features: []string{"Mesh"}},
		{Name: "Tee", Brand: "Puma", Price: decimal.NewFromInt(3000), SalesPrice: decimal.NewNullDecimal(decimal.NewFromInt(900))},
	}

	f := BuildFacets(products)
	assert.Equal(t, []string{"L", "M", "S"}, f.Sizes)
	assert.Equal(t, []string{"Red"}, f.Colors)
	assert.Equal(t, []string{"Mesh"}, f.Features)
	assert.Equal(t, []string{"Nike", "Puma"}, f.Brands)
	assert.Equal(t, map[string]int{"Nike": 2, "Puma": 1}, f.BrandCounts)
	assert.Equal(t, "3000", f.MaxPrice.String())

	empty := BuildFacets(nil)
	assert.Empty(t, empty.Brands)
	assert.True(t, empty.MaxPrice.IsZero())
}

type fakeReader struct {
	lastFilter store.ProductFilter
	homeN      int
	search     []models.ProductSummary
}

func (f *fakeReader) ListProducts(_ context.Context, filter store.ProductFilter) (*store.ProductPage, error) {
	f.lastFilter = filter
	return &store.ProductPage{Items: []models.ProductSummary{}}, nil
}

func (f *fakeReader) SearchProducts(_ context.Context, filter store.ProductFilter) ([]models.ProductSummary, error) {
	f.lastFilter = filter
	return f.search, nil
}

func (f *fakeReader) HomeProducts(_ context.Context, n int) ([]models.ProductSummary, error) {
	f.homeN = n
	return nil, nil
}

func (f *fakeReader) GetProduct(context.Context, string) (*models.Product, error) {
	return nil, nil
}

func TestCatalogHomeListing(t *testing.T) {
	reader := &fakeReader{}
	c := New(reader)
	ctx := context.Background()

	_, err := c.List(ctx, Query{ProductFilter: store.ProductFilter{Page: 3, Limit: 12}, Home: true})
	require.NoError(t, err)
	assert.True(t, reader.lastFilter.Featured)
	assert.Equal(t, 1, reader.lastFilter.Page)
	assert.Equal(t, HomeListingSize, reader.lastFilter.Limit)

	_, err = c.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, HomeSize, reader.homeN)
}

func TestCatalogFacetsUsesFilter(t *testing.T) {
	reader := &fakeReader{search: []models.ProductSummary{{Name: "Zara Top", Price: decimal.NewFromInt(999)}}}
	c := New(reader)

	f, err := c.Facets(context.Background(), Query{ProductFilter: store.ProductFilter{CategorySlug: "tops"}})
	require.NoError(t, err)
	assert.Equal(t, "tops", reader.lastFilter.CategorySlug)
	assert.Equal(t, []string{"Zara"}, f.Brands)
	assert.Equal(t, "1000", f.MaxPrice.String())
}
