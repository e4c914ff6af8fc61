package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
)

// HomeListingSize is how many featured products the home=true listing returns.
const HomeListingSize = 4

var ErrInvalidFilter = errors.New("invalid filter")

// Query is a parsed product listing request.
type Query struct {
	store.ProductFilter
	Home bool
}

// ParseFilter reads listing parameters from a query string. Unparseable page
// and limit values fall back to their defaults; a malformed price bound or
// unknown sort key is an error.
func ParseFilter(v url.Values) (Query, error) {
	q := Query{
		ProductFilter: store.ProductFilter{
			Query:        strings.TrimSpace(v.Get("q")),
			CategorySlug: strings.TrimSpace(v.Get("category")),
			Featured:     v.Get("featured") == "true",
			InStock:      v.Get("inStock") == "true",
			OnSale:       v.Get("onSale") == "true",
			Sort:         store.SortNewest,
			Page:         atoiDefault(v.Get("page"), 1),
			Limit:        atoiDefault(v.Get("limit"), store.DefaultPageSize),
		},
		Home: v.Get("home") == "true",
	}

	if sort := v.Get("sort"); sort != "" {
		key := store.SortKey(sort)
		if !key.Valid() {
			return Query{}, fmt.Errorf("%w: unknown sort %q", ErrInvalidFilter, sort)
		}
		q.Sort = key
	}

	var err error
	if q.MinPrice, err = parsePrice(v.Get("minPrice")); err != nil {
		return Query{}, fmt.Errorf("%w: minPrice: %v", ErrInvalidFilter, err)
	}
	if q.MaxPrice, err = parsePrice(v.Get("maxPrice")); err != nil {
		return Query{}, fmt.Errorf("%w: maxPrice: %v", ErrInvalidFilter, err)
	}
	if q.MinPrice.Valid && q.MaxPrice.Valid && q.MinPrice.Decimal.GreaterThan(q.MaxPrice.Decimal) {
		return Query{}, fmt.Errorf("%w: minPrice exceeds maxPrice", ErrInvalidFilter)
	}

	q.Page, q.Limit = store.NormalizePage(q.Page, q.Limit)
	return q, nil
}

func parsePrice(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, errors.New("must not be negative")
	}
	return decimal.NewNullDecimal(d), nil
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
