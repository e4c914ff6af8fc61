package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type SortKey string

const (
	SortNewest        SortKey = "newest"
	SortPriceAsc      SortKey = "price-asc"
	SortPriceDesc     SortKey = "price-desc"
	SortPopular       SortKey = "popular"
	SortFeaturedFirst SortKey = "featured"
)

var sortClauses = map[SortKey]string{
	SortNewest:        "p.created_at DESC, p.id",
	SortPriceAsc:      "p.price ASC, p.created_at DESC, p.id",
	SortPriceDesc:     "p.price DESC, p.created_at DESC, p.id",
	SortPopular:       "p.views DESC, p.created_at DESC, p.id",
	SortFeaturedFirst: "p.featured DESC, p.created_at DESC, p.id",
}

func (k SortKey) Valid() bool {
	_, ok := sortClauses[k]
	return ok
}

func (k SortKey) orderBy() string {
	if clause, ok := sortClauses[k]; ok {
		return clause
	}
	return sortClauses[SortNewest]
}

type ProductFilter struct {
	Query        string
	MinPrice     decimal.NullDecimal
	MaxPrice     decimal.NullDecimal
	CategorySlug string
	Featured     bool
	InStock      bool
	OnSale       bool
	Sort         SortKey
	Page         int
	Limit        int
}

type ProductPage struct {
	Items      []models.ProductSummary `json:"data"`
	Pagination Pagination              `json:"pagination"`
}

// NewProduct is the input for seeding the catalog.
type NewProduct struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Brand       string
	Price       decimal.Decimal
	SalesPrice  decimal.NullDecimal
	Quantity    int
	Sizes       []string
	Colors      []string
	Features    []string
	CategoryID  string
	Featured    bool
	Views       int64
	Images      []models.ProductImage
	CreatedAt   time.Time
}

const summaryColumns = `
	p.id, p.name, p.slug, COALESCE(img.url, ''), p.brand, p.price, p.sales_price,
	p.quantity, p.sold_out, p.sizes, p.colors, p.features, p.description,
	p.featured, p.rating, COALESCE(c.name, ''), COALESCE(c.slug, ''), p.created_at`

const summaryFrom = `
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN LATERAL (
		SELECT url FROM product_images pi
		WHERE pi.product_id = p.id
		ORDER BY pi.position, pi.id
		LIMIT 1
	) img ON TRUE`

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func buildProductWhere(f ProductFilter) (string, []any) {
	conds := []string{"TRUE"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.MinPrice.Valid {
		conds = append(conds, "COALESCE(p.sales_price, p.price) >= "+arg(f.MinPrice.Decimal))
	}
	if f.MaxPrice.Valid {
		conds = append(conds, "COALESCE(p.sales_price, p.price) <= "+arg(f.MaxPrice.Decimal))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		n := arg("%" + escapeLike(q) + "%")
		conds = append(conds, fmt.Sprintf(
			"(p.name ILIKE %[1]s OR p.description ILIKE %[1]s OR EXISTS (SELECT 1 FROM unnest(p.features) AS f(feature) WHERE f.feature ILIKE %[1]s))", n))
	}
	if f.CategorySlug != "" {
		conds = append(conds, "c.slug = "+arg(f.CategorySlug))
	}
	if f.Featured {
		conds = append(conds, "p.featured = TRUE")
	}
	if f.InStock {
		conds = append(conds, "p.quantity > 0")
	}
	if f.OnSale {
		conds = append(conds, "p.sales_price IS NOT NULL AND p.sales_price < p.price")
	}

	return strings.Join(conds, " AND "), args
}

func scanSummary(row scanner) (models.ProductSummary, error) {
	var p models.ProductSummary
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Image,
		&p.Brand,
		&p.Price,
		&p.SalesPrice,
		&p.Quantity,
		&p.SoldOut,
		pq.Array(&p.Sizes),
		pq.Array(&p.Colors),
		pq.Array(&p.Features),
		&p.Description,
		&p.Featured,
		&p.Rating,
		&p.Category,
		&p.CategorySlug,
		&p.CreatedAt,
	)
	return p, err
}

func (s *Store) querySummaries(ctx context.Context, query string, args ...any) ([]models.ProductSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.ProductSummary{}
	for rows.Next() {
		product, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// ListProducts returns one page of summaries and the total match count.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) (*ProductPage, error) {
	page, limit := NormalizePage(f.Page, f.Limit)
	where, args := buildProductWhere(f)

	var total int64
	var products []models.ProductSummary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx,
			`SELECT COUNT(*) FROM products p LEFT JOIN categories c ON c.id = p.category_id WHERE `+where,
			args...).Scan(&total)
		if err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), limit, offset(page, limit))
		query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
			summaryColumns, summaryFrom, where, f.Sort.orderBy(), len(args)+1, len(args)+2)
		var err error
		products, err = s.querySummaries(gctx, query, pageArgs...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ProductPage{
		Items:      products,
		Pagination: NewPagination(page, limit, len(products), total),
	}, nil
}

// SearchProducts returns every summary matching f, ignoring paging.
func (s *Store) SearchProducts(ctx context.Context, f ProductFilter) ([]models.ProductSummary, error) {
	where, args := buildProductWhere(f)
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s`,
		summaryColumns, summaryFrom, where, f.Sort.orderBy())
	return s.querySummaries(ctx, query, args...)
}

// HomeProducts returns up to n products, featured ones first, backfilled
// with the most recent non-featured products.
func (s *Store) HomeProducts(ctx context.Context, n int) ([]models.ProductSummary, error) {
	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s LIMIT $1`,
		summaryColumns, summaryFrom, SortFeaturedFirst.orderBy())
	return s.querySummaries(ctx, query, n)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product := &models.Product{}
	var categoryID, categoryName sql.NullString

	query := `
		SELECT p.id, p.name, p.slug, p.description, p.brand, p.price, p.sales_price,
		       p.quantity, p.sold_out, p.sizes, p.colors, p.features, p.featured,
		       p.rating, p.created_at, p.updated_at, p.version, c.id, c.name
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Brand,
		&product.Price,
		&product.SalesPrice,
		&product.Quantity,
		&product.SoldOut,
		pq.Array(&product.Sizes),
		pq.Array(&product.Colors),
		pq.Array(&product.Features),
		&product.Featured,
		&product.Rating,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
		&categoryID,
		&categoryName,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if categoryID.Valid {
		product.Category = &models.CategoryRef{ID: categoryID.String, Title: categoryName.String}
	}

	images, err := loadImages(ctx, s.db, []string{id})
	if err != nil {
		return nil, err
	}
	product.Images = images[id]
	if product.Images == nil {
		product.Images = []models.ProductImage{}
	}

	return product, nil
}

func loadImages(ctx context.Context, q querier, productIDs []string) (map[string][]models.ProductImage, error) {
	images := make(map[string][]models.ProductImage, len(productIDs))
	if len(productIDs) == 0 {
		return images, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT product_id, url, title
		 FROM product_images
		 WHERE product_id = ANY($1)
		 ORDER BY product_id, position, id`,
		pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("load product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID string
		var img models.ProductImage
		if err := rows.Scan(&productID, &img.URL, &img.Title); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images[productID] = append(images[productID], img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return images, nil
}

func (s *Store) CreateProduct(ctx context.Context, in NewProduct) (*models.Product, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := sql.NullTime{Time: in.CreatedAt, Valid: !in.CreatedAt.IsZero()}
	categoryID := sql.NullString{String: in.CategoryID, Valid: in.CategoryID != ""}

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO products (id, name, slug, description, brand, price, sales_price, quantity,
			                       sold_out, sizes, colors, features, category_id, featured, views,
			                       created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8 <= 0, $9, $10, $11, $12, $13, $14,
			         COALESCE($15, NOW()), NOW(), 1)`,
			id, in.Name, in.Slug, in.Description, in.Brand, in.Price, in.SalesPrice, in.Quantity,
			pq.Array(nonNil(in.Sizes)), pq.Array(nonNil(in.Colors)), pq.Array(nonNil(in.Features)),
			categoryID, in.Featured, in.Views, createdAt)
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		for i, img := range in.Images {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO product_images (product_id, url, title, position) VALUES ($1, $2, $3, $4)`,
				id, img.URL, img.Title, i)
			if err != nil {
				return fmt.Errorf("create product image: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, id)
}

// decrementStock subtracts quantity from the product and refreshes its
// sold-out flag. The stock may go negative. It reports false when the
// product does not exist.
func decrementStock(ctx context.Context, tx *sql.Tx, productID string, quantity int) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET quantity = quantity - $1,
		     sold_out = (quantity - $1) <= 0,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// stockDemand sums ordered quantities per product, sorted by product id so
// concurrent orders lock rows in the same order.
func stockDemand(items []models.OrderDraftItem) []models.OrderDraftItem {
	totals := make(map[string]int, len(items))
	for _, item := range items {
		totals[item.Product] += item.Quantity
	}

	demand := make([]models.OrderDraftItem, 0, len(totals))
	for id, qty := range totals {
		demand = append(demand, models.OrderDraftItem{Product: id, Quantity: qty})
	}
	sort.Slice(demand, func(i, j int) bool { return demand[i].Product < demand[j].Product })
	return demand
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
