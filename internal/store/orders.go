package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

const idempotencyConstraint = "orders_idempotency_key_key"

type CreateOrderResult struct {
	OrderID string
	// Duplicate is set when the idempotency key matched an earlier order and
	// nothing was written.
	Duplicate bool
	// Skipped lists ordered product ids that did not resolve; their stock was
	// left untouched.
	Skipped []string
}

// CreateOrder persists the order, its line items and its notification outbox
// entry, and decrements inventory, all in one serializable transaction.
func (s *Store) CreateOrder(ctx context.Context, draft models.OrderDraft) (*CreateOrderResult, error) {
	if len(draft.Products) == 0 {
		return nil, database.ErrEmptyOrder
	}
	for _, item := range draft.Products {
		if item.Quantity <= 0 {
			return nil, database.ErrInvalidQuantity
		}
	}

	key := sql.NullString{String: strings.TrimSpace(draft.IdempotencyKey), Valid: strings.TrimSpace(draft.IdempotencyKey) != ""}
	var result *CreateOrderResult

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		result = &CreateOrderResult{}

		if key.Valid {
			var existing string
			err := tx.QueryRowContext(ctx,
				`SELECT id FROM orders WHERE idempotency_key = $1`, key).Scan(&existing)
			if err == nil {
				result.OrderID = existing
				result.Duplicate = true
				return nil
			}
			if !database.IsNoRows(err) {
				return fmt.Errorf("check idempotency key: %w", err)
			}
		}

		orderID := uuid.NewString()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, idempotency_key, customer_name, phone_number, alternate_phone,
			                     instagram_id, address, district, state, pincode, landmark,
			                     payment_mode, shipping_charges, total_amount, advance_amount,
			                     cod_remaining, payment_status, transaction_id, order_status,
			                     ordered_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			         $18, $19, NOW(), NOW(), 1)`,
			orderID, key, draft.CustomerName, draft.PhoneNumber, draft.AlternatePhone,
			draft.InstagramID, draft.Address, draft.District, draft.State, draft.Pincode,
			draft.Landmark, draft.PaymentMode, draft.ShippingCharges, draft.TotalAmount,
			draft.AdvanceAmount, draft.CODRemaining, draft.PaymentStatus, draft.TransactionID,
			models.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for i, item := range draft.Products {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, position, product_id, quantity, size, color)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				orderID, i, item.Product, item.Quantity, nullString(item.Size), nullString(item.Color))
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		for _, demand := range stockDemand(draft.Products) {
			found, err := decrementStock(ctx, tx, demand.Product, demand.Quantity)
			if err != nil {
				return err
			}
			if !found {
				result.Skipped = append(result.Skipped, demand.Product)
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_outbox (order_id, status, created_at, next_attempt_at) VALUES ($1, 'pending', NOW(), NOW())`,
			orderID)
		if err != nil {
			return fmt.Errorf("create order outbox entry: %w", err)
		}

		result.OrderID = orderID
		return nil
	})

	if err != nil {
		if key.Valid && database.IsUniqueViolation(err, idempotencyConstraint) {
			var existing string
			if lookupErr := s.db.QueryRowContext(ctx,
				`SELECT id FROM orders WHERE idempotency_key = $1`, key).Scan(&existing); lookupErr == nil {
				return &CreateOrderResult{OrderID: existing, Duplicate: true}, nil
			}
		}
		return nil, err
	}

	for _, id := range result.Skipped {
		s.logger.Warn().Str("order_id", result.OrderID).Str("product_id", id).
			Msg("ordered product not found, stock not decremented")
	}

	return result, nil
}

const orderColumns = `
	id, customer_name, phone_number, alternate_phone, instagram_id, address, district,
	state, pincode, landmark, payment_mode, shipping_charges, total_amount, advance_amount,
	cod_remaining, payment_status, payment_verified, transaction_id, order_status,
	ordered_at, updated_at, version`

func scanOrder(row scanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.CustomerName,
		&order.PhoneNumber,
		&order.AlternatePhone,
		&order.InstagramID,
		&order.Address,
		&order.District,
		&order.State,
		&order.Pincode,
		&order.Landmark,
		&order.PaymentMode,
		&order.ShippingCharges,
		&order.TotalAmount,
		&order.AdvanceAmount,
		&order.CODRemaining,
		&order.PaymentStatus,
		&order.PaymentVerified,
		&order.TransactionID,
		&order.OrderStatus,
		&order.OrderedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}
	order.Reference = models.OrderReference(order.ID)
	order.Products = []models.OrderItem{}
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return getOrder(ctx, s.db, id)
}

func getOrder(ctx context.Context, q querier, id string) (*models.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := loadOrderItems(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	if lines, ok := items[id]; ok {
		order.Products = lines
	}

	return order, nil
}

// ListOrdersByPhone returns the customer's orders, newest first.
func (s *Store) ListOrdersByPhone(ctx context.Context, phone string) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE phone_number = $1 ORDER BY ordered_at DESC, id`,
		phone)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	var ids []string
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	items, err := loadOrderItems(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		if lines, ok := items[order.ID]; ok {
			order.Products = lines
		}
		out = append(out, *order)
	}

	return out, nil
}

// loadOrderItems fetches line items for the given orders with their product
// projection expanded. Items whose product no longer exists keep a nil Product.
func loadOrderItems(ctx context.Context, q querier, orderIDs []string) (map[string][]models.OrderItem, error) {
	items := make(map[string][]models.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return items, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT oi.order_id, oi.product_id, oi.quantity, COALESCE(oi.size, ''), COALESCE(oi.color, ''),
		        p.id, p.name, p.slug, p.price, p.sales_price, p.quantity, p.sold_out
		 FROM order_items oi
		 LEFT JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = ANY($1)
		 ORDER BY oi.order_id, oi.position`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var productIDs []string
	for rows.Next() {
		var orderID string
		var item models.OrderItem
		var (
			pID, pName, pSlug sql.NullString
			pStock            sql.NullInt64
			pSoldOut          sql.NullBool
			pPrice, pSale     decimal.NullDecimal
			product           models.OrderProduct
		)
		err := rows.Scan(
			&orderID,
			&item.ProductID,
			&item.Quantity,
			&item.Size,
			&item.Color,
			&pID,
			&pName,
			&pSlug,
			&pPrice,
			&pSale,
			&pStock,
			&pSoldOut,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if pID.Valid {
			product.ID = pID.String
			product.Name = pName.String
			product.Slug = pSlug.String
			product.Price = pPrice.Decimal
			product.SalesPrice = pSale
			product.Quantity = int(pStock.Int64)
			product.SoldOut = pSoldOut.Bool
			product.Images = []models.ProductImage{}
			item.Product = &product
			productIDs = append(productIDs, product.ID)
		}
		items[orderID] = append(items[orderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	images, err := loadImages(ctx, q, productIDs)
	if err != nil {
		return nil, err
	}
	for _, lines := range items {
		for i := range lines {
			if p := lines[i].Product; p != nil {
				if imgs, ok := images[p.ID]; ok {
					p.Images = imgs
				}
			}
		}
	}

	return items, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
