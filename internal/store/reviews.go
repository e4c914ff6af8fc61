package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// CreateReview stores the review and folds its rating into the product's
// running average in the same transaction.
func (s *Store) CreateReview(ctx context.Context, in models.ReviewInput) (*models.Review, *models.RatingSummary, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, nil, database.ErrInvalidRating
	}

	review := &models.Review{
		ID:        uuid.NewString(),
		ProductID: in.ProductID,
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		InstaID:   strings.TrimSpace(in.InstaID),
		Rating:    in.Rating,
		Review:    strings.TrimSpace(in.Review),
	}
	summary := &models.RatingSummary{}

	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`UPDATE products
			 SET rating_sum = rating_sum + $1,
			     rating_count = rating_count + 1,
			     rating = ROUND((rating_sum + $1)::NUMERIC / (rating_count + 1), 2),
			     updated_at = NOW()
			 WHERE id = $2
			 RETURNING rating, rating_count`,
			in.Rating, in.ProductID).Scan(&summary.Average, &summary.Count)
		if err != nil {
			if database.IsNoRows(err) {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("update product rating: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO reviews (id, product_id, name, phone, insta_id, rating, review, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			 RETURNING created_at`,
			review.ID, review.ProductID, review.Name, review.Phone, review.InstaID,
			review.Rating, review.Review).Scan(&review.CreatedAt)
		if err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return review, summary, nil
}

// ListReviews returns a product's reviews, newest first.
func (s *Store) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, name, phone, insta_id, rating, review, created_at
		 FROM reviews
		 WHERE product_id = $1
		 ORDER BY created_at DESC, id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		err := rows.Scan(&r.ID, &r.ProductID, &r.Name, &r.Phone, &r.InstaID, &r.Rating, &r.Review, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}

// RatingFor recomputes the average from the stored reviews.
func (s *Store) RatingFor(ctx context.Context, productID string) (*models.RatingSummary, error) {
	var sum, count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM reviews WHERE product_id = $1`,
		productID).Scan(&sum, &count)
	if err != nil {
		return nil, fmt.Errorf("rating for product: %w", err)
	}

	summary := &models.RatingSummary{Average: decimal.Zero, Count: count}
	if count > 0 {
		summary.Average = decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(count), 2)
	}
	return summary, nil
}
