package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/models"
)

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, image_url FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Image); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, c models.Category) (*models.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, image_url, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		c.ID, c.Name, c.Slug, c.Image)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return &c, nil
}
