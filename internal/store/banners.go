package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/models"
)

// ListActiveBanners returns the landing hero banners in display order.
func (s *Store) ListActiveBanners(ctx context.Context) ([]models.Banner, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, subtitle, media_type, image_url, video_url, text_position,
		        text_color, cta_text, cta_link, is_active, sort_order
		 FROM banners
		 WHERE is_active = TRUE
		 ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	defer rows.Close()

	banners := []models.Banner{}
	for rows.Next() {
		var b models.Banner
		err := rows.Scan(
			&b.ID,
			&b.Title,
			&b.Subtitle,
			&b.MediaType,
			&b.ImageURL,
			&b.VideoURL,
			&b.TextPosition,
			&b.TextColor,
			&b.ButtonText,
			&b.ButtonLink,
			&b.IsActive,
			&b.Order,
		)
		if err != nil {
			return nil, fmt.Errorf("scan banner: %w", err)
		}
		banners = append(banners, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return banners, nil
}

func (s *Store) CreateBanner(ctx context.Context, b models.Banner) (*models.Banner, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.MediaType == "" {
		b.MediaType = models.BannerMediaImage
	}
	if b.TextPosition == "" {
		b.TextPosition = "center"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO banners (id, title, subtitle, media_type, image_url, video_url, text_position,
		                      text_color, cta_text, cta_link, is_active, sort_order)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.Title, b.Subtitle, b.MediaType, b.ImageURL, b.VideoURL, b.TextPosition,
		b.TextColor, b.ButtonText, b.ButtonLink, b.IsActive, b.Order)
	if err != nil {
		return nil, fmt.Errorf("create banner: %w", err)
	}

	return &b, nil
}
