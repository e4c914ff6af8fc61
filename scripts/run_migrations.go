package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
)

// seedFile is the catalog fixture format accepted by the seed command.
type seedFile struct {
	Categories []models.Category `json:"categories"`
	Banners    []models.Banner   `json:"banners"`
	Products   []struct {
		ID          string                `json:"id"`
		Name        string                `json:"name"`
		Slug        string                `json:"slug"`
		Description string                `json:"description"`
		Brand       string                `json:"brand"`
		Price       decimal.Decimal       `json:"price"`
		SalesPrice  decimal.NullDecimal   `json:"salesPrice"`
		Quantity    int                   `json:"quantity"`
		Sizes       []string              `json:"sizes"`
		Colors      []string              `json:"colors"`
		Features    []string              `json:"features"`
		Category    string                `json:"category"`
		Featured    bool                  `json:"featured"`
		Images      []models.ProductImage `json:"images"`
	} `json:"products"`
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		logger.Fatal().Msg("usage: go run scripts/run_migrations.go [up|down|seed <file.json>]")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	switch cmd := os.Args[1]; cmd {
	case "up", "down":
		if err := database.Migrate(db, database.Direction(cmd)); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Str("direction", cmd).Msg("migrations applied")

	case "seed":
		if len(os.Args) < 3 {
			logger.Fatal().Msg("usage: go run scripts/run_migrations.go seed <file.json>")
		}
		if err := database.Migrate(db, database.MigrateUp); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		if err := seed(ctx, store.New(db, logger), os.Args[2], logger); err != nil {
			logger.Fatal().Err(err).Msg("seed catalog")
		}

	default:
		logger.Fatal().Str("command", cmd).Msg("command must be 'up', 'down' or 'seed'")
	}
}

func seed(ctx context.Context, s *store.Store, path string, logger zerolog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}

	categoryIDs := make(map[string]string, len(f.Categories))
	for _, c := range f.Categories {
		created, err := s.CreateCategory(ctx, c)
		if err != nil {
			return err
		}
		categoryIDs[created.Slug] = created.ID
	}

	for _, b := range f.Banners {
		if _, err := s.CreateBanner(ctx, b); err != nil {
			return err
		}
	}

	for _, p := range f.Products {
		categoryID, ok := categoryIDs[p.Category]
		if p.Category != "" && !ok {
			return fmt.Errorf("product %q: unknown category slug %q", p.Name, p.Category)
		}
		_, err := s.CreateProduct(ctx, store.NewProduct{
			ID:          p.ID,
			Name:        p.Name,
			Slug:        p.Slug,
			Description: p.Description,
			Brand:       p.Brand,
			Price:       p.Price,
			SalesPrice:  p.SalesPrice,
			Quantity:    p.Quantity,
			Sizes:       p.Sizes,
			Colors:      p.Colors,
			Features:    p.Features,
			CategoryID:  categoryID,
			Featured:    p.Featured,
			Images:      p.Images,
		})
		if err != nil {
			return err
		}
	}

	logger.Info().
		Int("categories", len(f.Categories)).
		Int("banners", len(f.Banners)).
		Int("products", len(f.Products)).
		Msg("catalog seeded")
	return nil
}
