package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/catalog"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

var emptyProducts = []models.ProductSummary{}

func handleCategories(content Content) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := content.ListCategories(r.Context())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("list categories")
			respondError(w, http.StatusInternalServerError, "Failed to fetch categories")
			return
		}
		respondJSON(w, http.StatusOK, categories)
	}
}

func handleBanners(content Content) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		banners, err := content.ListActiveBanners(r.Context())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("list banners")
			respondError(w, http.StatusInternalServerError, "Failed to fetch banner")
			return
		}
		respondJSON(w, http.StatusOK, banners)
	}
}

// handleProducts serves the filtered listing. Failures carry an empty data
// array so clients render no products instead of a partial page.
func handleProducts(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := catalog.ParseFilter(r.URL.Query())
		if err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": err.Error(),
				"data":    emptyProducts,
			})
			return
		}

		page, err := c.List(r.Context(), q)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("list products")
			respondJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"message": "Fetch failed",
				"data":    emptyProducts,
			})
			return
		}

		if q.Home {
			respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": page.Items})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"data":       page.Items,
			"pagination": page.Pagination,
		})
	}
}

func handleHomeProducts(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := c.Home(r.Context())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("list home products")
			respondJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"message": "Fetch failed",
				"data":    emptyProducts,
			})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": products})
	}
}

func handleFacets(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := catalog.ParseFilter(r.URL.Query())
		if err != nil {
			respondFailure(w, http.StatusBadRequest, err.Error())
			return
		}

		facets, err := c.Facets(r.Context(), q)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("build facets")
			respondFailure(w, http.StatusInternalServerError, "Fetch failed")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "facets": facets})
	}
}

func handleProductByID(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		product, err := c.Product(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				respondError(w, http.StatusNotFound, "Product not found")
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(err).Str("product_id", id).Msg("get product")
			respondError(w, http.StatusInternalServerError, "Failed to fetch product")
			return
		}
		respondJSON(w, http.StatusOK, product)
	}
}
