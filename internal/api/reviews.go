package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

func handleCreateReview(reviews Reviews) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.ReviewInput
		if err := decodeJSON(r, &in); err != nil {
			respondFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if len(in.MissingFields()) > 0 {
			respondFailure(w, http.StatusBadRequest, "Missing required fields")
			return
		}

		_, summary, err := reviews.CreateReview(r.Context(), in)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrInvalidRating):
				respondFailure(w, http.StatusBadRequest, "Rating must be between 1 and 5")
			case errors.Is(err, database.ErrProductNotFound):
				respondFailure(w, http.StatusNotFound, "Product not found")
			default:
				zerolog.Ctx(r.Context()).Error().Err(err).Str("product_id", in.ProductID).Msg("create review")
				respondFailure(w, http.StatusInternalServerError, "Something went wrong")
			}
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Review submitted successfully",
			"rating":  summary,
		})
	}
}

func handleGetReviews(reviews Reviews) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID string `json:"productId"`
		}
		if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.ProductID) == "" {
			respondFailure(w, http.StatusBadRequest, "Missing productId")
			return
		}

		list, err := reviews.ListReviews(r.Context(), req.ProductID)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("product_id", req.ProductID).Msg("list reviews")
			respondFailure(w, http.StatusInternalServerError, "Server error")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{"success": true, "reviews": list})
	}
}
