package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/database"
)

func validSession(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// anyRevision disables the optimistic check when a client sends no
// expectedRevision.
const anyRevision = -1

func revisionOf(p *int64) int64 {
	if p == nil {
		return anyRevision
	}
	return *p
}

func respondCart(w http.ResponseWriter, status int, c *cart.Cart, notice string) {
	body := map[string]any{
		"success":  true,
		"cart":     c,
		"subtotal": c.Subtotal(),
		"count":    c.Count(),
	}
	if notice != "" {
		body["notice"] = notice
	}
	respondJSON(w, status, body)
}

func respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrConflict):
		respondFailure(w, http.StatusConflict, "Cart was modified, reload and retry")
	case errors.Is(err, cart.ErrItemNotFound):
		respondFailure(w, http.StatusNotFound, "Cart item not found")
	case errors.Is(err, cart.ErrSizeRequired),
		errors.Is(err, cart.ErrColorRequired),
		errors.Is(err, cart.ErrOutOfStock):
		respondFailure(w, http.StatusBadRequest, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("session", chi.URLParam(r, "session")).Msg("update cart")
		respondFailure(w, http.StatusInternalServerError, "Failed to update cart")
	}
}

// sessionOf returns the validated session key or writes a 400.
func sessionOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := chi.URLParam(r, "session")
	if !validSession(session) {
		respondFailure(w, http.StatusBadRequest, "Invalid cart session")
		return "", false
	}
	return session, true
}

func handleNewCartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusCreated, map[string]any{"success": true, "session": uuid.NewString()})
	}
}

func handleGetCart(carts cart.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionOf(w, r)
		if !ok {
			return
		}

		c, err := carts.Load(r.Context(), session)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("session", session).Msg("load cart")
			respondFailure(w, http.StatusInternalServerError, "Failed to load cart")
			return
		}
		respondCart(w, http.StatusOK, c, "")
	}
}

// handleAddCartItem adds one unit of a product, resolving its current price
// and stock from the catalog.
func handleAddCartItem(carts cart.Storage, c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionOf(w, r)
		if !ok {
			return
		}

		var req struct {
			ProductID        string `json:"productId"`
			Size             string `json:"size"`
			Color            string `json:"color"`
			ExpectedRevision *int64 `json:"expectedRevision"`
		}
		if err := decodeJSON(r, &req); err != nil || req.ProductID == "" {
			respondFailure(w, http.StatusBadRequest, "Missing productId")
			return
		}

		product, err := c.Product(r.Context(), req.ProductID)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				respondFailure(w, http.StatusNotFound, "Product not found")
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(err).Str("product_id", req.ProductID).Msg("get product for cart")
			respondFailure(w, http.StatusInternalServerError, "Failed to fetch product")
			return
		}

		var notice string
		updated, err := carts.Update(r.Context(), session, cart.ExpectRevision(revisionOf(req.ExpectedRevision), func(sc *cart.Cart) error {
			var err error
			notice, err = sc.Add(product, req.Size, req.Color)
			return err
		}))
		if err != nil {
			respondCartError(w, r, err)
			return
		}
		respondCart(w, http.StatusOK, updated, notice)
	}
}

func handleSetCartQuantity(carts cart.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionOf(w, r)
		if !ok {
			return
		}

		var req struct {
			Quantity         int    `json:"quantity"`
			ExpectedRevision *int64 `json:"expectedRevision"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		lineID := chi.URLParam(r, "lineID")
		var notice string
		updated, err := carts.Update(r.Context(), session, cart.ExpectRevision(revisionOf(req.ExpectedRevision), func(sc *cart.Cart) error {
			var err error
			notice, err = sc.SetQuantity(lineID, req.Quantity)
			return err
		}))
		if err != nil {
			respondCartError(w, r, err)
			return
		}
		respondCart(w, http.StatusOK, updated, notice)
	}
}

func handleRemoveCartItem(carts cart.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionOf(w, r)
		if !ok {
			return
		}
		rev, ok := revisionParam(w, r)
		if !ok {
			return
		}

		lineID := chi.URLParam(r, "lineID")
		updated, err := carts.Update(r.Context(), session, cart.ExpectRevision(rev, func(sc *cart.Cart) error {
			return sc.Remove(lineID)
		}))
		if err != nil {
			respondCartError(w, r, err)
			return
		}
		respondCart(w, http.StatusOK, updated, "")
	}
}

func handleClearCart(carts cart.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionOf(w, r)
		if !ok {
			return
		}
		rev, ok := revisionParam(w, r)
		if !ok {
			return
		}

		updated, err := carts.Update(r.Context(), session, cart.ExpectRevision(rev, func(sc *cart.Cart) error {
			sc.Clear()
			return nil
		}))
		if err != nil {
			respondCartError(w, r, err)
			return
		}
		respondCart(w, http.StatusOK, updated, "")
	}
}

// revisionParam reads expectedRevision from the query string of body-less
// requests.
func revisionParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("expectedRevision")
	if raw == "" {
		return anyRevision, true
	}
	rev, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || rev < 0 {
		respondFailure(w, http.StatusBadRequest, "Invalid expectedRevision")
		return 0, false
	}
	return rev, true
}
