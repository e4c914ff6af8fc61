package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/shopspring/decimal"
)

// handleQuote prices either the posted items or, when a session is given and
// server-side carts are enabled, the stored session cart.
func handleQuote(fees checkout.FeeSchedule, link checkout.PaymentLink, carts cart.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Items         []cart.Item `json:"items"`
			Session       string      `json:"session"`
			PaymentMethod string      `json:"paymentMethod"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		method, err := checkout.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			respondFailure(w, http.StatusBadRequest, "Unknown payment method")
			return
		}

		items := req.Items
		if session := strings.TrimSpace(req.Session); session != "" {
			if carts == nil {
				respondFailure(w, http.StatusBadRequest, "Session carts are disabled")
				return
			}
			if !validSession(session) {
				respondFailure(w, http.StatusBadRequest, "Invalid cart session")
				return
			}
			c, err := carts.Load(r.Context(), session)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Str("session", session).Msg("load cart for quote")
				respondFailure(w, http.StatusInternalServerError, "Failed to load cart")
				return
			}
			items = c.Items
		}
		if len(items) == 0 {
			respondFailure(w, http.StatusBadRequest, "Cart is empty")
			return
		}
		for _, item := range items {
			if item.Quantity <= 0 || item.Price.IsNegative() {
				respondFailure(w, http.StatusBadRequest, "Invalid cart item")
				return
			}
		}

		quote, err := fees.Quote(items, method)
		if err != nil {
			respondFailure(w, http.StatusBadRequest, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"quote":   quote,
			"upiLink": link.URL(quote.Advance),
		})
	}
}

func handleUPIQR(link checkout.PaymentLink, size int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
		if err != nil || !amount.IsPositive() {
			respondFailure(w, http.StatusBadRequest, "Invalid amount")
			return
		}
		if size <= 0 {
			size = 256
		}

		png, err := link.QR(amount, size)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("render payment qr")
			respondFailure(w, http.StatusInternalServerError, "Failed to render QR code")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}
