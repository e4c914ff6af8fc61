package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/notify"
)

// handleCreateOrder persists the draft and then delivers its notification.
// Delivery problems are logged by the notifier and never change the response.
func handleCreateOrder(orders Orders, notifier OrderNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft models.OrderDraft
		if err := decodeJSON(r, &draft); err != nil {
			respondFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if missing := draft.MissingFields(); len(missing) > 0 {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": "Missing required fields",
				"fields":  missing,
			})
			return
		}

		result, err := orders.CreateOrder(r.Context(), draft)
		if err != nil {
			if errors.Is(err, database.ErrEmptyOrder) || errors.Is(err, database.ErrInvalidQuantity) {
				respondFailure(w, http.StatusBadRequest, err.Error())
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(err).Str("phone", draft.PhoneNumber).Msg("create order")
			respondFailure(w, http.StatusInternalServerError, "Failed to create order")
			return
		}

		logger := zerolog.Ctx(r.Context())
		if result.Duplicate {
			logger.Info().Str("order_id", result.OrderID).Msg("duplicate order submission")
		} else {
			logger.Info().Str("order_id", result.OrderID).Int("items", len(draft.Products)).Msg("order created")
			if notifier != nil {
				notifier.DeliverOrder(context.WithoutCancel(r.Context()), result.OrderID)
			}
		}

		respondJSON(w, http.StatusOK, map[string]any{"success": true, "orderId": result.OrderID})
	}
}

func handleOrderByID(orders Orders) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		order, err := orders.GetOrder(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrOrderNotFound) {
				respondFailure(w, http.StatusNotFound, "Order not found")
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(err).Str("order_id", id).Msg("get order")
			respondFailure(w, http.StatusInternalServerError, "Failed to fetch order")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
	}
}

func handleOrdersByPhone(orders Orders) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if phone == "" {
			respondFailure(w, http.StatusBadRequest, "Phone number is required")
			return
		}

		list, err := orders.ListOrdersByPhone(r.Context(), phone)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("list orders by phone")
			respondFailure(w, http.StatusInternalServerError, "Failed to fetch orders")
			return
		}
		if list == nil {
			list = []models.Order{}
		}

		respondJSON(w, http.StatusOK, map[string]any{"success": true, "orders": list})
	}
}

// handleOrderWhatsApp builds the chat link a customer uses to ask the store
// about an order.
func handleOrderWhatsApp(orders Orders, storePhone string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		order, err := orders.GetOrder(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrOrderNotFound) {
				respondFailure(w, http.StatusNotFound, "Order not found")
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(err).Str("order_id", id).Msg("get order")
			respondFailure(w, http.StatusInternalServerError, "Failed to fetch order")
			return
		}

		text := notify.WhatsAppText(order)
		respondJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"reference": order.Reference,
			"text":      text,
			"link":      notify.WhatsAppLink(storePhone, text),
		})
	}
}
