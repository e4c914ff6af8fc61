package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/catalog"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type Catalog interface {
	List(ctx context.Context, q catalog.Query) (*store.ProductPage, error)
	Home(ctx context.Context) ([]models.ProductSummary, error)
	Facets(ctx context.Context, q catalog.Query) (catalog.Facets, error)
	Product(ctx context.Context, id string) (*models.Product, error)
}

type Content interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListActiveBanners(ctx context.Context) ([]models.Banner, error)
}

type Orders interface {
	CreateOrder(ctx context.Context, draft models.OrderDraft) (*store.CreateOrderResult, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByPhone(ctx context.Context, phone string) ([]models.Order, error)
}

type Reviews interface {
	CreateReview(ctx context.Context, in models.ReviewInput) (*models.Review, *models.RatingSummary, error)
	ListReviews(ctx context.Context, productID string) ([]models.Review, error)
}

// OrderNotifier delivers the notification for a freshly created order. It
// must not fail the request.
type OrderNotifier interface {
	DeliverOrder(ctx context.Context, orderID string)
}

type Deps struct {
	Catalog  Catalog
	Content  Content
	Orders   Orders
	Reviews  Reviews
	Notifier OrderNotifier
	// Carts enables the session cart endpoints when set.
	Carts   cart.Storage
	Fees    checkout.FeeSchedule
	Payment checkout.PaymentLink
	QRSize  int
	Store   config.StoreConfig
	// Ping reports database health for /health.
	Ping func(ctx context.Context) error

	Logger         zerolog.Logger
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}
	r.Use(limitBody(d.MaxBodyBytes))

	r.Get("/health", handleHealth(d.Ping))

	r.Route("/api", func(r chi.Router) {
		r.Get("/store", handleStoreInfo(d.Store))
		r.Get("/categories", handleCategories(d.Content))
		r.Get("/banner", handleBanners(d.Content))

		r.Route("/product", func(r chi.Router) {
			r.Get("/", handleProducts(d.Catalog))
			r.Get("/home", handleHomeProducts(d.Catalog))
			r.Get("/facets", handleFacets(d.Catalog))
			r.Get("/{id}", handleProductByID(d.Catalog))
		})

		r.Post("/create-order", handleCreateOrder(d.Orders, d.Notifier))
		r.Route("/order", func(r chi.Router) {
			r.Get("/by-phone", handleOrdersByPhone(d.Orders))
			r.Get("/{id}", handleOrderByID(d.Orders))
			r.Get("/{id}/whatsapp", handleOrderWhatsApp(d.Orders, d.Store.ContactPhone))
		})

		r.Post("/create-review", handleCreateReview(d.Reviews))
		r.Post("/get-reviews", handleGetReviews(d.Reviews))

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", handleQuote(d.Fees, d.Payment, d.Carts))
			r.Get("/upi-qr", handleUPIQR(d.Payment, d.QRSize))
		})

		if d.Carts != nil {
			r.Route("/cart", func(r chi.Router) {
				r.Post("/", handleNewCartSession())
				r.Route("/{session}", func(r chi.Router) {
					r.Get("/", handleGetCart(d.Carts))
					r.Delete("/", handleClearCart(d.Carts))
					r.Post("/items", handleAddCartItem(d.Carts, d.Catalog))
					r.Patch("/items/{lineID}", handleSetCartQuantity(d.Carts))
					r.Delete("/items/{lineID}", handleRemoveCartItem(d.Carts))
				})
			})
		}
	})

	return r
}

func handleHealth(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleStoreInfo(info config.StoreConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, info)
	}
}
