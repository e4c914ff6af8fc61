package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProductImage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type CategoryRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Product is the full detail document.
type Product struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Slug        string              `json:"slug,omitempty"`
	Description string              `json:"description,omitempty"`
	Brand       string              `json:"brand,omitempty"`
	Price       decimal.Decimal     `json:"price"`
	SalesPrice  decimal.NullDecimal `json:"salesPrice"`
	Quantity    int                 `json:"quantity"`
	SoldOut     bool                `json:"soldOut"`
	Sizes       []string            `json:"sizes"`
	Colors      []string            `json:"colors"`
	Features    []string            `json:"features"`
	Category    *CategoryRef        `json:"category,omitempty"`
	Featured    bool                `json:"featured"`
	Rating      decimal.Decimal     `json:"rating"`
	Images      []ProductImage      `json:"images"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Version     int                 `json:"version"`
}

// ProductSummary is the listing projection.
type ProductSummary struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Slug         string              `json:"slug,omitempty"`
	Image        string              `json:"image"`
	Brand        string              `json:"brand,omitempty"`
	Price        decimal.Decimal     `json:"price"`
	SalesPrice   decimal.NullDecimal `json:"salesPrice"`
	Quantity     int                 `json:"quantity"`
	SoldOut      bool                `json:"soldOut"`
	Sizes        []string            `json:"sizes"`
	Colors       []string            `json:"colors"`
	Features     []string            `json:"features"`
	Description  string              `json:"description,omitempty"`
	Featured     bool                `json:"featured"`
	Rating       decimal.Decimal     `json:"rating"`
	Category     string              `json:"category,omitempty"`
	CategorySlug string              `json:"categorySlug,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// EffectivePrice is the sale price when one is set, else the list price.
func EffectivePrice(price decimal.Decimal, sale decimal.NullDecimal) decimal.Decimal {
	if sale.Valid {
		return sale.Decimal
	}
	return price
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
}

const (
	BannerMediaImage = "image"
	BannerMediaVideo = "video"
)

type Banner struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	MediaType    string `json:"mediaType"`
	ImageURL     string `json:"imageUrl,omitempty"`
	VideoURL     string `json:"videoUrl,omitempty"`
	TextPosition string `json:"textPosition"`
	TextColor    string `json:"textColor"`
	ButtonText   string `json:"buttonText"`
	ButtonLink   string `json:"buttonLink"`
	IsActive     bool   `json:"isActive"`
	Order        int    `json:"order"`
}

const (
	PaymentModeOnline = "online"
	PaymentModeCOD    = "cod"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderProduct is the product projection expanded into order line items.
type OrderProduct struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Slug       string              `json:"slug,omitempty"`
	Price      decimal.Decimal     `json:"price"`
	SalesPrice decimal.NullDecimal `json:"salesPrice"`
	Images     []ProductImage      `json:"images"`
	Quantity   int                 `json:"quantity"`
	SoldOut    bool                `json:"soldOut"`
}

type OrderItem struct {
	ProductID string        `json:"productId"`
	Quantity  int           `json:"quantity"`
	Size      string        `json:"size,omitempty"`
	Color     string        `json:"color,omitempty"`
	Product   *OrderProduct `json:"product,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	Reference       string          `json:"reference"`
	CustomerName    string          `json:"customerName"`
	PhoneNumber     string          `json:"phoneNumber"`
	AlternatePhone  string          `json:"alternatePhone,omitempty"`
	InstagramID     string          `json:"instagramId,omitempty"`
	Address         string          `json:"address"`
	District        string          `json:"district"`
	State           string          `json:"state"`
	Pincode         string          `json:"pincode"`
	Landmark        string          `json:"landmark,omitempty"`
	PaymentMode     string          `json:"paymentMode"`
	ShippingCharges decimal.Decimal `json:"shippingCharges"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	AdvanceAmount   decimal.Decimal `json:"advanceAmount"`
	CODRemaining    decimal.Decimal `json:"codRemaining"`
	PaymentStatus   bool            `json:"paymentStatus"`
	PaymentVerified bool            `json:"paymentVerified"`
	TransactionID   string          `json:"transactionId,omitempty"`
	OrderStatus     string          `json:"orderStatus"`
	OrderedAt       time.Time       `json:"orderedAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Version         int             `json:"version"`
	Products        []OrderItem     `json:"products"`
}

// OrderReference is the short customer-facing order number.
func OrderReference(id string) string {
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return strings.ToUpper(id)
}

type OrderDraftItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
}

// OrderDraft is the create-order request body.
type OrderDraft struct {
	CustomerName    string           `json:"customerName"`
	PhoneNumber     string           `json:"phoneNumber"`
	AlternatePhone  string           `json:"alternatePhone,omitempty"`
	InstagramID     string           `json:"instagramId,omitempty"`
	Address         string           `json:"address"`
	District        string           `json:"district"`
	State           string           `json:"state"`
	Pincode         string           `json:"pincode"`
	Landmark        string           `json:"landmark,omitempty"`
	Products        []OrderDraftItem `json:"products"`
	PaymentMode     string           `json:"paymentMode"`
	ShippingCharges decimal.Decimal  `json:"shippingCharges"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	AdvanceAmount   decimal.Decimal  `json:"advanceAmount"`
	CODRemaining    decimal.Decimal  `json:"codRemaining"`
	PaymentStatus   bool             `json:"paymentStatus"`
	TransactionID   string           `json:"transactionId"`
	IdempotencyKey  string           `json:"idempotencyKey,omitempty"`
}

// MissingFields lists the required draft fields that are blank.
func (d OrderDraft) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"customerName", d.CustomerName},
		{"address", d.Address},
		{"phoneNumber", d.PhoneNumber},
		{"district", d.District},
		{"state", d.State},
		{"pincode", d.Pincode},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(d.Products) == 0 {
		missing = append(missing, "products")
	}
	return missing
}

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Phone     string    `json:"-"`
	InstaID   string    `json:"instaId,omitempty"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReviewInput struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	InstaID   string `json:"instaId"`
	Rating    int    `json:"rating"`
	Review    string `json:"review"`
}

func (r ReviewInput) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.ProductID) == "" {
		missing = append(missing, "productId")
	}
	if r.Rating == 0 {
		missing = append(missing, "rating")
	}
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(r.Review) == "" {
		missing = append(missing, "review")
	}
	return missing
}

// RatingSummary is the aggregate written back onto a product.
type RatingSummary struct {
	Average decimal.Decimal `json:"average"`
	Count   int64           `json:"count"`
}
