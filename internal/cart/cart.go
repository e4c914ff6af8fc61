package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// SchemaVersion tags every persisted cart document.
const SchemaVersion = 1

// Key is the device storage key of the live cart.
const Key = "cart"

var (
	ErrSizeRequired       = errors.New("please select a size")
	ErrColorRequired      = errors.New("please select a color")
	ErrOutOfStock         = errors.New("this product is out of stock")
	ErrItemNotFound       = errors.New("cart item not found")
	ErrUnsupportedVersion = errors.New("unsupported cart version")
	ErrConflict           = errors.New("cart was modified concurrently")
)

type Item struct {
	LineID     string              `json:"lineId"`
	ProductID  string              `json:"productId"`
	Name       string              `json:"name"`
	Image      string              `json:"image"`
	Price      decimal.Decimal     `json:"price"`
	SalesPrice decimal.NullDecimal `json:"salesPrice"`
	Size       string              `json:"size,omitempty"`
	Color      string              `json:"color,omitempty"`
	Quantity   int                 `json:"quantity"`
	MaxQty     int                 `json:"maxQty"`
}

func (i Item) UnitPrice() decimal.Decimal {
	return models.EffectivePrice(i.Price, i.SalesPrice)
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	Version   int       `json:"version"`
	Revision  int64     `json:"revision"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func New() *Cart {
	return &Cart{Version: SchemaVersion, Items: []Item{}}
}

// Subtotal is the sum of sale-or-list price times quantity.
func Subtotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.Items)
}

// Count is the total number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func LineID(productID, size, color string) string {
	return strings.Join([]string{productID, size, color}, ":")
}

// Add puts one unit of p with the chosen options into the cart. Adding to a
// line already at its max quantity leaves it unchanged and returns a notice.
func (c *Cart) Add(p *models.Product, size, color string) (string, error) {
	size, color = strings.TrimSpace(size), strings.TrimSpace(color)
	if len(p.Sizes) > 0 && size == "" {
		return "", ErrSizeRequired
	}
	if len(p.Colors) > 0 && color == "" {
		return "", ErrColorRequired
	}
	if p.Quantity <= 0 {
		return "", ErrOutOfStock
	}
	if len(p.Sizes) == 0 {
		size = ""
	}
	if len(p.Colors) == 0 {
		color = ""
	}

	id := LineID(p.ID, size, color)
	for i := range c.Items {
		item := &c.Items[i]
		if item.LineID != id {
			continue
		}
		if item.Quantity >= item.MaxQty {
			return fmt.Sprintf("Maximum quantity (%d) reached for this item.", item.MaxQty), nil
		}
		item.Quantity++
		return "", nil
	}

	image := ""
	if len(p.Images) > 0 {
		image = p.Images[0].URL
	}
	c.Items = append(c.Items, Item{
		LineID:     id,
		ProductID:  p.ID,
		Name:       p.Name,
		Image:      image,
		Price:      p.Price,
		SalesPrice: p.SalesPrice,
		Size:       size,
		Color:      color,
		Quantity:   1,
		MaxQty:     p.Quantity,
	})
	return "", nil
}

// SetQuantity clamps qty to [1, maxQty]. A notice is returned when the
// requested quantity was above the ceiling.
func (c *Cart) SetQuantity(lineID string, qty int) (string, error) {
	item := c.find(lineID)
	if item == nil {
		return "", ErrItemNotFound
	}

	notice := ""
	if qty > item.MaxQty {
		qty = item.MaxQty
		notice = fmt.Sprintf("Cart Updated. Max quantity is %d", item.MaxQty)
	}
	if qty < 1 {
		qty = 1
	}
	item.Quantity = qty
	return notice, nil
}

func (c *Cart) Remove(lineID string) error {
	for i := range c.Items {
		if c.Items[i].LineID == lineID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) Clear() {
	c.Items = []Item{}
}

func (c *Cart) find(lineID string) *Item {
	for i := range c.Items {
		if c.Items[i].LineID == lineID {
			return &c.Items[i]
		}
	}
	return nil
}

// Decode parses a stored cart document and rejects unknown schema versions.
func Decode(data []byte) (*Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Cart) check() error {
	if c.Version != SchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, c.Version)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return nil
}

// ExpectRevision wraps fn so it fails with ErrConflict unless the stored cart
// is at rev. A negative rev accepts any revision.
func ExpectRevision(rev int64, fn func(*Cart) error) func(*Cart) error {
	return func(c *Cart) error {
		if rev >= 0 && c.Revision != rev {
			return ErrConflict
		}
		return fn(c)
	}
}
