package notify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

func rupees(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

func productName(item models.OrderItem) string {
	if item.Product != nil && item.Product.Name != "" {
		return item.Product.Name
	}
	return item.ProductID
}

func options(item models.OrderItem) string {
	parts := []string{fmt.Sprintf("Qty: %d", item.Quantity)}
	if item.Size != "" {
		parts = append(parts, "Size: "+item.Size)
	}
	if item.Color != "" {
		parts = append(parts, "Color: "+item.Color)
	}
	return strings.Join(parts, ", ")
}

// FormatOrder renders the staff notification for a new order.
func FormatOrder(o *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New order #%s\n\n", o.Reference)
	fmt.Fprintf(&b, "Customer: %s\n", o.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", o.PhoneNumber)
	if o.AlternatePhone != "" {
		fmt.Fprintf(&b, "Alternate phone: %s\n", o.AlternatePhone)
	}
	if o.InstagramID != "" {
		fmt.Fprintf(&b, "Instagram: %s\n", o.InstagramID)
	}

	address := o.Address
	if o.Landmark != "" {
		address += " (near " + o.Landmark + ")"
	}
	fmt.Fprintf(&b, "Address: %s, %s, %s - %s\n", address, o.District, o.State, o.Pincode)

	b.WriteString("\nProducts:\n")
	for _, item := range o.Products {
		fmt.Fprintf(&b, "- %s (%s)\n", productName(item), options(item))
	}

	fmt.Fprintf(&b, "\nPayment: %s\n", strings.ToUpper(o.PaymentMode))
	fmt.Fprintf(&b, "Total: %s\n", rupees(o.TotalAmount))
	if o.PaymentMode == models.PaymentModeCOD {
		fmt.Fprintf(&b, "Advance: %s\n", rupees(o.AdvanceAmount))
		fmt.Fprintf(&b, "COD remaining: %s\n", rupees(o.CODRemaining))
	}
	if o.TransactionID != "" {
		fmt.Fprintf(&b, "Transaction: %s\n", o.TransactionID)
	}

	return strings.TrimRight(b.String(), "\n")
}

// WhatsAppText is the customer's pre-filled enquiry about an order.
func WhatsAppText(o *models.Order) string {
	lines := make([]string, 0, len(o.Products))
	for _, item := range o.Products {
		line := productName(item) + " (" + options(item) + ")"
		if item.Product != nil {
			price := models.EffectivePrice(item.Product.Price, item.Product.SalesPrice)
			line += " - " + rupees(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		lines = append(lines, line)
	}

	return fmt.Sprintf("Hi, I have a question about my order #%s\n\nProducts:\n%s\n\nTotal: %s\n\nOrder Status: %s",
		o.Reference, strings.Join(lines, "\n"), rupees(o.TotalAmount), o.OrderStatus)
}

// WhatsAppLink opens a chat with the store's number prefilled with text.
func WhatsAppLink(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
