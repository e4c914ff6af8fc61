package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// PaymentLink builds UPI deep links for a fixed payee.
type PaymentLink struct {
	PayeeID   string
	PayeeName string
	Note      string
}

// URL encodes the payee, amount and note as a upi://pay link. The amount is
// not signed or bound server-side.
func (l PaymentLink) URL(amount decimal.Decimal) string {
	params := []string{
		"pa=" + escape(l.PayeeID),
		"pn=" + escape(l.PayeeName),
		"am=" + amount.StringFixed(2),
		"tn=" + escape(l.Note),
	}
	return "upi://pay?" + strings.Join(params, "&")
}

// QR renders the link for amount as a PNG of size by size pixels.
func (l PaymentLink) QR(amount decimal.Decimal, size int) ([]byte, error) {
	png, err := qrcode.Encode(l.URL(amount), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode payment qr: %w", err)
	}
	return png, nil
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
