package checkout

import (
	"errors"
	"fmt"

	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentOnline PaymentMethod = models.PaymentModeOnline
	PaymentCOD    PaymentMethod = models.PaymentModeCOD
)

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentOnline, PaymentCOD:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
}

// FeeSchedule holds the fixed cash-on-delivery amounts and the delivery copy
// shown for each payment method.
type FeeSchedule struct {
	CODAdvance     decimal.Decimal
	CODSurcharge   decimal.Decimal
	OnlineDelivery string
	CODDelivery    string
}

func NewFeeSchedule(cfg config.PaymentConfig) FeeSchedule {
	return FeeSchedule{
		CODAdvance:     cfg.CODAdvance,
		CODSurcharge:   cfg.CODSurcharge,
		OnlineDelivery: cfg.OnlineDelivery,
		CODDelivery:    cfg.CODDelivery,
	}
}

type Quote struct {
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
	Advance         decimal.Decimal `json:"advance"`
	CODRemaining    decimal.Decimal `json:"codRemaining"`
	DeliveryMessage string          `json:"deliveryMessage"`
}

// Quote prices items under method. Online orders are due in full with no
// surcharge; COD adds the surcharge and collects the fixed advance now, never
// more than the total.
func (f FeeSchedule) Quote(items []cart.Item, method PaymentMethod) (Quote, error) {
	subtotal := cart.Subtotal(items)

	switch method {
	case PaymentOnline:
		return Quote{
			PaymentMethod:   method,
			Subtotal:        subtotal,
			Shipping:        decimal.Zero,
			Total:           subtotal,
			Advance:         subtotal,
			CODRemaining:    decimal.Zero,
			DeliveryMessage: f.OnlineDelivery,
		}, nil
	case PaymentCOD:
		total := subtotal.Add(f.CODSurcharge)
		advance := decimal.Min(f.CODAdvance, total)
		return Quote{
			PaymentMethod:   method,
			Subtotal:        subtotal,
			Shipping:        f.CODSurcharge,
			Total:           total,
			Advance:         advance,
			CODRemaining:    total.Sub(advance),
			DeliveryMessage: f.CODDelivery,
		}, nil
	}
	return Quote{}, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, method)
}
