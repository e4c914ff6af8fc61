package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/devicestate"
	"github.com/safar/go-storefront/internal/models"
)

// PendingKey is the device storage key of the staged order.
const PendingKey = "pendingOrder"

const PendingSchemaVersion = 1

var (
	ErrNoPendingOrder     = errors.New("no pending order")
	ErrUnsupportedVersion = errors.New("unsupported pending order version")
)

// PendingOrder is the recovery copy of a checkout staged before payment.
type PendingOrder struct {
	Version        int          `json:"version"`
	IdempotencyKey string       `json:"idempotencyKey"`
	Customer       CustomerInfo `json:"customer"`
	Items          []cart.Item  `json:"items"`
	Quote          Quote        `json:"quote"`
	UPILink        string       `json:"upiLink"`
	StagedAt       time.Time    `json:"stagedAt"`
}

// Draft builds the create-order body. Payment status is asserted by the
// client at submission; nothing verifies the transaction reference.
func (p *PendingOrder) Draft(transactionID string) models.OrderDraft {
	items := make([]models.OrderDraftItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, models.OrderDraftItem{
			Product:  item.ProductID,
			Quantity: item.Quantity,
			Size:     item.Size,
			Color:    item.Color,
		})
	}

	return models.OrderDraft{
		CustomerName:    p.Customer.CustomerName,
		PhoneNumber:     p.Customer.PhoneNumber,
		AlternatePhone:  p.Customer.AlternatePhone,
		InstagramID:     p.Customer.InstagramID,
		Address:         p.Customer.Address,
		District:        p.Customer.District,
		State:           p.Customer.State,
		Pincode:         p.Customer.Pincode,
		Landmark:        p.Customer.Landmark,
		Products:        items,
		PaymentMode:     string(p.Quote.PaymentMethod),
		ShippingCharges: p.Quote.Shipping,
		TotalAmount:     p.Quote.Total,
		AdvanceAmount:   p.Quote.Advance,
		CODRemaining:    p.Quote.CODRemaining,
		PaymentStatus:   true,
		TransactionID:   transactionID,
		IdempotencyKey:  p.IdempotencyKey,
	}
}

type PendingStore struct {
	dir *devicestate.Dir
}

func NewPendingStore(dir *devicestate.Dir) *PendingStore {
	return &PendingStore{dir: dir}
}

func (s *PendingStore) Save(p *PendingOrder) error {
	p.Version = PendingSchemaVersion
	return s.dir.Write(PendingKey, p)
}

func (s *PendingStore) Load() (*PendingOrder, error) {
	var p PendingOrder
	if err := s.dir.Read(PendingKey, &p); err != nil {
		if errors.Is(err, devicestate.ErrNotFound) {
			return nil, ErrNoPendingOrder
		}
		return nil, err
	}
	if p.Version != PendingSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}
	return &p, nil
}

func (s *PendingStore) Clear() error {
	return s.dir.Remove(PendingKey)
}
