package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/models"
)

type State int

const (
	StateInformation State = iota
	StatePayment
	StateSubmitting
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateInformation:
		return "information"
	case StatePayment:
		return "payment"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrTransactionRequired = errors.New("transaction id is required")
	ErrInvalidTransition   = errors.New("invalid checkout step")
	ErrSubmitFailed        = errors.New("failed to place order, please try again")
)

// OrderClient creates orders on the storefront API.
type OrderClient interface {
	CreateOrder(ctx context.Context, draft models.OrderDraft) (string, error)
}

// Flow drives one device's checkout: Information, then Payment, then
// Submitting, ending in Confirmed. A failed submission returns to Payment
// with the staged order intact.
type Flow struct {
	carts   cart.Storage
	pending *PendingStore
	fees    FeeSchedule
	link    PaymentLink
	orders  OrderClient
	now     func() time.Time

	state   State
	staged  *PendingOrder
	orderID string
}

func NewFlow(carts cart.Storage, pending *PendingStore, fees FeeSchedule, link PaymentLink, orders OrderClient) *Flow {
	return &Flow{
		carts:   carts,
		pending: pending,
		fees:    fees,
		link:    link,
		orders:  orders,
		now:     time.Now,
	}
}

func (f *Flow) State() State {
	return f.state
}

func (f *Flow) Staged() *PendingOrder {
	return f.staged
}

func (f *Flow) OrderID() string {
	return f.orderID
}

// Resume restores a staged order left by an earlier run.
func (f *Flow) Resume() error {
	staged, err := f.pending.Load()
	if errors.Is(err, ErrNoPendingOrder) {
		f.state = StateInformation
		return nil
	}
	if err != nil {
		return err
	}
	f.staged = staged
	f.state = StatePayment
	return nil
}

// Proceed validates the shipping details, prices the cart and stages the
// order for payment.
func (f *Flow) Proceed(ctx context.Context, info CustomerInfo, method PaymentMethod) (*PendingOrder, error) {
	if f.state != StateInformation {
		return nil, fmt.Errorf("%w: proceed from %s", ErrInvalidTransition, f.state)
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}

	c, err := f.carts.Load(ctx, cart.Key)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	quote, err := f.fees.Quote(c.Items, method)
	if err != nil {
		return nil, err
	}

	staged := &PendingOrder{
		IdempotencyKey: uuid.NewString(),
		Customer:       info,
		Items:          c.Items,
		Quote:          quote,
		UPILink:        f.link.URL(quote.Advance),
		StagedAt:       f.now().UTC(),
	}
	if err := f.pending.Save(staged); err != nil {
		return nil, fmt.Errorf("stage order: %w", err)
	}

	f.staged = staged
	f.state = StatePayment
	return staged, nil
}

// Back returns to the information step. The staged copy is kept until the
// next Proceed replaces it.
func (f *Flow) Back() error {
	if f.state != StatePayment {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateInformation
	return nil
}

// Submit places the staged order with the customer's transaction reference.
func (f *Flow) Submit(ctx context.Context, transactionID string) (string, error) {
	if f.state != StatePayment || f.staged == nil {
		return "", fmt.Errorf("%w: submit from %s", ErrInvalidTransition, f.state)
	}

	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return "", ErrTransactionRequired
	}

	f.state = StateSubmitting
	orderID, err := f.orders.CreateOrder(ctx, f.staged.Draft(transactionID))
	if err != nil {
		f.state = StatePayment
		return "", fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	f.orderID = orderID
	f.staged = nil
	f.state = StateConfirmed

	// The order exists at this point, so cleanup failures still report its id.
	if err := f.carts.Delete(ctx, cart.Key); err != nil {
		return orderID, fmt.Errorf("clear cart: %w", err)
	}
	if err := f.pending.Clear(); err != nil {
		return orderID, fmt.Errorf("clear pending order: %w", err)
	}
	return orderID, nil
}
