package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/devicestate"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFees = FeeSchedule{
	CODAdvance:     decimal.NewFromInt(100),
	CODSurcharge:   decimal.NewFromInt(100),
	OnlineDelivery: "Kerala: 2-3 days | Outside Kerala: 6-7 days",
	CODDelivery:    "Delivery in 7 days",
}

var testLink = PaymentLink{PayeeID: "shop@upi", PayeeName: "Kerala Threads", Note: "Payment for order"}

func scenarioItems() []cart.Item {
	return []cart.Item{{
		LineID:     cart.LineID("p1", "M", ""),
		ProductID:  "p1",
		Price:      decimal.NewFromInt(1000),
		SalesPrice: decimal.NewNullDecimal(decimal.NewFromInt(800)),
		Size:       "M",
		Quantity:   2,
		MaxQty:     5,
	}}
}

func TestQuoteOnline(t *testing.T) {
	q, err := testFees.Quote(scenarioItems(), PaymentOnline)
	require.NoError(t, err)

	assert.Equal(t, "1600", q.Subtotal.String())
	assert.True(t, q.Shipping.IsZero())
	assert.Equal(t, "1600", q.Total.String())
	assert.Equal(t, "1600", q.Advance.String())
	assert.True(t, q.CODRemaining.IsZero())
	assert.Equal(t, testFees.OnlineDelivery, q.DeliveryMessage)
}

func TestQuoteCOD(t *testing.T) {
	q, err := testFees.Quote(scenarioItems(), PaymentCOD)
	require.NoError(t, err)

	assert.Equal(t, "100", q.Shipping.String())
	assert.Equal(t, "1700", q.Total.String())
	assert.Equal(t, "100", q.Advance.String())
	assert.Equal(t, "1600", q.CODRemaining.String())
	assert.Equal(t, "Delivery in 7 days", q.DeliveryMessage)
}

func TestQuoteCODAdvanceNeverExceedsTotal(t *testing.T) {
	fees := testFees
	fees.CODAdvance = decimal.NewFromInt(500)
	fees.CODSurcharge = decimal.Zero

	q, err := fees.Quote([]cart.Item{{Price: decimal.NewFromInt(300), Quantity: 1}}, PaymentCOD)
	require.NoError(t, err)
	assert.Equal(t, "300", q.Advance.String())
	assert.True(t, q.CODRemaining.IsZero())
}

func TestQuoteUnknownMethod(t *testing.T) {
	_, err := testFees.Quote(scenarioItems(), PaymentMethod("card"))
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)

	_, err = ParsePaymentMethod("card")
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)

	m, err := ParsePaymentMethod("cod")
	require.NoError(t, err)
	assert.Equal(t, PaymentCOD, m)
}

func TestPaymentLinkURL(t *testing.T) {
	got := testLink.URL(decimal.NewFromInt(1600))
	assert.Equal(t, "upi://pay?pa=shop%40upi&pn=Kerala%20Threads&am=1600.00&tn=Payment%20for%20order", got)
}

func TestPaymentLinkQR(t *testing.T) {
	png, err := testLink.QR(decimal.NewFromInt(100), 128)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestCustomerInfoValidate(t *testing.T) {
	err := CustomerInfo{CustomerName: "A", PhoneNumber: "98765", Address: "short", Pincode: "6820"}.Validate()

	var fields FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Equal(t, "Name must be at least 2 characters", fields["customerName"])
	assert.Equal(t, "Phone must be at least 10 digits", fields["phoneNumber"])
	assert.Equal(t, "Address must be at least 10 characters", fields["address"])
	assert.Equal(t, "District is required", fields["district"])
	assert.Equal(t, "State is required", fields["state"])
	assert.Equal(t, "Pincode must be 6 digits", fields["pincode"])

	assert.NoError(t, validCustomer().Validate())
}

func validCustomer() CustomerInfo {
	return CustomerInfo{
		CustomerName: "Asha Menon",
		PhoneNumber:  "9876543210",
		Address:      "12 Beach Road, Fort Kochi",
		District:     "Ernakulam",
		State:        "Kerala",
		Pincode:      "682001",
	}
}

type fakeOrders struct {
	err    error
	drafts []models.OrderDraft
}

func (f *fakeOrders) CreateOrder(_ context.Context, draft models.OrderDraft) (string, error) {
	f.drafts = append(f.drafts, draft)
	if f.err != nil {
		return "", f.err
	}
	return "order-abc123", nil
}

func setupFlow(t *testing.T, orders OrderClient) (*Flow, cart.Storage, *PendingStore) {
	dir, err := devicestate.Open(t.TempDir())
	require.NoError(t, err)

	carts := cart.NewFileStorage(dir)
	pending := NewPendingStore(dir)
	_, err = carts.Update(context.Background(), cart.Key, func(c *cart.Cart) error {
		c.Items = scenarioItems()
		return nil
	})
	require.NoError(t, err)

	return NewFlow(carts, pending, testFees, testLink, orders), carts, pending
}

func TestFlowHappyPath(t *testing.T) {
	orders := &fakeOrders{}
	flow, carts, pending := setupFlow(t, orders)
	ctx := context.Background()

	require.NoError(t, flow.Resume())
	assert.Equal(t, StateInformation, flow.State())

	staged, err := flow.Proceed(ctx, validCustomer(), PaymentCOD)
	require.NoError(t, err)
	assert.Equal(t, StatePayment, flow.State())
	assert.Contains(t, staged.UPILink, "am=100.00")
	assert.NotEmpty(t, staged.IdempotencyKey)

	_, err = flow.Submit(ctx, "   ")
	assert.ErrorIs(t, err, ErrTransactionRequired)

	id, err := flow.Submit(ctx, "UPI-778899")
	require.NoError(t, err)
	assert.Equal(t, "order-abc123", id)
	assert.Equal(t, StateConfirmed, flow.State())

	require.Len(t, orders.drafts, 1)
	draft := orders.drafts[0]
	assert.True(t, draft.PaymentStatus)
	assert.Equal(t, "cod", draft.PaymentMode)
	assert.Equal(t, "1700", draft.TotalAmount.String())
	assert.Equal(t, "1600", draft.CODRemaining.String())
	assert.Equal(t, staged.IdempotencyKey, draft.IdempotencyKey)
	assert.Equal(t, []models.OrderDraftItem{{Product: "p1", Quantity: 2, Size: "M"}}, draft.Products)
	assert.Empty(t, draft.MissingFields())

	c, err := carts.Load(ctx, cart.Key)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	_, err = pending.Load()
	assert.ErrorIs(t, err, ErrNoPendingOrder)
}

func TestFlowFailureKeepsStagedOrder(t *testing.T) {
	orders := &fakeOrders{err: errors.New("connection refused")}
	flow, _, pending := setupFlow(t, orders)
	ctx := context.Background()

	_, err := flow.Proceed(ctx, validCustomer(), PaymentOnline)
	require.NoError(t, err)

	_, err = flow.Submit(ctx, "TXN1")
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.Equal(t, StatePayment, flow.State())

	staged, err := pending.Load()
	require.NoError(t, err)
	assert.Equal(t, "1600", staged.Quote.Total.String())

	orders.err = nil
	_, err = flow.Submit(ctx, "TXN1")
	require.NoError(t, err)
	require.Len(t, orders.drafts, 2)
	assert.Equal(t, orders.drafts[0].IdempotencyKey, orders.drafts[1].IdempotencyKey, "retries reuse the key")
}

func TestFlowResumeAndTransitions(t *testing.T) {
	flow, _, _ := setupFlow(t, &fakeOrders{})
	ctx := context.Background()

	_, err := flow.Submit(ctx, "TXN")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = flow.Proceed(ctx, CustomerInfo{}, PaymentOnline)
	var fields FieldErrors
	assert.True(t, errors.As(err, &fields))

	_, err = flow.Proceed(ctx, validCustomer(), PaymentOnline)
	require.NoError(t, err)
	require.NoError(t, flow.Back())
	assert.Equal(t, StateInformation, flow.State())
	assert.ErrorIs(t, flow.Back(), ErrInvalidTransition)

	_, err = flow.Proceed(ctx, validCustomer(), PaymentOnline)
	require.NoError(t, err)

	resumed := NewFlow(flow.carts, flow.pending, testFees, testLink, &fakeOrders{})
	require.NoError(t, resumed.Resume())
	assert.Equal(t, StatePayment, resumed.State())
	assert.Equal(t, flow.Staged().IdempotencyKey, resumed.Staged().IdempotencyKey)
}

func TestFlowRejectsEmptyCart(t *testing.T) {
	flow, carts, _ := setupFlow(t, &fakeOrders{})
	require.NoError(t, carts.Delete(context.Background(), cart.Key))

	_, err := flow.Proceed(context.Background(), validCustomer(), PaymentOnline)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestClientCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/create-order":
			var draft models.OrderDraft
			require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
			if draft.CustomerName == "" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"success":false,"message":"Missing required fields"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"orderId":"ord-1"}`))
		case "/api/product/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Product not found"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", 0)
	ctx := context.Background()

	id, err := client.CreateOrder(ctx, models.OrderDraft{CustomerName: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", id)

	_, err = client.CreateOrder(ctx, models.OrderDraft{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Missing required fields", apiErr.Message)

	_, err = client.GetProduct(ctx, "missing")
	assert.True(t, IsNotFound(err))
}
