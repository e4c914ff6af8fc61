package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() *models.Order {
	return &models.Order{
		ID:            "6f1c2a9e-0000-4000-8000-00000abc123f",
		Reference:     "BC123F",
		CustomerName:  "Asha Menon",
		PhoneNumber:   "9876543210",
		InstagramID:   "@asha",
		Address:       "12 Beach Road",
		Landmark:      "St. Francis Church",
		District:      "Ernakulam",
		State:         "Kerala",
		Pincode:       "682001",
		PaymentMode:   models.PaymentModeCOD,
		TotalAmount:   decimal.NewFromInt(1700),
		AdvanceAmount: decimal.NewFromInt(100),
		CODRemaining:  decimal.NewFromInt(1600),
		TransactionID: "UPI-1",
		OrderStatus:   models.OrderStatusPending,
		Products: []models.OrderItem{
			{
				ProductID: "p1",
				Quantity:  2,
				Size:      "M",
				Product: &models.OrderProduct{
					ID:         "p1",
					Name:       "Cotton Kurta",
					Price:      decimal.NewFromInt(1000),
					SalesPrice: decimal.NewNullDecimal(decimal.NewFromInt(800)),
				},
			},
			{ProductID: "gone", Quantity: 1},
		},
	}
}

func TestFormatOrder(t *testing.T) {
	msg := FormatOrder(testOrder())

	assert.Contains(t, msg, "New order #BC123F")
	assert.Contains(t, msg, "Instagram: @asha")
	assert.Contains(t, msg, "Address: 12 Beach Road (near St. Francis Church), Ernakulam, Kerala - 682001")
	assert.Contains(t, msg, "- Cotton Kurta (Qty: 2, Size: M)")
	assert.Contains(t, msg, "- gone (Qty: 1)")
	assert.Contains(t, msg, "Payment: COD")
	assert.Contains(t, msg, "COD remaining: ₹1600.00")
	assert.NotContains(t, msg, "Alternate phone")
}

func TestWhatsAppLink(t *testing.T) {
	text := WhatsAppText(testOrder())
	assert.Contains(t, text, "my order #BC123F")
	assert.Contains(t, text, "Cotton Kurta (Qty: 2, Size: M) - ₹1600.00")
	assert.Contains(t, text, "Order Status: pending")

	link := WhatsAppLink("+91 98765-43210", "Hi there")
	assert.Equal(t, "https://wa.me/919876543210?text=Hi%20there", link)
}

func TestTelegramNotifier(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier(srv.URL+"/", "tok123", "-100200", srv.Client())
	require.NoError(t, n.Notify(context.Background(), testOrder()))

	assert.Equal(t, "/bottok123/sendMessage", path)
	assert.Equal(t, "-100200", got["chat_id"])
	assert.Contains(t, got["text"], "#BC123F")
}

func TestWebhookNotifierReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, srv.Client()).Notify(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w)

	require.NoError(t, n.Notify(context.Background(), testOrder()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, testOrder().ID, string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)

	var decoded models.Order
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "Asha Menon", decoded.CustomerName)
}

func TestNewKafkaWriterBoundsWrites(t *testing.T) {
	w := NewKafkaWriter("orders", 2*time.Second, "localhost:9092")
	defer w.Close()

	assert.Equal(t, 2*time.Second, w.WriteTimeout)
	assert.Equal(t, kafkaMaxAttempts, w.MaxAttempts)
	assert.Equal(t, 1, w.BatchSize)
	assert.Less(t, w.BatchTimeout, 100*time.Millisecond)
}

type funcNotifier struct {
	name  string
	calls int
	mu    sync.Mutex
	err   error
}

func (f *funcNotifier) Name() string {
	return f.name
}

func (f *funcNotifier) Notify(context.Context, *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func TestDispatcherJoinsFailures(t *testing.T) {
	ok := &funcNotifier{name: "ok"}
	bad := &funcNotifier{name: "bad", err: errors.New("boom")}
	d := NewDispatcher(zerolog.Nop(), ok, bad)

	err := d.Notify(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)

	assert.NoError(t, NewDispatcher(zerolog.Nop()).Notify(context.Background(), testOrder()))
}

func TestDispatcherNotifyPendingSkipsSentChannels(t *testing.T) {
	telegram := &funcNotifier{name: "telegram"}
	webhook := &funcNotifier{name: "webhook", err: errors.New("502")}
	kafkaN := &funcNotifier{name: "kafka"}
	d := NewDispatcher(zerolog.Nop(), telegram, webhook, kafkaN)

	delivered, err := d.NotifyPending(context.Background(), testOrder(), []string{"telegram"})
	require.Error(t, err)
	assert.Equal(t, []string{"kafka"}, delivered)
	assert.Equal(t, 0, telegram.calls)
	assert.Equal(t, 1, webhook.calls)
	assert.Equal(t, 1, kafkaN.calls)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	bad := &funcNotifier{name: "bad", err: errors.New("down")}
	n := WithBreaker(bad, time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		assert.Error(t, n.Notify(context.Background(), testOrder()))
	}
	err := n.Notify(context.Background(), testOrder())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, bad.calls, "open breaker does not call through")
	assert.Equal(t, "bad", n.Name())
}

type fakeOutbox struct {
	mu       sync.Mutex
	pending  []*models.Order
	channels map[string][]string
	sent     []string
	failed   []string
	requeue  bool
}

func (f *fakeOutbox) DeliverNotification(_ context.Context, orderID string, send func(*models.Order, []string) ([]string, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.pending {
		if o.ID == orderID {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return f.record(o, send)
		}
	}
	return database.ErrNoNotification
}

func (f *fakeOutbox) DeliverNextNotification(_ context.Context, send func(*models.Order, []string) ([]string, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return database.ErrNoNotification
	}
	o := f.pending[0]
	f.pending = f.pending[1:]
	return f.record(o, send)
}

func (f *fakeOutbox) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *fakeOutbox) record(o *models.Order, send func(*models.Order, []string) ([]string, error)) error {
	if f.channels == nil {
		f.channels = map[string][]string{}
	}
	delivered, err := send(o, f.channels[o.ID])
	f.channels[o.ID] = append(f.channels[o.ID], delivered...)
	if err != nil {
		f.failed = append(f.failed, o.ID)
		if f.requeue {
			f.pending = append(f.pending, o)
		}
		return err
	}
	f.sent = append(f.sent, o.ID)
	return nil
}

func TestRelayDrainRespectsBatch(t *testing.T) {
	outbox := &fakeOutbox{pending: []*models.Order{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	relay := NewRelay(outbox, NewDispatcher(zerolog.Nop(), &funcNotifier{name: "ok"}), time.Second, 2, time.Second, zerolog.Nop())

	assert.Equal(t, 2, relay.Drain(context.Background()))
	assert.Equal(t, []string{"a", "b"}, outbox.sent)
	assert.Equal(t, 1, relay.Drain(context.Background()))
	assert.Equal(t, 0, relay.Drain(context.Background()))
}

func TestRelayDeliverOrderSwallowsFailure(t *testing.T) {
	outbox := &fakeOutbox{pending: []*models.Order{{ID: "a"}}}
	bad := &funcNotifier{name: "bad", err: errors.New("down")}
	relay := NewRelay(outbox, NewDispatcher(zerolog.Nop(), bad), time.Second, 5, time.Second, zerolog.Nop())

	relay.DeliverOrder(context.Background(), "a")
	relay.DeliverOrder(context.Background(), "missing")
	assert.Equal(t, []string{"a"}, outbox.failed)
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	outbox := &fakeOutbox{pending: []*models.Order{{ID: "a"}}}
	relay := NewRelay(outbox, NewDispatcher(zerolog.Nop()), 10*time.Millisecond, 5, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return outbox.remaining() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelayRetrySendsOnlyToFailedChannels(t *testing.T) {
	outbox := &fakeOutbox{pending: []*models.Order{{ID: "a"}}, requeue: true}
	telegram := &funcNotifier{name: "telegram"}
	webhook := &funcNotifier{name: "webhook", err: errors.New("502")}
	relay := NewRelay(outbox, NewDispatcher(zerolog.Nop(), telegram, webhook), time.Second, 1, time.Second, zerolog.Nop())

	relay.DeliverOrder(context.Background(), "a")
	relay.Drain(context.Background())
	assert.Equal(t, 1, telegram.calls, "telegram already accepted the order")
	assert.Equal(t, 2, webhook.calls)

	webhook.mu.Lock()
	webhook.err = nil
	webhook.mu.Unlock()
	relay.Drain(context.Background())
	assert.Equal(t, 1, telegram.calls)
	assert.Equal(t, 3, webhook.calls)
	assert.Equal(t, []string{"a"}, outbox.sent)
	assert.ElementsMatch(t, []string{"telegram", "webhook"}, outbox.channels["a"])
}

type blockingNotifier struct{}

func (blockingNotifier) Name() string {
	return "blocking"
}

func (blockingNotifier) Notify(ctx context.Context, _ *models.Order) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRelayBoundsEachDispatch(t *testing.T) {
	outbox := &fakeOutbox{pending: []*models.Order{{ID: "a"}}}
	relay := NewRelay(outbox, NewDispatcher(zerolog.Nop(), blockingNotifier{}), time.Second, 1, 20*time.Millisecond, zerolog.Nop())

	start := time.Now()
	relay.DeliverOrder(context.Background(), "a")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"a"}, outbox.failed)
}
