package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

// Outbox hands out pending order notifications one at a time. send receives
// the channels that already accepted the order and returns the ones that
// accepted it on this attempt.
type Outbox interface {
	DeliverNotification(ctx context.Context, orderID string, send func(*models.Order, []string) ([]string, error)) error
	DeliverNextNotification(ctx context.Context, send func(*models.Order, []string) ([]string, error)) error
}

const defaultSendTimeout = 5 * time.Second

// Relay delivers outbox entries through the dispatcher, both right after an
// order is placed and on a retry tick.
type Relay struct {
	outbox     Outbox
	dispatcher *Dispatcher
	interval   time.Duration
	batchSize  int
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewRelay builds a relay that bounds every dispatch by timeout.
func NewRelay(outbox Outbox, dispatcher *Dispatcher, interval time.Duration, batchSize int, timeout time.Duration, logger zerolog.Logger) *Relay {
	if batchSize < 1 {
		batchSize = 1
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Relay{
		outbox:     outbox,
		dispatcher: dispatcher,
		interval:   interval,
		batchSize:  batchSize,
		timeout:    timeout,
		logger:     logger.With().Str("component", "relay").Logger(),
	}
}

// DeliverOrder sends the notification for a just-created order. Failures are
// logged and left for the retry loop.
func (r *Relay) DeliverOrder(ctx context.Context, orderID string) {
	err := r.outbox.DeliverNotification(ctx, orderID, r.sender(ctx))
	if err != nil && !errors.Is(err, database.ErrNoNotification) {
		r.logger.Warn().Err(err).Str("order_id", orderID).Msg("order notification deferred")
	}
}

// Drain delivers up to one batch of due entries and reports how many were
// attempted.
func (r *Relay) Drain(ctx context.Context) int {
	attempted := 0
	for attempted < r.batchSize {
		err := r.outbox.DeliverNextNotification(ctx, r.sender(ctx))
		if errors.Is(err, database.ErrNoNotification) {
			break
		}
		attempted++
		if err != nil {
			r.logger.Warn().Err(err).Msg("outbox delivery failed")
			if ctx.Err() != nil {
				break
			}
		}
	}
	return attempted
}

func (r *Relay) sender(ctx context.Context) func(*models.Order, []string) ([]string, error) {
	return func(order *models.Order, sent []string) ([]string, error) {
		sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.dispatcher.NotifyPending(sendCtx, order, sent)
	}
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("outbox relay started")
	for {
		select {
		case <-ticker.C:
			if n := r.Drain(ctx); n > 0 {
				r.logger.Info().Int("attempted", n).Msg("outbox batch processed")
			}
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay stopped")
			return
		}
	}
}
