package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/models"
	"golang.org/x/sync/errgroup"
)

type Notifier interface {
	Name() string
	Notify(ctx context.Context, order *models.Order) error
}

// Dispatcher sends an order to every configured channel concurrently.
type Dispatcher struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		logger:    logger.With().Str("component", "notify").Logger(),
	}
}

func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Notify returns the joined errors of every failing channel. A channel that
// fails does not stop the others.
func (d *Dispatcher) Notify(ctx context.Context, order *models.Order) error {
	_, err := d.NotifyPending(ctx, order, nil)
	return err
}

// NotifyPending sends to every channel not named in sent and reports the
// channels that accepted the order on this call.
func (d *Dispatcher) NotifyPending(ctx context.Context, order *models.Order, sent []string) ([]string, error) {
	var (
		g         errgroup.Group
		mu        sync.Mutex
		delivered []string
		errs      []error
	)

	for _, n := range d.notifiers {
		if slices.Contains(sent, n.Name()) {
			continue
		}
		g.Go(func() error {
			err := n.Notify(ctx, order)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.logger.Error().Err(err).Str("channel", n.Name()).Str("order_id", order.ID).
					Msg("notification channel failed")
				errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
				return nil
			}
			d.logger.Debug().Str("channel", n.Name()).Str("order_id", order.ID).Msg("notification sent")
			delivered = append(delivered, n.Name())
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(delivered)
	return delivered, errors.Join(errs...)
}
