package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/models"
	"github.com/sony/gobreaker/v2"
)

type breakerNotifier struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// WithBreaker opens after three consecutive failures and probes again after
// cooldown. While open, Notify fails fast with gobreaker.ErrOpenState.
func WithBreaker(next Notifier, cooldown time.Duration, logger zerolog.Logger) Notifier {
	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("channel", name).Str("from", from.String()).Str("to", to.String()).
				Msg("notification breaker state changed")
		},
	}
	return &breakerNotifier{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (b *breakerNotifier) Name() string {
	return b.next.Name()
}

func (b *breakerNotifier) Notify(ctx context.Context, order *models.Order) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Notify(ctx, order)
	})
	return err
}
