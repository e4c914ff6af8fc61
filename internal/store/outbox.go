package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/lib/pq"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

const (
	MaxNotificationAttempts = 5
	notificationBackoff     = 30 * time.Second
)

type outboxEntry struct {
	id       int64
	orderID  string
	attempts int
	sent     []string
}

// DeliverNotification sends the pending notification for one order. It
// returns ErrNoNotification when the entry was already sent or is held by
// another worker.
func (s *Store) DeliverNotification(ctx context.Context, orderID string, send func(*models.Order, []string) ([]string, error)) error {
	return s.deliver(ctx, send,
		`SELECT id, order_id, attempts, sent_channels
		 FROM order_outbox
		 WHERE order_id = $1 AND status = 'pending'
		 ORDER BY id
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`,
		orderID)
}

// DeliverNextNotification sends the oldest due notification.
func (s *Store) DeliverNextNotification(ctx context.Context, send func(*models.Order, []string) ([]string, error)) error {
	return s.deliver(ctx, send,
		`SELECT id, order_id, attempts, sent_channels
		 FROM order_outbox
		 WHERE status = 'pending' AND next_attempt_at <= NOW()
		 ORDER BY next_attempt_at, id
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`)
}

// deliver claims one outbox row, loads its order and calls send while the
// row lock is held. Channels that accept the order are remembered on the row
// so a retry only goes to the ones that failed. A failed attempt, including
// one where the order could not be loaded, is recorded and returned.
func (s *Store) deliver(ctx context.Context, send func(*models.Order, []string) ([]string, error), claim string, args ...any) error {
	var (
		entry   outboxEntry
		sendErr error
		loadErr error
	)

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, claim, args...).
			Scan(&entry.id, &entry.orderID, &entry.attempts, pq.Array(&entry.sent))
		if err != nil {
			if database.IsNoRows(err) {
				return database.ErrNoNotification
			}
			return fmt.Errorf("claim notification: %w", err)
		}

		order, err := getOrder(ctx, tx, entry.orderID)
		if err != nil {
			loadErr = fmt.Errorf("load order: %w", err)
			return loadErr
		}

		delivered, err := send(order, entry.sent)
		sent := mergeChannels(entry.sent, delivered)
		if err == nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE order_outbox
				 SET status = 'sent', attempts = attempts + 1, sent_at = NOW(), last_error = '', sent_channels = $1
				 WHERE id = $2`,
				pq.Array(sent), entry.id)
			if err != nil {
				return fmt.Errorf("mark notification sent: %w", err)
			}
			return nil
		}

		sendErr = err
		return s.recordFailure(ctx, tx, entry, sent, sendErr)
	})

	if loadErr != nil {
		// The claim was rolled back with the failed load, so record the
		// attempt outside it.
		if err := s.recordFailure(ctx, s.db, entry, mergeChannels(entry.sent, nil), loadErr); err != nil {
			return fmt.Errorf("%w (record failure: %v)", loadErr, err)
		}
		return loadErr
	}
	if err != nil {
		return err
	}

	return sendErr
}

// recordFailure counts one attempt against the entry and schedules the next
// one, or marks the entry failed once attempts run out. The update only
// applies if no other worker recorded an attempt in between.
func (s *Store) recordFailure(ctx context.Context, q querier, entry outboxEntry, sent []string, cause error) error {
	attempts := entry.attempts + 1
	status := "pending"
	if attempts >= MaxNotificationAttempts {
		status = "failed"
	}

	_, err := q.ExecContext(ctx,
		`UPDATE order_outbox
		 SET status = $1, attempts = $2, last_error = $3, sent_channels = $4,
		     next_attempt_at = NOW() + $5 * INTERVAL '1 second'
		 WHERE id = $6 AND status = 'pending' AND attempts = $7`,
		status, attempts, cause.Error(), pq.Array(sent), backoffSeconds(attempts), entry.id, entry.attempts)
	if err != nil {
		return fmt.Errorf("record notification failure: %w", err)
	}

	s.logger.Warn().Err(cause).Str("order_id", entry.orderID).Int("attempts", attempts).
		Str("status", status).Strs("sent_channels", sent).Msg("order notification failed")
	return nil
}

func mergeChannels(sent, delivered []string) []string {
	out := append([]string{}, sent...)
	for _, name := range delivered {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func backoffSeconds(attempts int) float64 {
	return (notificationBackoff * time.Duration(1<<(attempts-1))).Seconds()
}
