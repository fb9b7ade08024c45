package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// orderSequencePrefix namespaces OrderPlaced counters in event_sequences so
// other event types can keep their own per-user counters in the same table.
const orderSequencePrefix = "order-placed:"

// The upsert is a single statement, so concurrent checkouts for one user
// serialize on the row lock and never observe the same value.
const nextOrderSequenceSQL = `
INSERT INTO event_sequences (partition_key, last_sequence, updated_at)
VALUES ($1, 1, now())
ON CONFLICT (partition_key)
DO UPDATE SET last_sequence = event_sequences.last_sequence + 1, updated_at = now()
RETURNING last_sequence`

var errNoOrderUser = errors.New("order sequence needs a user id")

// OrderSequences numbers a user's OrderPlaced events from 1 so consumers
// can spot gaps and reordering within that user's partition.
type OrderSequences interface {
	NextOrderSequence(ctx context.Context, userID string) (int64, error)
}

type OrderSequenceStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderSequenceStore(db *sql.DB, logger *zap.Logger) *OrderSequenceStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderSequenceStore{db: db, logger: logger.With(zap.String("component", "order_sequences"))}
}

func orderSequenceKey(userID string) string {
	return orderSequencePrefix + userID
}

func (s *OrderSequenceStore) NextOrderSequence(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errNoOrderUser
	}

	var next int64
	if err := s.db.QueryRowContext(ctx, nextOrderSequenceSQL, orderSequenceKey(userID)).Scan(&next); err != nil {
		s.logger.Warn("advance order sequence", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("advance order sequence for %s: %w", userID, err)
	}

	s.logger.Debug("advanced order sequence", zap.String("user_id", userID), zap.Int64("sequence", next))
	return next, nil
}
