package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

// OutboxStore is the outbox surface the relay drains.
type OutboxStore interface {
	PendingOutbox(ctx context.Context, limit int) ([]admission.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
}

// Relay moves pending outbox events to a Publisher.
type Relay struct {
	store     OutboxStore
	publisher Publisher
	logger    *zap.Logger
	clock     func() time.Time
	batchSize int

	// drainMu keeps one drain at a time so an event is not published twice
	// by overlapping drains of the same process.
	drainMu sync.Mutex
	wake    chan struct{}
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithRelayLogger sets the relay logger.
func WithRelayLogger(logger *zap.Logger) RelayOption {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRelayClock overrides the publication timestamp source.
func WithRelayClock(clock func() time.Time) RelayOption {
	return func(r *Relay) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithBatchSize bounds how many events one store read returns.
func WithBatchSize(size int) RelayOption {
	return func(r *Relay) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// NewRelay builds a Relay.
func NewRelay(store OutboxStore, publisher Publisher, opts ...RelayOption) (*Relay, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	r := &Relay{
		store:     store,
		publisher: publisher,
		logger:    zap.NewNop(),
		clock:     time.Now,
		batchSize: defaultBatchSize,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Notify asks Run to drain soon. It never blocks.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Drain publishes pending events oldest first until the outbox is empty and
// returns how many were published. It stops at the first publish failure,
// leaving that event and the rest pending for the next drain.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	r.drainMu.Lock()
	defer r.drainMu.Unlock()

	published := 0
	for {
		pending, err := r.store.PendingOutbox(ctx, r.batchSize)
		if err != nil {
			return published, fmt.Errorf("read outbox: %w", err)
		}
		for _, event := range pending {
			if err := r.publisher.Publish(ctx, event); err != nil {
				return published, err
			}
			if err := r.store.MarkPublished(ctx, event.ID, r.clock().UTC()); err != nil {
				return published, fmt.Errorf("mark event %s published: %w", event.ID, err)
			}
			published++
		}
		if len(pending) < r.batchSize {
			return published, nil
		}
	}
}

// Run drains the outbox every time Notify is called until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.wake:
			n, err := r.Drain(ctx)
			if err != nil && ctx.Err() == nil {
				r.logger.Warn("outbox drain failed", zap.Int("published", n), zap.Error(err))
				continue
			}
			if n > 0 {
				r.logger.Debug("outbox drained", zap.Int("published", n))
			}
		}
	}
}

var _ admission.Notifier = (*Relay)(nil)
