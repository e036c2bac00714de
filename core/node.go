package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	coreerrors "monkeydao/core/errors"
	"monkeydao/core/events"
	"monkeydao/core/state"
	"monkeydao/crypto"
	"monkeydao/native/common"
	"monkeydao/native/deals"
	"monkeydao/native/pool"
	"monkeydao/native/staking"
	"monkeydao/observability/metrics"
	obsotel "monkeydao/observability/otel"
	"monkeydao/storage"
)

// Options configures a Node. Zero values fall back to the platform defaults.
type Options struct {
	Pool    *pool.Params
	Staking *staking.Params
	Deals   *deals.Params
	Pauses  common.PauseView
	Logger  *slog.Logger
	Metrics *metrics.ProgramMetrics
	Now     func() int64
}

// Node is the central controller. It applies one operation at a time against
// a fresh state overlay, commits the overlay on success and drops it on any
// error, so a rejected operation leaves no trace in storage or in the event
// stream.
type Node struct {
	db      storage.Database
	mu      sync.Mutex
	pool    pool.Params
	staking staking.Params
	deals   deals.Params
	pauses  common.PauseView
	logger  *slog.Logger
	metrics *metrics.ProgramMetrics
	nowFn   func() int64
	events  *events.Fanout
	mint    *crypto.Authority
}

// NewNode wires a node over db.
func NewNode(db storage.Database, opts Options) *Node {
	n := &Node{
		db:      db,
		pool:    pool.DefaultParams(),
		staking: staking.DefaultParams(),
		deals:   deals.DefaultParams(),
		pauses:  opts.Pauses,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		nowFn:   opts.Now,
		events:  &events.Fanout{},
		mint:    crypto.NewAuthority(crypto.SeedTokenAuthority),
	}
	if opts.Pool != nil {
		n.pool = *opts.Pool
	}
	if opts.Staking != nil {
		n.staking = *opts.Staking
	}
	if opts.Deals != nil {
		n.deals = *opts.Deals
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	if n.nowFn == nil {
		n.nowFn = func() int64 { return time.Now().Unix() }
	}
	if n.metrics != nil {
		n.events.Subscribe(n.metrics)
	}
	return n
}

// Subscribe registers an emitter that receives every committed event.
func (n *Node) Subscribe(sub events.Emitter) {
	n.events.Subscribe(sub)
}

// SetNowFunc overrides the node clock.
func (n *Node) SetNowFunc(now func() int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	n.nowFn = now
}

// apply runs fn as one atomic operation. The clock is read once so every
// engine in the operation agrees on now.
func (n *Node) apply(ctx context.Context, operation, module string, fn func(*session) error) error {
	ctx, span := obsotel.Tracer().Start(ctx, operation)
	defer span.End()

	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	err := common.Guard(n.pauses, module)
	var s *session
	if err == nil {
		s = n.newSession(state.NewManager(n.db), n.nowFn())
		err = fn(s)
		if err == nil {
			err = s.state.Commit()
		}
		if err != nil {
			s.state.Discard()
			s.buffer.Reset()
		}
	}
	if err != nil {
		kind := coreerrors.KindOf(err)
		code := coreerrors.CodeOf(err)
		elapsed := time.Since(start)
		n.metrics.ObserveOperation(operation, kind.String(), elapsed)
		obsotel.RecordOperation(ctx, operation, kind.String(), 0, elapsed)
		span.SetStatus(codes.Error, code)
		span.RecordError(err)
		n.logger.Info("operation rejected",
			slog.String("operation", operation),
			slog.String("kind", kind.String()),
			slog.String("code", code),
			slog.String("error", err.Error()))
		return err
	}
	committed := s.buffer.Len()
	span.SetAttributes(attribute.Int("events", committed))
	s.buffer.Flush(n.events)
	elapsed := time.Since(start)
	n.metrics.ObserveOperation(operation, "", elapsed)
	obsotel.RecordOperation(ctx, operation, "", committed, elapsed)
	n.logger.Debug("operation committed", slog.String("operation", operation))
	return nil
}

// view runs fn against committed state without writing anything.
func (n *Node) view(fn func(*session) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := n.newSession(state.NewManager(n.db), n.nowFn())
	defer s.state.Discard()
	return fn(s)
}
