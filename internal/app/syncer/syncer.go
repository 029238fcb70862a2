// Package syncer persists table snapshots in the background.
//
// Services hand over the settled snapshot of a table after every mutation.
// Submissions coalesce per table (the latest snapshot wins) and are written by
// a single worker goroutine. Failures are logged, counted and reported by
// Status; in-memory state is never rolled back.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/platform/metrics"
	clockport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

// DefaultWriteTimeout bounds a single table write.
const DefaultWriteTimeout = 15 * time.Second

// ErrClosed is returned when Close is called twice.
var ErrClosed = errors.New("syncer closed")

// TableStatus is the last known persistence outcome of a table.
type TableStatus struct {
	Pending     bool      `json:"pending"`
	Failing     bool      `json:"failing"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	LastErrorAt *time.Time `json:"lastErrorAt,omitempty"`
}

type Config struct {
	Store        tablestore.Store
	Clock        clockport.Clock
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	WriteTimeout time.Duration
}

type Syncer struct {
	store   tablestore.Store
	clk     clockport.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu      sync.Mutex
	pending map[tablestore.Table][]tablestore.Record
	status  map[tablestore.Table]TableStatus
	busy    bool
	idle    chan struct{} // closed while nothing is pending or being written
	closed  bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// New starts the background worker. Call Close to stop it.
func New(cfg Config) *Syncer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	idle := make(chan struct{})
	close(idle)
	s := &Syncer{
		store:   cfg.Store,
		clk:     cfg.Clock,
		logger:  cfg.Logger.With("component", "syncer"),
		metrics: cfg.Metrics,
		timeout: cfg.WriteTimeout,
		pending: make(map[tablestore.Table][]tablestore.Record),
		status:  make(map[tablestore.Table]TableStatus),
		idle:    idle,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Submit queues a snapshot of table, replacing any snapshot still waiting.
// It never blocks on storage.
func (s *Syncer) Submit(table tablestore.Table, records []tablestore.Record) {
	rs := tablestore.CloneRecords(records)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("submit after close dropped", slog.String("table", string(table)))
		return
	}
	s.pending[table] = rs
	if !s.busy {
		s.busy = true
		s.idle = make(chan struct{})
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Flush waits until every submitted snapshot has been written (or has failed).
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes what is still pending and stops the worker.
func (s *Syncer) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()
	close(s.quit)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the per-table persistence status.
func (s *Syncer) Status() map[tablestore.Table]TableStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[tablestore.Table]TableStatus, len(s.status)+len(s.pending))
	for t, st := range s.status {
		out[t] = st
	}
	for t := range s.pending {
		st := out[t]
		st.Pending = true
		out[t] = st
	}
	return out
}

func (s *Syncer) run() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.quit:
			s.drain()
			return
		}
	}
}

// drain writes pending tables until none are left, then marks the syncer idle.
func (s *Syncer) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			if s.busy {
				s.busy = false
				close(s.idle)
			}
			s.mu.Unlock()
			return
		}
		table := nextTable(s.pending)
		records := s.pending[table]
		delete(s.pending, table)
		s.mu.Unlock()

		s.write(table, records)
	}
}

func (s *Syncer) write(table tablestore.Table, records []tablestore.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := s.store.ReplaceAll(ctx, table, records)
	s.metrics.ObserveSync(string(table), err, time.Since(start))

	now := s.now()
	s.mu.Lock()
	st := s.status[table]
	if err != nil {
		st.Failing = true
		st.LastError = err.Error()
		st.LastErrorAt = &now
	} else {
		st.Failing = false
		st.LastSuccess = &now
	}
	s.status[table] = st
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("table sync failed",
			slog.String("table", string(table)),
			slog.Int("records", len(records)),
			slog.Any("err", err),
		)
		return
	}
	s.logger.Debug("table synced",
		slog.String("table", string(table)),
		slog.Int("records", len(records)),
	)
}

func (s *Syncer) now() time.Time {
	if s.clk == nil {
		return time.Now()
	}
	return s.clk.Now()
}

// nextTable picks the pending table with the lowest name.
func nextTable(pending map[tablestore.Table][]tablestore.Record) tablestore.Table {
	ts := make([]tablestore.Table, 0, len(pending))
	for t := range pending {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts[0]
}
