// Package tiered fans customer upserts out to a primary record store and a
// mirror store. The primary is the source of truth; the mirror keeps a copy
// (for example a Postgres table next to the spreadsheet) either synchronously
// or through a background queue.
package tiered

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

var (
	// ErrQueueFull is reported to the AsyncErrorHandler when a mirror write is dropped.
	ErrQueueFull = errors.New("tiered: mirror queue is full")

	// ErrClosed is reported to the AsyncErrorHandler for mirror writes after Close.
	ErrClosed = errors.New("tiered: mirror is closed")
)

// Upserter writes one customer record. *sheetsync.Engine satisfies it.
type Upserter interface {
	UpsertCustomer(ctx context.Context, rec sheetsync.CustomerRecord) (sheetsync.Action, error)
}

// Config configures the tiered upserter
type Config struct {
	// Primary is the source of truth, usually the spreadsheet engine
	Primary Upserter

	// Mirror receives a copy of every record written to Primary
	Mirror Upserter

	// AsyncMirror queues mirror writes instead of running them alongside the
	// primary write. If false, a mirror failure fails the whole upsert.
	AsyncMirror bool

	// SyncBufferSize is the size of the buffered channel for async operations.
	// Default: 1000
	SyncBufferSize int

	// AsyncErrorHandler is called when an async mirror write fails or is dropped.
	AsyncErrorHandler func(error)
}

// Storage coordinates the primary and mirror upserters.
type Storage struct {
	primary Upserter
	mirror  Upserter
	conf    Config

	syncQueue chan func() error
	shutdown  chan struct{}
	wg        sync.WaitGroup

	// mu orders enqueues before the shutdown drain
	mu     sync.RWMutex
	closed bool
}

// New creates a new tiered upserter.
func New(config Config) (*Storage, error) {
	if config.Primary == nil || config.Mirror == nil {
		return nil, errors.New("tiered storage: both primary and mirror are required")
	}

	if config.SyncBufferSize <= 0 {
		config.SyncBufferSize = 1000
	}

	s := &Storage{
		primary:  config.Primary,
		mirror:   config.Mirror,
		conf:     config,
		shutdown: make(chan struct{}),
	}

	if config.AsyncMirror {
		s.syncQueue = make(chan func() error, config.SyncBufferSize)
		s.startWorker()
	}

	return s, nil
}

// Close stops the async worker after draining queued mirror writes.
func (s *Storage) Close() error {
	if !s.conf.AsyncMirror {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.shutdown)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// startWorker processes mirror writes sequentially so updates for the same
// customer reach the mirror in delivery order.
func (s *Storage) startWorker() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case job := <-s.syncQueue:
				s.run(job)
			case <-s.shutdown:
				for {
					select {
					case job := <-s.syncQueue:
						s.run(job)
					default:
						return
					}
				}
			}
		}
	}()
}

func (s *Storage) run(job func() error) {
	if err := job(); err != nil {
		s.reportAsync(fmt.Errorf("tiered sync failed: %w", err))
	}
}

func (s *Storage) reportAsync(err error) {
	if s.conf.AsyncErrorHandler != nil {
		s.conf.AsyncErrorHandler(err)
	}
}

// UpsertCustomer writes rec to the primary and mirrors it. The returned
// action always comes from the primary.
func (s *Storage) UpsertCustomer(ctx context.Context, rec sheetsync.CustomerRecord) (sheetsync.Action, error) {
	if s.conf.AsyncMirror {
		return s.upsertAsync(ctx, rec)
	}

	var (
		action     sheetsync.Action
		primaryErr error
		g          errgroup.Group
	)
	g.Go(func() error {
		action, primaryErr = s.primary.UpsertCustomer(ctx, rec)
		return nil
	})
	g.Go(func() error {
		if _, err := s.mirror.UpsertCustomer(ctx, rec); err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
		return nil
	})
	mirrorErr := g.Wait()
	if primaryErr != nil {
		return "", primaryErr
	}
	if mirrorErr != nil {
		return "", mirrorErr
	}
	return action, nil
}

func (s *Storage) upsertAsync(ctx context.Context, rec sheetsync.CustomerRecord) (sheetsync.Action, error) {
	action, err := s.primary.UpsertCustomer(ctx, rec)
	if err != nil {
		return "", err
	}

	// The job outlives the request
	jobCtx := context.WithoutCancel(ctx)
	job := func() error {
		_, err := s.mirror.UpsertCustomer(jobCtx, rec)
		if err != nil {
			return fmt.Errorf("customer %s: %w", rec.CustomerID, err)
		}
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.reportAsync(fmt.Errorf("%w: customer %s", ErrClosed, rec.CustomerID))
		return action, nil
	}

	select {
	case s.syncQueue <- job:
	default:
		s.reportAsync(fmt.Errorf("%w: customer %s", ErrQueueFull, rec.CustomerID))
	}
	return action, nil
}
