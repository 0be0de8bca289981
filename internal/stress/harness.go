// Package stress drives concurrent bulk inserts against the users table.
//
// A run is split into sequential batches of at most `concurrency` units.
// Units in a batch run in parallel; the next batch starts only after every
// unit of the previous one has returned. A failing unit never cancels its
// siblings and is simply counted.
package stress

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/dsqlctl/internal/logging"
	"github.com/dmitrijs2005/dsqlctl/internal/models"
)

var (
	ErrInvalidTotal       = errors.New("total units must not be negative")
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
)

// Inserter stores one user. *services.UserService satisfies it.
type Inserter interface {
	InsertUser(ctx context.Context, id uuid.UUID, name, email, role string) (*models.User, error)
}

// BatchReport summarizes a finished batch. From and To are 1-based and
// inclusive, matching what the CLI prints.
type BatchReport struct {
	Number    int
	From      int
	To        int
	Succeeded int
	Failed    int
}

// Harness runs stress workloads. It is safe to reuse across runs but not to
// run concurrently with itself.
type Harness struct {
	inserter Inserter
	logger   logging.Logger
	onBatch  func(ctx context.Context, r BatchReport) error
	newID    func() uuid.UUID
	now      func() time.Time
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used for batch and per-unit messages.
func WithLogger(l logging.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithBatchHook registers fn to run at each batch join point. A non-nil
// error stops the run before the next batch; the counts gathered so far are
// still returned.
func WithBatchHook(fn func(ctx context.Context, r BatchReport) error) Option {
	return func(h *Harness) { h.onBatch = fn }
}

func NewHarness(inserter Inserter, opts ...Option) *Harness {
	h := &Harness{
		inserter: inserter,
		logger:   logging.Nop(),
		newID:    uuid.New,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run inserts total synthetic users, concurrency at a time.
//
// The returned StressRun is valid even when err is non-nil: it holds what
// completed before the run stopped. Run stops early only when ctx is done or
// the batch hook returns an error; both are checked between batches.
func (h *Harness) Run(ctx context.Context, total, concurrency int) (models.StressRun, error) {
	var run models.StressRun
	if total < 0 {
		return run, ErrInvalidTotal
	}
	if concurrency < 1 {
		return run, ErrInvalidConcurrency
	}

	start := h.now()

	for from := 0; from < total; from += concurrency {
		if err := ctx.Err(); err != nil {
			run.Elapsed = h.now().Sub(start)
			return run, err
		}

		to := min(from+concurrency, total)
		report := h.runBatch(ctx, run.Batches+1, from, to, concurrency)

		run.Batches++
		run.Attempted += to - from
		run.Succeeded += report.Succeeded
		run.Failed += report.Failed

		h.logger.Info(ctx, "batch finished",
			"batch", report.Number, "from", report.From, "to", report.To,
			"succeeded", report.Succeeded, "failed", report.Failed)

		if h.onBatch != nil {
			if err := h.onBatch(ctx, report); err != nil {
				run.Elapsed = h.now().Sub(start)
				return run, fmt.Errorf("batch %d: %w", report.Number, err)
			}
		}
	}

	run.Elapsed = h.now().Sub(start)
	return run, nil
}

func (h *Harness) runBatch(ctx context.Context, number, from, to, concurrency int) BatchReport {
	h.logger.Debug(ctx, "batch started", "batch", number, "from", from+1, "to", to)

	var succeeded, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i := from; i < to; i++ {
		unit := NewUnit(i, h.newID())
		g.Go(func() error {
			if err := h.insert(ctx, unit); err != nil {
				failed.Add(1)
				h.logger.Debug(ctx, "insert failed", "unit", unit.Index+1, "name", unit.Name, "error", err)
				return nil
			}
			succeeded.Add(1)
			h.logger.Debug(ctx, "insert succeeded", "unit", unit.Index+1, "name", unit.Name, "id", unit.ID)
			return nil
		})
	}
	// Tasks never return errors; failures are counted above.
	_ = g.Wait()

	return BatchReport{
		Number:    number,
		From:      from + 1,
		To:        to,
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}
}

// insert runs one unit. A panic inside the inserter is turned into an error
// so the unit is counted as failed and the batch still joins.
func (h *Harness) insert(ctx context.Context, u Unit) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	_, err = h.inserter.InsertUser(ctx, u.ID, u.Name, u.Email, u.Role)
	return err
}
