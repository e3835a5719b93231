package ingest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rickgao/bankrates/internal/dedup"
	"github.com/rickgao/bankrates/internal/model"
	"github.com/rickgao/bankrates/internal/normalize"
	"github.com/rickgao/bankrates/internal/source"
	"github.com/rickgao/bankrates/internal/store"
)

// DefaultTimeout bounds a cycle when Config.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// Config holds orchestrator configuration.
type Config struct {
	Timeout     time.Duration // Cycle deadline (default: 30s)
	Concurrency int           // Max sources in flight (default: number of adapters)
}

// Refresher rebuilds a derived view after new quotes are written.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Orchestrator runs ingestion cycles over a fixed set of adapters.
type Orchestrator struct {
	cfg       Config
	adapters  []source.Adapter
	norm      *normalize.Normalizer
	rates     store.RateStore
	aggregate Refresher
	logger    *slog.Logger
}

// New creates an Orchestrator. aggregate may be nil.
func New(
	cfg Config,
	adapters []source.Adapter,
	norm *normalize.Normalizer,
	rates store.RateStore,
	aggregate Refresher,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = max(len(adapters), 1)
	}
	return &Orchestrator{
		cfg:       cfg,
		adapters:  adapters,
		norm:      norm,
		rates:     rates,
		aggregate: aggregate,
		logger:    logger,
	}
}

// Sources lists the sources this orchestrator ingests.
func (o *Orchestrator) Sources() []model.Source {
	out := make([]model.Source, len(o.adapters))
	for i, a := range o.adapters {
		out[i] = a.Source()
	}
	return out
}

// task carries one source's progress. written is updated as inserts commit so
// a task abandoned at the deadline still reports what it persisted.
type task struct {
	adapter source.Adapter
	written atomic.Int64
	start   time.Time
}

type result struct {
	idx     int
	outcome Outcome
}

// RunCycle runs one ingestion cycle. It never returns an error: every
// failure is recorded in the report.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{StartedAt: time.Now().UTC()}
	start := time.Now()

	cycleCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	tasks := make([]*task, len(o.adapters))
	// Buffered so tasks abandoned at the deadline never block on send.
	results := make(chan result, len(o.adapters))
	sem := make(chan struct{}, o.cfg.Concurrency)

	for i, a := range o.adapters {
		t := &task{adapter: a, start: time.Now()}
		tasks[i] = t

		go func(idx int) {
			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-cycleCtx.Done():
				return
			}

			results <- result{idx: idx, outcome: o.runSource(cycleCtx, t)}
		}(i)
	}

	outcomes := make([]Outcome, len(tasks))
	done := make([]bool, len(tasks))
	o.collect(cycleCtx, results, outcomes, done)

	for i, t := range tasks {
		if done[i] {
			continue
		}
		outcomes[i] = o.failed(cycleCtx, Outcome{
			Source:   t.adapter.Source(),
			Written:  int(t.written.Load()),
			Duration: time.Since(t.start),
		}, "fetch", cycleCtx.Err())
	}

	slices.SortStableFunc(outcomes, func(a, b Outcome) int {
		return cmp.Compare(a.Source, b.Source)
	})
	report.Outcomes = outcomes

	if report.TotalWritten() > 0 && o.aggregate != nil {
		// The cycle context may already be expired; refresh on the caller's.
		if err := o.aggregate.Refresh(ctx); err != nil {
			report.RefreshErr = err
			o.logger.Error("latest rates refresh failed", "error", err)
		}
	}

	report.Duration = time.Since(start)

	o.logger.Info("cycle complete",
		"sources", len(outcomes),
		"written", report.TotalWritten(),
		"unchanged", report.count(StatusUnchanged),
		"failed", report.count(StatusFailed),
		"duration", report.Duration,
	)

	return report
}

// collect gathers results until every task reports or ctx ends. Results
// already buffered when ctx ends are still taken.
func (o *Orchestrator) collect(ctx context.Context, results <-chan result, outcomes []Outcome, done []bool) {
	remaining := len(outcomes)
	take := func(r result) {
		outcomes[r.idx] = r.outcome
		done[r.idx] = true
		remaining--
	}

	for remaining > 0 {
		select {
		case r := <-results:
			take(r)
		case <-ctx.Done():
			for {
				select {
				case r := <-results:
					take(r)
				default:
					return
				}
			}
		}
	}
}

// runSource runs fetch, normalize, dedup and insert for one adapter.
func (o *Orchestrator) runSource(ctx context.Context, t *task) (out Outcome) {
	src := t.adapter.Source()
	out.Source = src

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			out = Outcome{Source: src, Status: StatusFailed, Reason: err.Error(), Err: err, Skipped: out.Skipped}
			o.logger.Error("source panicked", "source", src, "panic", r)
		}
		out.Written = int(t.written.Load())
		out.Duration = time.Since(t.start)
	}()

	raws, err := t.adapter.Fetch(ctx)
	if err != nil {
		return o.failed(ctx, out, "fetch", err)
	}

	for _, raw := range raws {
		q, ok, err := o.norm.Normalize(src, raw)
		if err != nil {
			o.logger.Debug("record skipped", "source", src, "token", raw.Token, "error", err)
			out.Skipped++
			continue
		}
		if !ok {
			out.Skipped++
			continue
		}

		last, err := o.rates.Latest(ctx, q.Source, q.Currency)
		if err != nil {
			return o.failed(ctx, out, "store", err)
		}
		if !dedup.ShouldPersist(q, last) {
			continue
		}
		if err := o.rates.Insert(ctx, q); err != nil {
			return o.failed(ctx, out, "store", err)
		}
		t.written.Add(1)
	}

	out.Status = StatusUnchanged
	if t.written.Load() > 0 {
		out.Status = StatusWritten
	}
	return out
}

// failed marks out as failed. An expired cycle context takes precedence over
// the stage error, since that error is usually its consequence.
func (o *Orchestrator) failed(ctx context.Context, out Outcome, stage string, err error) Outcome {
	out.Status = StatusFailed
	out.Err = err

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Reason = "timeout"
	case ctx.Err() != nil:
		out.Reason = "canceled"
	default:
		out.Reason = stage + ": " + err.Error()
	}

	o.logger.Warn("source failed",
		"source", out.Source,
		"reason", out.Reason,
		"error", err,
	)
	return out
}
