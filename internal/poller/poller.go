package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/bankrates/internal/ingest"
)

// CycleRunner runs one ingestion cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) ingest.CycleReport
}

// CycleRunnerFunc is a function adapter for CycleRunner.
type CycleRunnerFunc func(context.Context) ingest.CycleReport

func (f CycleRunnerFunc) RunCycle(ctx context.Context) ingest.CycleReport {
	return f(ctx)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Cycle interval (default: 15m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 15 * time.Minute,
	}
}

// Poller periodically runs ingestion cycles.
type Poller struct {
	cfg    Config
	runner CycleRunner
	logger *slog.Logger

	// runMu serializes cycles between the loop and RunOnce.
	runMu  sync.Mutex
	last   atomic.Pointer[ingest.CycleReport]
	cycles atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, runner CycleRunner, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Poller{
		cfg:    cfg,
		runner: runner,
		logger: logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("ingest poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("ingest poller stopped", "cycles", p.cycles.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs a single cycle outside the loop. It waits for any cycle
// already in progress.
func (p *Poller) RunOnce(ctx context.Context) ingest.CycleReport {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	report := p.runner.RunCycle(ctx)
	p.last.Store(&report)
	p.cycles.Add(1)
	return report
}

// LastReport returns the most recent cycle report, if any cycle has run.
func (p *Poller) LastReport() (ingest.CycleReport, bool) {
	r := p.last.Load()
	if r == nil {
		return ingest.CycleReport{}, false
	}
	return *r, true
}

// Cycles returns the number of completed cycles.
func (p *Poller) Cycles() int64 {
	return p.cycles.Load()
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.RunOnce(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(p.ctx)
		}
	}
}
