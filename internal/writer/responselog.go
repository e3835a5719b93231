package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/bankrates/internal/model"
)

// ResponseLogWriter batches ResponseLog entries into the response_logs table.
type ResponseLogWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from HTTP middleware
	input *Queue[model.ResponseLog]

	// Database; nil counts and discards
	db *pgxpool.Pool

	// Flushes are serialized so rows land in arrival order.
	flushMu     sync.Mutex
	flushTicker *time.Ticker
	wake        chan struct{}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metricsMu sync.Mutex
	metrics   WriterMetrics
}

// NewResponseLogWriter creates a new ResponseLogWriter.
func NewResponseLogWriter(cfg WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *ResponseLogWriter {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &ResponseLogWriter{
		cfg:    cfg,
		logger: logger,
		input:  NewQueue[model.ResponseLog](cfg.BatchSize, cfg.QueueLimit),
		db:     db,
		wake:   make(chan struct{}, 1),
		ctx:    context.Background(),
	}
}

// truncatePath cuts p to at most max bytes without splitting a UTF-8 sequence.
func truncatePath(p string, max int) string {
	if len(p) <= max {
		return p
	}
	n := max
	for n > 0 && !utf8.RuneStart(p[n]) {
		n--
	}
	return p[:n]
}

// Record queues entry without blocking. It returns false when the entry was
// dropped because the queue is full or the writer has stopped.
func (w *ResponseLogWriter) Record(entry model.ResponseLog) bool {
	entry.Path = truncatePath(entry.Path, model.MaxPathLen)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if !w.input.Send(entry) {
		w.metricsMu.Lock()
		w.metrics.Dropped++
		w.metricsMu.Unlock()
		return false
	}

	if w.input.Len() >= w.cfg.BatchSize {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
	return true
}

// Start begins flushing queued entries.
func (w *ResponseLogWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("response log writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *ResponseLogWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping response log writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("response log writer stopped")
	case <-ctx.Done():
		w.logger.Warn("response log writer stop timed out")
	}

	// Final flush on the caller's context; the writer's own is canceled.
	w.drain(ctx)
	return nil
}

// Stats returns current metrics.
func (w *ResponseLogWriter) Stats() WriterMetrics {
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.metrics
}

// Pending returns the number of queued entries.
func (w *ResponseLogWriter) Pending() int {
	return w.input.Len()
}

// flushLoop flushes on every tick and whenever a full batch is waiting.
func (w *ResponseLogWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.drain(w.ctx)
		case <-w.wake:
			w.drain(w.ctx)
		}
	}
}

// drain flushes batches until the queue is empty.
func (w *ResponseLogWriter) drain(ctx context.Context) {
	for {
		entries := w.input.DrainTo(w.cfg.BatchSize)
		if len(entries) == 0 {
			return
		}
		w.flush(ctx, entries)
	}
}

// transform converts a ResponseLog to a responseLogRow.
func (w *ResponseLogWriter) transform(e model.ResponseLog) responseLogRow {
	return responseLogRow{
		Path:         e.Path,
		StatusCode:   e.StatusCode,
		ResponseTime: e.ResponseTime,
		CreatedAt:    e.CreatedAt.UTC(),
	}
}

// flush writes one batch to the database.
func (w *ResponseLogWriter) flush(ctx context.Context, entries []model.ResponseLog) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	rows := make([]responseLogRow, len(entries))
	for i, e := range entries {
		rows[i] = w.transform(e)
	}

	start := time.Now()

	if w.db != nil {
		if err := w.batchInsert(ctx, rows); err != nil {
			w.logger.Error("batch insert failed", "error", err, "count", len(rows))
			w.metricsMu.Lock()
			w.metrics.Errors++
			w.metricsMu.Unlock()
			return
		}
	}

	w.metricsMu.Lock()
	w.metrics.Inserts += int64(len(rows))
	w.metrics.Flushes++
	w.metricsMu.Unlock()

	w.logger.Debug("flushed response logs",
		"count", len(rows),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch.
func (w *ResponseLogWriter) batchInsert(ctx context.Context, rows []responseLogRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO response_logs (path, status_code, response_time, created_at)
			VALUES ($1, $2, $3, $4)
		`, r.Path, r.StatusCode, r.ResponseTime, r.CreatedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
