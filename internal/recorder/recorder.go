package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rewsio/rews"
	"github.com/rewsio/rews/internal/config"
)

// Metrics counts recorder activity.
type Metrics struct {
	Inserts int64
	Flushes int64
	Drops   int64
	Errors  int64
}

// frameRow is one row in the frames table.
type frameRow struct {
	Session    uuid.UUID
	Kind       string // "text" or "binary"
	Payload    []byte
	ReceivedAt int64 // µs since epoch
}

// Recorder batches received frames and writes them to the frames table.
type Recorder struct {
	cfg     config.RecorderConfig
	logger  *slog.Logger
	db      *pgxpool.Pool
	session uuid.UUID

	// Input from the client's message callback
	input chan frameRow

	// Batching
	batch       []frameRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// New creates a Recorder writing to the given pool under a fresh session ID.
func New(cfg config.RecorderConfig, db *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = config.DefaultFlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = config.DefaultBufferSize
	}
	session := uuid.New()
	return &Recorder{
		cfg:     cfg,
		logger:  logger.With("session", session),
		db:      db,
		session: session,
		input:   make(chan frameRow, cfg.BufferSize),
		batch:   make([]frameRow, 0, cfg.BatchSize),
	}
}

// Session returns the session ID tagging this run's rows.
func (r *Recorder) Session() uuid.UUID {
	return r.session
}

// Start begins consuming recorded frames and writing batches.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts the recorder down and flushes what remains.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	// Final flush
	r.flush(ctx)

	r.logger.Info("recorder stopped")
	return nil
}

// Record enqueues one received frame. It never blocks the delivering
// callback; frames are dropped when the buffer is full.
func (r *Recorder) Record(msg rews.Message) {
	row := transform(r.session, msg, time.Now())

	select {
	case r.input <- row:
	default:
		r.batchMu.Lock()
		r.metrics.Drops++
		r.batchMu.Unlock()
		r.logger.Warn("recorder buffer full, dropping frame")
	}
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// transform converts a message into a frames-table row.
func transform(session uuid.UUID, msg rews.Message, receivedAt time.Time) frameRow {
	kind := "binary"
	if msg.IsText() {
		kind = "text"
	}
	return frameRow{
		Session:    session,
		Kind:       kind,
		Payload:    msg.Payload(),
		ReceivedAt: receivedAt.UnixMicro(),
	}
}

// consumeLoop accumulates batches from the input channel.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case row := <-r.input:
			r.batchMu.Lock()
			r.batch = append(r.batch, row)
			shouldFlush := len(r.batch) >= r.cfg.BatchSize
			r.batchMu.Unlock()

			if shouldFlush {
				r.flush(r.ctx)
			}
		}
	}
}

// flushLoop periodically flushes the batch.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush(r.ctx)
		}
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush(ctx context.Context) {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := r.batch
	r.batch = make([]frameRow, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	if err := r.batchInsert(ctx, batch); err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch))
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed frames",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using a pgx batch.
func (r *Recorder) batchInsert(ctx context.Context, rows []frameRow) error {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO frames (session, kind, payload, received_at)
			VALUES ($1, $2, $3, $4)
		`, row.Session, row.Kind, row.Payload, row.ReceivedAt)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}
