// Package services – BackfillWorker
//
// BackfillWorker runs embedding backfills off the request path. It is a
// suture.Service: the supervisor owns its lifetime and restarts it if Serve
// returns an error. Trigger is fire-and-forget; at most one run is queued
// while another is in progress.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Backfiller is the work a BackfillWorker runs.
type Backfiller interface {
	Backfill(ctx context.Context, concurrency int) (BackfillReport, error)
}

// BackfillStatus describes the worker's current and last run.
type BackfillStatus struct {
	Running      bool            `json:"running"`
	Queued       bool            `json:"queued"`
	LastStarted  *time.Time      `json:"last_started,omitempty"`
	LastFinished *time.Time      `json:"last_finished,omitempty"`
	LastReport   *BackfillReport `json:"last_report,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
}

// BackfillWorker serializes backfill runs on one goroutine.
type BackfillWorker struct {
	store       Backfiller
	concurrency int
	onStart     bool
	runTimeout  time.Duration
	logger      zerolog.Logger

	trigger chan struct{}

	mu     sync.Mutex
	status BackfillStatus
}

// BackfillWorkerConfig configures a BackfillWorker.
type BackfillWorkerConfig struct {
	Concurrency int
	RunOnStart  bool
	// RunTimeout bounds one run. Zero means 1h.
	RunTimeout time.Duration
}

// NewBackfillWorker returns a worker running store.Backfill on demand.
func NewBackfillWorker(store Backfiller, cfg BackfillWorkerConfig, logger *zerolog.Logger) *BackfillWorker {
	lg := log.Logger
	if logger != nil {
		lg = *logger
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = time.Hour
	}
	return &BackfillWorker{
		store:       store,
		concurrency: cfg.Concurrency,
		onStart:     cfg.RunOnStart,
		runTimeout:  cfg.RunTimeout,
		logger:      lg.With().Str("service", "embedding-backfill").Logger(),
		trigger:     make(chan struct{}, 1),
	}
}

// Trigger queues a run. It reports false when a run is already queued.
func (w *BackfillWorker) Trigger() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.trigger <- struct{}{}:
		w.status.Queued = true
		return true
	default:
		return false
	}
}

// Status returns a copy of the worker's status.
func (w *BackfillWorker) Status() BackfillStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := w.status
	if st.LastReport != nil {
		r := *st.LastReport
		st.LastReport = &r
	}
	return st
}

// Serve implements suture.Service.
func (w *BackfillWorker) Serve(ctx context.Context) error {
	w.logger.Info().Bool("run_on_start", w.onStart).Msg("backfill worker starting")
	if w.onStart {
		w.Trigger()
	}
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("backfill worker shutting down")
			return ctx.Err()
		case <-w.trigger:
			w.run(ctx)
		}
	}
}

func (w *BackfillWorker) run(ctx context.Context) {
	started := time.Now().UTC()
	w.mu.Lock()
	w.status.Running, w.status.Queued = true, false
	w.status.LastStarted = &started
	w.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, w.runTimeout)
	defer cancel()
	rep, err := w.store.Backfill(runCtx, w.concurrency)

	finished := time.Now().UTC()
	w.mu.Lock()
	w.status.Running = false
	w.status.LastFinished = &finished
	w.status.LastReport = &rep
	w.status.LastError = ""
	if err != nil {
		w.status.LastError = err.Error()
	}
	w.mu.Unlock()

	ev := w.logger.Info()
	if err != nil {
		ev = w.logger.Warn().Err(err)
	}
	ev.Int("total", rep.Total).
		Int("stored", rep.Stored).
		Int("unavailable", rep.Unavailable).
		Int("failed", rep.Failed).
		Dur("duration", rep.Duration).
		Msg("embedding backfill finished")
}

// String names the service in supervisor logs.
func (w *BackfillWorker) String() string { return "embedding-backfill" }
