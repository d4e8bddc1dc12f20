package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookhub-loans/internal/pkg/clock"
	"bookhub-loans/internal/pkg/config"
	"bookhub-loans/internal/pkg/errs"
	"bookhub-loans/internal/usecase/commands"
)

// attemptsBeforeAlarm is how many failed retries a compensation gets before
// it is logged at error level for operator attention. It keeps retrying
// regardless; entries are never dropped.
const attemptsBeforeAlarm = 5

// CompensationStore is the durable queue the reconciliation worker drains.
type CompensationStore interface {
	Due(ctx context.Context, now time.Time, limit int) ([]commands.PendingCompensation, error)
	MarkDone(ctx context.Context, id uuid.UUID) error
	Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// ReconciliationWorker replays pending catalog corrections until each one
// succeeds. Failed attempts back off exponentially up to maxBackoff.
type ReconciliationWorker struct {
	store      CompensationStore
	catalog    commands.CatalogPort
	clk        clock.Clock
	interval   time.Duration
	maxBackoff time.Duration
	batchSize  int
	logger     *slog.Logger
}

func NewReconciliationWorker(
	store CompensationStore,
	catalog commands.CatalogPort,
	clk clock.Clock,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		store:      store,
		catalog:    catalog,
		clk:        clk,
		interval:   cfg.ReconcileInterval,
		maxBackoff: cfg.ReconcileMaxBackoff,
		batchSize:  cfg.ReconcileBatchSize,
		logger:     logger,
	}
}

// Run drains the queue once immediately and then on every tick until ctx is
// canceled.
func (w *ReconciliationWorker) Run(ctx context.Context) {
	w.Drain(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain processes one batch of due compensations.
func (w *ReconciliationWorker) Drain(ctx context.Context) {
	pending, err := w.store.Due(ctx, w.clk.Now(), w.batchSize)
	if err != nil {
		w.logger.Error("failed to load pending compensations", slog.String("error", err.Error()))
		return
	}

	for _, p := range pending {
		w.process(ctx, p)
	}
}

func (w *ReconciliationWorker) process(ctx context.Context, p commands.PendingCompensation) {
	if err := w.apply(ctx, p.Compensation); err != nil {
		w.reschedule(ctx, p, err)
		return
	}

	if err := w.store.MarkDone(ctx, p.ID); err != nil {
		w.logger.Error("failed to mark compensation done",
			slog.String("compensation_id", p.ID.String()),
			slog.String("error", err.Error()))
		return
	}

	w.logger.Info("compensation applied",
		slog.String("compensation_id", p.ID.String()),
		slog.String("action", string(p.Action)),
		slog.String("book_id", p.BookID.String()))
}

func (w *ReconciliationWorker) apply(ctx context.Context, comp commands.Compensation) error {
	switch comp.Action {
	case commands.CompensationReserve:
		ok, err := w.catalog.ReserveOne(ctx, comp.BookID)
		if err != nil {
			return err
		}
		if !ok {
			// The copy we are trying to claim back is gone. Keep the entry
			// so availability is corrected once stock returns.
			return errs.New("no copies available to re-reserve")
		}
		return nil
	default:
		return w.catalog.ReleaseOne(ctx, comp.BookID)
	}
}

func (w *ReconciliationWorker) reschedule(ctx context.Context, p commands.PendingCompensation, cause error) {
	attempts := p.Attempts + 1
	runAt := w.clk.Now().Add(w.backoff(attempts))

	logFn := w.logger.Warn
	if attempts >= attemptsBeforeAlarm {
		logFn = w.logger.Error
	}
	logFn("compensation attempt failed",
		slog.String("compensation_id", p.ID.String()),
		slog.String("action", string(p.Action)),
		slog.Int("attempts", int(attempts)),
		slog.Time("next_attempt", runAt),
		slog.String("error", cause.Error()))

	if err := w.store.Reschedule(ctx, p.ID, runAt, cause.Error()); err != nil {
		w.logger.Error("failed to reschedule compensation",
			slog.String("compensation_id", p.ID.String()),
			slog.String("error", err.Error()))
	}
}

// backoff doubles the base interval per attempt, capped at maxBackoff.
func (w *ReconciliationWorker) backoff(attempts int32) time.Duration {
	d := w.interval
	for i := int32(1); i < attempts; i++ {
		d *= 2
		if d >= w.maxBackoff {
			return w.maxBackoff
		}
	}
	if d > w.maxBackoff {
		return w.maxBackoff
	}
	return d
}
