package worker

import (
	"context"
	"log/slog"
	"time"

	"bookhub-loans/internal/pkg/clock"
)

// OverdueMarker flips active loans past their due date to overdue.
type OverdueMarker interface {
	MarkOverdueBefore(ctx context.Context, now time.Time) (int64, error)
}

// OverdueScanner periodically promotes active loans whose due date has
// passed. The sweep is a single set-based update, so concurrent sweeps and
// in-flight returns cannot double-transition a loan.
type OverdueScanner struct {
	marker   OverdueMarker
	clk      clock.Clock
	interval time.Duration
	logger   *slog.Logger
}

func NewOverdueScanner(marker OverdueMarker, clk clock.Clock, interval time.Duration, logger *slog.Logger) *OverdueScanner {
	return &OverdueScanner{
		marker:   marker,
		clk:      clk,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is canceled.
func (s *OverdueScanner) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep marks every active loan past due as overdue and reports how many
// were flipped.
func (s *OverdueScanner) Sweep(ctx context.Context) {
	now := s.clk.Now()
	marked, err := s.marker.MarkOverdueBefore(ctx, now)
	if err != nil {
		s.logger.Error("overdue sweep failed", slog.String("error", err.Error()))
		return
	}
	if marked > 0 {
		s.logger.Info("marked loans overdue", slog.Int64("count", marked))
	}
}
