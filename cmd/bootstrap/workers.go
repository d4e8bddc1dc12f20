package bootstrap

import (
	"context"
	"log/slog"

	"bookhub-loans/internal/pkg/clock"
	"bookhub-loans/internal/pkg/config"
	"bookhub-loans/internal/usecase/commands"
	"bookhub-loans/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewOverdueScanner,
		NewReconciliationWorker,
	),
	fx.Invoke(
		runWorkers,
	),
)

func NewOverdueScanner(marker worker.OverdueMarker, clk clock.Clock, cfg config.Config, logger *slog.Logger) *worker.OverdueScanner {
	return worker.NewOverdueScanner(marker, clk, cfg.Worker.OverdueSweepInterval, logger)
}

func NewReconciliationWorker(
	store worker.CompensationStore,
	catalog commands.CatalogPort,
	clk clock.Clock,
	cfg config.Config,
	logger *slog.Logger,
) *worker.ReconciliationWorker {
	return worker.NewReconciliationWorker(store, catalog, clk, cfg.Worker, logger)
}

// runWorkers ties the background loops to the application lifecycle. Both
// stop when the fx app begins shutdown.
func runWorkers(lc fx.Lifecycle, scanner *worker.OverdueScanner, reconciler *worker.ReconciliationWorker, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("starting background workers")
			go func() {
				scanner.Run(ctx)
				done <- struct{}{}
			}()
			go func() {
				reconciler.Run(ctx)
				done <- struct{}{}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			for i := 0; i < 2; i++ {
				select {
				case <-done:
				case <-stopCtx.Done():
					return stopCtx.Err()
				}
			}
			logger.Info("background workers stopped")
			return nil
		},
	})
}
