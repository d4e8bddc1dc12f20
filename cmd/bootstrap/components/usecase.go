package components

import (
	"bookhub-loans/internal/domain/loan"
	"bookhub-loans/internal/pkg/clock"
	"bookhub-loans/internal/pkg/config"
	"bookhub-loans/internal/usecase/commands"
	"bookhub-loans/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	fx.Annotate(
		func(cfg config.Config) *loan.DefaultPenaltyCalculator {
			return loan.NewPenaltyCalculator(cfg.Loan.PenaltyPerDay)
		},
		fx.As(new(loan.PenaltyCalculator)),
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewLoanCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewLoanQueries,
	),
)
