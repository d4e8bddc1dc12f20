package components

import (
	"bookhub-loans/internal/infra/db"
	"bookhub-loans/internal/infra/readstore"
	repo_impl "bookhub-loans/internal/infra/repository"
	"bookhub-loans/internal/usecase/commands"
	"bookhub-loans/internal/usecase/queries"
	"bookhub-loans/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		fx.Annotate(
			repo_impl.NewLoanRepository,
			fx.As(new(commands.LoanRepository)),
			fx.As(new(worker.OverdueMarker)),
		),
		fx.Annotate(
			repo_impl.NewCompensationRepository,
			fx.As(new(commands.CompensationQueue)),
			fx.As(new(worker.CompensationStore)),
		),
		fx.Annotate(
			readstore.NewLoanReadStore,
			fx.As(new(queries.LoanReadStore)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
