package bootstrap

import (
	"bookhub-loans/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	DBModule,
	components.RepositoryModule,
	components.ClientModule,
	components.UseCaseModule,
	components.HandlerModule,
	WorkerModule,
)
