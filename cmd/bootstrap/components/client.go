package components

import (
	client_impl "bookhub-loans/internal/infra/client"
	"bookhub-loans/internal/pkg/config"
	"bookhub-loans/internal/usecase/commands"

	"go.uber.org/fx"
)

var ClientModule = fx.Module("client",
	fx.Provide(
		func(cfg config.Config) config.RemoteConfig {
			return cfg.Remote
		},
		fx.Annotate(
			client_impl.NewCatalogClient,
			fx.As(new(commands.CatalogPort)),
		),
		fx.Annotate(
			client_impl.NewUserClient,
			fx.As(new(commands.UserPort)),
		),
	),
)
