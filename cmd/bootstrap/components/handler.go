package components

import (
	"bookhub-loans/internal/handler"
	"bookhub-loans/internal/handler/api"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewLoanHandler,
	),
	fx.Invoke(handler.NewRouter),
)
