package main

import (
	"context"
	"log/slog"
	"os"

	"lookbook/config"
	"lookbook/internal/delivery"
	"lookbook/internal/delivery/http"
	httpmiddleware "lookbook/internal/delivery/http/middleware"
	"lookbook/internal/delivery/http/router/handler"
	deliverymiddleware "lookbook/internal/delivery/middleware"
	"lookbook/internal/infra/auth"
	"lookbook/internal/infra/auth/apple"
	"lookbook/internal/infra/auth/kakao"
	logs "lookbook/internal/infra/log"
	"lookbook/internal/infra/persistence/postgres"
	"lookbook/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewUserRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewSessionTokenService,
			apple.NewKeySetSource,
			fx.Annotate(
				apple.NewIdentityTokenVerifier,
				fx.ResultTags(`name:"apple"`),
			),
			fx.Annotate(
				kakao.NewUserInfoVerifier,
				fx.ResultTags(`name:"kakao"`),
			),
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			deliverymiddleware.NewRequestIDMiddleware,
			httpmiddleware.NewAuthMiddleware,
			httpmiddleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
