package main

import (
	"net/http"

	"github.com/madflojo/tasks"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/db"
	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/handlers"
	"github.com/2HgO/aura-go/metrics"
	"github.com/2HgO/aura-go/services"
)

func main() {
	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Provide(
			NewHttpServer,
			fx.Annotate(
				NewServeMux,
				fx.ParamTags(`group:"handlers"`),
			),
			fx.Annotate(
				handlers.NewPaymentHandler,
				fx.As(new(handlers.Handler)),
				fx.ResultTags(`group:"handlers"`),
			),
			fx.Annotate(
				handlers.NewSwapHandler,
				fx.As(new(handlers.Handler)),
				fx.ResultTags(`group:"handlers"`),
			),
			fx.Annotate(
				handlers.NewPortfolioHandler,
				fx.As(new(handlers.Handler)),
				fx.ResultTags(`group:"handlers"`),
			),
			fx.Annotate(
				handlers.NewTradeHandler,
				fx.As(new(handlers.Handler)),
				fx.ResultTags(`group:"handlers"`),
			),
			fx.Annotate(
				handlers.NewAutomationHandler,
				fx.As(new(handlers.Handler)),
				fx.ResultTags(`group:"handlers"`),
			),
			fx.Annotate(
				handlers.NewMetricsHandler,
				fx.ResultTags(`group:"handlers"`),
			),
			handlers.NewMiddlewareHandler,
			NewPaymentService,
			NewSwapService,
			NewStrategyService,
			NewAutomationService,
			NewNotifier,
			NewScheduler,
			NewBackendPool,
			NewRecorder,
			services.NewPaymentFacilitator,
			services.NewLedgerService,
			services.NewAuraService,
			services.NewTokenService,
			services.NewPriceSource,
			services.NewQuoteService,
			services.NewPortfolioService,
			services.NewPriceFeed,
			services.NewChatService,
			services.NewTradeService,
			services.NewWalletService,
			metrics.NewPrometheusRecorder,
			evm.NewRegistry,
			db.NewPaymentRepository,
			db.NewRuleRepository,
			db.NewPaymentCache,
			NewDataDB,
			NewRedis,
			NewTxDB,
			tasks.New,
			NewLogger,
			config.Load,
		),
		fx.Invoke(func(*http.Server) {}),
	).Run()
}
