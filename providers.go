package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/MadAppGang/httplog"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/madflojo/tasks"
	"github.com/redis/go-redis/v9"
	tdb "github.com/tigerbeetle/tigerbeetle-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/db"
	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/handlers"
	"github.com/2HgO/aura-go/metrics"
	"github.com/2HgO/aura-go/services"
)

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func NewHttpServer(lc fx.Lifecycle, cfg *config.Config, mux *http.ServeMux, log *zap.Logger) *http.Server {
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Wallet-Address", "X-Payment"}),
		gorillahandlers.ExposedHeaders([]string{"Retry-After"}),
	)
	recovery := gorillahandlers.RecoveryHandler(gorillahandlers.RecoveryLogger(zap.NewStdLog(log)))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      cors(recovery(httplog.LoggerWithName("aura")(mux))),
		WriteTimeout: time.Second * 90,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("starting HTTP server", zap.String("addr", srv.Addr))
			go srv.Serve(ln)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}

func NewServeMux(routers []handlers.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	for _, router := range routers {
		router.ServeHttp(mux)
	}
	return mux
}

func NewBackendPool(lc fx.Lifecycle, registry *evm.Registry, log *zap.Logger) services.BackendProvider {
	pool := evm.NewPool(registry, log)
	lc.Append(fx.StopHook(pool.Close))
	return pool
}

func NewRecorder(recorder *metrics.PrometheusRecorder) metrics.Recorder {
	return recorder
}

func NewScheduler(lc fx.Lifecycle, scheduler *tasks.Scheduler, log *zap.Logger) services.SchedulerService {
	s := services.NewSchedulerService(scheduler, log)
	lc.Append(fx.StopHook(s.Stop))
	return s
}

func NewNotifier(lc fx.Lifecycle, cfg *config.Config, scheduler services.SchedulerService, log *zap.Logger) services.Notifier {
	notifier := services.NewNotifier(cfg, scheduler, log)
	lc.Append(fx.StopHook(notifier.Close))
	return notifier
}

func NewDataDB(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*sql.DB, error) {
	dataDB, err := db.GetDataDBConnection(cfg, log)
	if err != nil || dataDB == nil {
		return dataDB, err
	}
	lc.Append(fx.StopHook(dataDB.Close))
	return dataDB, nil
}

func NewRedis(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	client, err := db.GetRedisConnection(cfg, log)
	if err != nil || client == nil {
		return client, err
	}
	lc.Append(fx.StopHook(client.Close))
	return client, nil
}

func NewTxDB(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (tdb.Client, error) {
	client, err := db.GetTxDBConnection(cfg, log)
	if err != nil || client == nil {
		return client, err
	}
	lc.Append(fx.StopHook(client.Close))
	return client, nil
}

func NewStrategyService(cfg *config.Config, aura services.AuraService, quotes services.QuoteService, swaps services.SwapService, backends services.BackendProvider, recorder metrics.Recorder, log *zap.Logger) services.StrategyService {
	return services.NewStrategyService(services.StrategyConfig{
		SimulationMode: cfg.SimulationMode,
		PrivateKey:     cfg.WalletPrivateKey,
	}, aura, quotes, swaps, backends, recorder, log)
}

func NewAutomationService(
	lc fx.Lifecycle,
	cfg *config.Config,
	rules db.RuleRepository,
	strategies services.StrategyService,
	feed services.PriceFeed,
	notifier services.Notifier,
	scheduler services.SchedulerService,
	recorder metrics.Recorder,
	log *zap.Logger,
) services.AutomationService {
	automation := services.NewAutomationService(rules, strategies, feed, notifier, scheduler, cfg.AutomationTick, recorder, log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return automation.Start()
		},
		OnStop: func(context.Context) error {
			automation.Stop()
			return nil
		},
	})
	return automation
}

func NewPaymentService(
	cfg *config.Config,
	payments db.PaymentRepository,
	cache db.PaymentCache,
	facilitator services.PaymentFacilitator,
	ledger services.LedgerService,
	scheduler services.SchedulerService,
	notifier services.Notifier,
	recorder metrics.Recorder,
	log *zap.Logger,
) services.PaymentService {
	return services.NewPaymentService(cfg, payments, cache, facilitator, ledger, scheduler, notifier, recorder, log)
}

func NewSwapService(registry *evm.Registry, backends services.BackendProvider, tokens services.TokenService, quotes services.QuoteService, notifier services.Notifier, recorder metrics.Recorder, log *zap.Logger) services.SwapService {
	return services.NewSwapService(registry, backends, tokens, quotes, notifier, recorder, log)
}
