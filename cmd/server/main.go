package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/productsync/api/handler"
	"github.com/fastygo/productsync/internal/bootstrap"
	"github.com/fastygo/productsync/internal/config"
	"github.com/fastygo/productsync/internal/infrastructure/monitor"
	"github.com/fastygo/productsync/internal/middleware"
	"github.com/fastygo/productsync/internal/router"
	"github.com/fastygo/productsync/internal/services/lifecycle"
	"github.com/fastygo/productsync/pkg/httpcontext"
	"github.com/fastygo/productsync/pkg/logger"
	boltrepo "github.com/fastygo/productsync/repository/bolt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.Listen(context.Background())
	defer cancel()

	app, err := bootstrap.New(appCtx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("initialization failed", zap.Error(err))
	}
	manager.RegisterCloser("ledger", app.Close)

	if janitor := app.Ledger.Janitor; janitor != nil {
		janitor.Start()
		manager.Register("ledger_janitor", func(ctx context.Context) error {
			janitor.Stop(ctx)
			return nil
		})
	}

	mon := monitor.New(app.Ledger, app.Ledger.Backend, app.Credential, 10*time.Second, zapLogger.Named("monitor"))
	if bolt, ok := app.Ledger.DeliveryLedger.(*boltrepo.DeliveryLedger); ok {
		mon.WithJournal(bolt.Store())
	}
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(appCtx, cfg.HTTP.WriteTimeout)

	handlers := router.Handlers{
		Webhook: apiHandler.NewWebhookHandler(app.Trigger, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	signatureMiddleware := middleware.HubSpotSignature(app.Verifier, zapLogger)
	r := router.New(handlers, signatureMiddleware)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Name:               cfg.AppName,
		MaxRequestBodySize: 1 << 20,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
