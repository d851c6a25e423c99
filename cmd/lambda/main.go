package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/productsync/api/handler"
	"github.com/fastygo/productsync/internal/bootstrap"
	"github.com/fastygo/productsync/internal/config"
	"github.com/fastygo/productsync/pkg/logger"
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

	// Cold start: a token that cannot be resolved stops the runtime here.
	app, err := bootstrap.New(context.Background(), cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("initialization failed", zap.Error(err))
	}

	// No scheduler survives between invocations; sweep once per cold start instead.
	if janitor := app.Ledger.Janitor; janitor != nil {
		if _, err := janitor.Sweep(context.Background()); err != nil {
			zapLogger.Warn("ledger sweep failed", zap.Error(err))
		}
	}

	handler := apiHandler.NewLambdaHandler(app.Trigger, app.Verifier, zapLogger)
	lambda.Start(handler.Invoke)
}
