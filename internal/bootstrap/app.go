// Package bootstrap wires the components shared by the local server and the Lambda entry point.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/productsync/api/trigger"
	"github.com/fastygo/productsync/internal/config"
	"github.com/fastygo/productsync/internal/credential"
	"github.com/fastygo/productsync/internal/infrastructure/secretstore"
	"github.com/fastygo/productsync/internal/metrics"
	"github.com/fastygo/productsync/internal/middleware"
	"github.com/fastygo/productsync/internal/services"
	"github.com/fastygo/productsync/pkg/hubspot"
	hubspotrepo "github.com/fastygo/productsync/repository/hubspot"
	"github.com/fastygo/productsync/usecase/propagation"
)

// App holds the initialized pipeline and its dependencies.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Credential *credential.Provider
	Ledger     *services.Ledger
	Pipeline   *propagation.UseCase
	Trigger    *trigger.Handler
	Verifier   *middleware.SignatureVerifier
}

// New resolves the access token and builds the pipeline. A token that cannot
// be resolved fails initialization; callers treat that as fatal.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	metrics.Register()

	provider, err := newCredentialProvider(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if _, err := provider.Token(ctx); err != nil {
		return nil, fmt.Errorf("resolve access token: %w", err)
	}

	client := hubspot.NewClientWithOptions(hubspot.ClientOptions{
		BaseURL:       cfg.HubSpot.BaseURL,
		TokenProvider: provider.Token,
		RetryMax:      cfg.HubSpot.RetryMax,
		Timeout:       cfg.HubSpot.Timeout,
		RateLimit:     cfg.HubSpot.RateLimit,
		Burst:         cfg.HubSpot.RateBurst,
	})

	ledger, err := services.OpenLedger(ctx, cfg.Ledger, log.Named("ledger"))
	if err != nil {
		return nil, err
	}

	pipeline := propagation.New(
		hubspotrepo.NewDealRepository(client),
		hubspotrepo.NewLineItemRepository(client),
		ledger,
		log.Named("propagation"),
		propagation.Config{
			PageSize:       cfg.HubSpot.PageSize,
			BatchSize:      cfg.HubSpot.BatchSize,
			Concurrency:    cfg.HubSpot.Concurrency,
			MaxSearchPages: cfg.HubSpot.MaxSearchPages,
		},
	)

	log.Info("pipeline initialized",
		zap.String("ledger_backend", ledger.Backend),
		zap.Bool("secret_store", cfg.UsesSecretStore()),
		zap.Bool("signature_verification", cfg.Webhook.ClientSecret != ""),
	)

	return &App{
		Config:     cfg,
		Logger:     log,
		Credential: provider,
		Ledger:     ledger,
		Pipeline:   pipeline,
		Trigger:    trigger.NewHandler(pipeline, cfg.Context.InvocationTimeout, log.Named("trigger")),
		Verifier:   middleware.NewSignatureVerifier(cfg.Webhook),
	}, nil
}

// Close releases the ledger.
func (a *App) Close() error {
	if a == nil || a.Ledger == nil {
		return nil
	}
	return a.Ledger.Close()
}

func newCredentialProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) (*credential.Provider, error) {
	if !cfg.UsesSecretStore() {
		return credential.NewStaticProvider(cfg.Credential.APIToken), nil
	}
	client, err := secretstore.NewClient(ctx, cfg.Credential)
	if err != nil {
		return nil, fmt.Errorf("secret store client: %w", err)
	}
	return credential.NewSecretProvider(client, cfg.Credential.SecretID, cfg.Credential.TokenField, log.Named("credential")), nil
}
