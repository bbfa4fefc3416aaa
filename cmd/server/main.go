// Package main provides the entry point for the connectors demo host: an
// HTTP service that wires the connectors core (OAuth, webhooks, actions,
// encrypted credential storage) into a runnable fx application.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/ignitergo/connectors/connectors"
	"github.com/ignitergo/connectors/connectors/builtins"
	"github.com/ignitergo/connectors/domain/connectorsapi"
	"github.com/ignitergo/connectors/domain/health"
	"github.com/ignitergo/connectors/internal/catalog"
	"github.com/ignitergo/connectors/internal/config"
	otelwire "github.com/ignitergo/connectors/internal/otel"
	"github.com/ignitergo/connectors/internal/server"
	"github.com/ignitergo/connectors/pkg/logger"
	"github.com/ignitergo/connectors/pkg/notify"
	"github.com/ignitergo/connectors/pkg/telemetry"
	"github.com/ignitergo/connectors/storage/memadapter"
	"github.com/ignitergo/connectors/storage/s3adapter"
	"github.com/ignitergo/connectors/storage/sqladapter"
)

func main() {
	// Load .env files if present (for local development)
	// Order matters: .env.local overrides .env
	// Note: Load() won't overwrite existing vars, Overload() will
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local")

	log := logger.NewLogger()

	cfg, err := config.NewConfig(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connectors: load config:", err)
		os.Exit(1)
	}

	mgr, err := buildManager(context.Background(), cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connectors: build manager:", err)
		os.Exit(1)
	}

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		fx.Supply(log, cfg),
		server.Module,
		health.Module,
		connectors.Module(mgr),
		connectorsapi.Module,

		fx.Invoke(registerTracing),
	).Run()
}

// registerTracing wires OpenTelemetry export/shutdown into the fx
// lifecycle. It is invoked eagerly so tracing starts before the HTTP
// server accepts its first request.
func registerTracing(lc fx.Lifecycle, cfg *config.Config) error {
	_, shutdown, err := otelwire.NewTracerProvider(context.Background(), cfg.Otel)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return shutdown(ctx)
		},
	})
	return nil
}

// buildManager constructs the storage adapter, registers every builtin
// connector plus telemetry/notification wiring, and produces the
// immutable connectors.Manager the rest of the demo host depends on. It
// runs before fx.New so the Manager can be supplied into the graph
// ready-built, per connectors.Module's composition-root contract.
func buildManager(ctx context.Context, cfg *config.Config, log *slog.Logger) (*connectors.Manager, error) {
	adapter, err := newAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := connectors.NewRegistry(connectors.RegistryOptions{
		Adapter:          adapter,
		BaseURL:          cfg.Igniter.BaseURL,
		EncryptionSecret: cfg.Igniter.EncryptionSecret,
		CookieSigningKey: cfg.Igniter.GetCookieSigningKey(),
		Logger:           log,
		StateSweepCron:   cfg.Igniter.StateSweepCron,
	})

	scopes, err := catalog.Load(cfg.Igniter.ScopesCatalogFile)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		scopes = []connectors.ScopeDefinition{
			{Key: "organization", Required: true},
			{Key: "user", Required: false},
		}
	}
	for _, s := range scopes {
		registry.RegisterScope(s)
	}

	registry.RegisterConnector(builtins.Slack(cfg.Igniter.SlackClientID, cfg.Igniter.SlackClientSecret))
	registry.RegisterConnector(builtins.Mailchimp(cfg.Igniter.MailchimpClientID, cfg.Igniter.MailchimpClientSecret))
	registry.RegisterConnector(builtins.Telegram())
	registry.RegisterConnector(builtins.GitHub(cfg.Igniter.GitHubClientID, cfg.Igniter.GitHubClientSecret))

	registry.AddSink(telemetry.NewSlogSink(log))

	if cfg.Email.IsConfigured() {
		notifier := notify.New(cfg.Email.MailgunDomain, cfg.Email.MailgunAPIKey, cfg.Email.FromEmail, []string{cfg.Email.NotifyTo})
		registry.Subscribe(func(evt connectors.Event) {
			if evt.Type == connectors.EventErrorOccurred && evt.Err != nil {
				notifier.OnError(context.Background(), evt.Err, evt.Scope, evt.Identity, evt.Connector)
			}
		})
	}

	return registry.Build()
}

func newAdapter(ctx context.Context, cfg *config.Config) (connectors.Adapter, error) {
	switch cfg.Storage.Backend {
	case "sql":
		return sqladapter.New(ctx, cfg.Database.DSN())
	case "s3":
		return s3adapter.New(ctx, cfg.Storage.S3Bucket)
	default:
		return memadapter.New(), nil
	}
}
