package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/api"
	"github.com/Conceptual-Machines/songsmith-api/internal/catalog"
	"github.com/Conceptual-Machines/songsmith-api/internal/config"
	"github.com/Conceptual-Machines/songsmith-api/internal/credential"
	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	"github.com/Conceptual-Machines/songsmith-api/internal/metrics"
	"github.com/Conceptual-Machines/songsmith-api/internal/observability"
	"github.com/Conceptual-Machines/songsmith-api/internal/store"
	"github.com/Conceptual-Machines/songsmith-api/internal/studio"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	shutdownTimeout       = 10 * time.Second
	environmentProduction = "production"
	envVarPrefix          = "songsmith"
)

// releaseVersion is set via ldflags during build
var releaseVersion = ""

// GetVersion returns the current release version
func GetVersion() string {
	v := releaseVersion
	if v == "" {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			v = buildInfo.Main.Version
		}
	}
	if v == "" || v == "(devel)" {
		v = "dev"
	}
	return v
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newCommand().ParseAndRun(ctx, os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("songsmith", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "songsmith [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(),
			newServeCommand(),
			newVerifyCommand(),
		},
	}
}

func newVersionCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "songsmith version",
		ShortHelp:  "print version",
		Exec: func(context.Context, []string) error {
			fmt.Println(GetVersion())
			return nil
		},
	}
}

func newServeCommand() *ffcli.Command {
	cmd := "serve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "config file (optional)")
	port := fs.String("port", "", "listen port (overrides PORT)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songsmith %s [flags]", cmd),
		ShortHelp:  "run the HTTP API",
		Options:    []ff.Option{ff.WithEnvVarPrefix(envVarPrefix)},
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			cfg := config.LoadFrom(*configPath)
			if *port != "" {
				cfg.Port = *port
			}
			return serve(ctx, cfg)
		},
	}
}

func newVerifyCommand() *ffcli.Command {
	cmd := "verify"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "config file (optional)")
	key := fs.String("credential", "", "API credential to verify")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("songsmith %s -credential KEY", cmd),
		ShortHelp:  "probe a credential and print its trust state",
		Options:    []ff.Option{ff.WithEnvVarPrefix(envVarPrefix)},
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			cfg := config.LoadFrom(*configPath)
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			state, verr := a.verifier.Verify(ctx, *key)
			out, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return verr
		},
	}
}

// app holds the wired services shared by the subcommands
type app struct {
	cfg       *config.Config
	backend   llm.Provider
	adapter   *store.KVAdapter
	service   *studio.Service
	generator *studio.Generator
	verifier  *credential.Verifier
	recorder  *metrics.Recorder
	langfuse  *observability.LangfuseClient
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	sentryEnabled := initSentry(cfg)

	kv, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	adapter := store.NewKVAdapter(kv, store.NewCodec(cfg.CredentialSecret), cfg.StorePrefix)

	cat, err := catalog.Default()
	if err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	backend, err := llm.NewProviderFactory(cfg).Default()
	if err != nil {
		_ = adapter.Close()
		return nil, err
	}

	svc := studio.NewService(adapter, cat)
	if err := svc.Load(ctx); err != nil {
		log.Printf("⚠️  Starting with no projects: %v", err)
	}

	cw, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
		cw = nil
	}
	sentryMetrics := metrics.NewSentryMetrics(sentryEnabled)
	langfuse := observability.InitializeLangfuse(ctx, cfg)
	recorder := metrics.NewRecorder(sentryMetrics, cw, langfuse)

	gen := studio.NewGenerator(svc, backend, studio.GeneratorConfig{
		FallbackCredential: fallbackCredential(cfg),
		MaxAudioBytes:      cfg.MaxAudioBytes,
	})
	gen.SetObserver(recorder)

	verifier := credential.NewVerifier(backend, adapter)
	verifier.SetObserver(recorder)
	verifier.SetProbeTimeout(cfg.ProbeTimeout)

	return &app{
		cfg:       cfg,
		backend:   backend,
		adapter:   adapter,
		service:   svc,
		generator: gen,
		verifier:  verifier,
		recorder:  recorder,
		langfuse:  langfuse,
	}, nil
}

func (a *app) close() {
	a.langfuse.Flush(context.Background())
	if err := a.adapter.Close(); err != nil {
		log.Printf("⚠️  Failed to close store: %v", err)
	}
	sentry.Flush(sentryFlushTimeout)
}

// fallbackCredential is the configured key for the selected backend
func fallbackCredential(cfg *config.Config) string {
	if cfg.Backend == "openai" {
		return cfg.OpenAIAPIKey
	}
	return cfg.GeminiAPIKey
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		sentry.CaptureException(err)
		return err
	}
	defer a.close()

	// Set Gin mode
	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Dependencies{
		Config:    cfg,
		Version:   GetVersion(),
		Backend:   a.backend.Name(),
		Service:   a.service,
		Generator: a.generator,
		Verifier:  a.verifier,
		Requests:  a.recorder,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Starting server on port %s (backend: %s, store: %s)", port, a.backend.Name(), cfg.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initSentry initializes Sentry when a DSN is configured
func initSentry(cfg *config.Config) bool {
	if cfg.SentryDSN == "" {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
		return false
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          "songsmith-api@" + GetVersion(),
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
		Debug:            cfg.Environment != environmentProduction,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			// Filter out sensitive data
			if event.Request != nil {
				event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				event.Request.Data = ""
			}
			return event
		},
	}); err != nil {
		log.Printf("Failed to initialize Sentry: %v", err)
		return false
	}
	log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, GetVersion())
	return true
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization":  true,
		"cookie":         true,
		"x-api-key":      true,
		"x-goog-api-key": true,
	}

	for k, v := range headers {
		if sensitiveKeys[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
