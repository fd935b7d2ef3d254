// Command voice2vital is the main entry point for the Voice2Vital server:
// the HTTP API, the transcription-and-extraction pipeline, the records
// store, and the question-answering agent.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/voice2vital/voice2vital/internal/agent"
	"github.com/voice2vital/voice2vital/internal/config"
	"github.com/voice2vital/voice2vital/internal/extract"
	"github.com/voice2vital/voice2vital/internal/health"
	"github.com/voice2vital/voice2vital/internal/observe"
	"github.com/voice2vital/voice2vital/internal/pipeline"
	"github.com/voice2vital/voice2vital/internal/records"
	"github.com/voice2vital/voice2vital/internal/resilience"
	"github.com/voice2vital/voice2vital/internal/toolserver"
	"github.com/voice2vital/voice2vital/internal/web"
	"github.com/voice2vital/voice2vital/pkg/provider/embeddings"
	oaembed "github.com/voice2vital/voice2vital/pkg/provider/embeddings/openai"
	"github.com/voice2vital/voice2vital/pkg/provider/llm"
	"github.com/voice2vital/voice2vital/pkg/provider/llm/anyllm"
	oaillm "github.com/voice2vital/voice2vital/pkg/provider/llm/openai"
	"github.com/voice2vital/voice2vital/pkg/provider/transcription"
	"github.com/voice2vital/voice2vital/pkg/provider/transcription/revai"
)

const version = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Environment & configuration ───────────────────────────────────────────
	// .env is loaded first so ${VAR} references in the config file resolve.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "voice2vital: load .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voice2vital: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voice2vital: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voice2vital starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voice2vital",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Extraction model with failover ────────────────────────────────────────
	extractLLM := providers.LLM
	if providers.LLM != nil && providers.FallbackLLM != nil {
		fb := resilience.NewLLMFallback(providers.LLM, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
		fb.AddFallback(cfg.Providers.FallbackLLM.Name, providers.FallbackLLM)
		extractLLM = fb
		slog.Info("llm failover enabled",
			"primary", cfg.Providers.LLM.Name,
			"fallback", cfg.Providers.FallbackLLM.Name,
		)
	}

	// ── Records store ─────────────────────────────────────────────────────────
	var store *records.Store
	if cfg.Records.PostgresDSN != "" {
		if providers.Embeddings == nil {
			slog.Error("records.postgres_dsn is set but no embeddings provider is configured; semantic note search needs one")
			return 1
		}
		store, err = records.NewStore(ctx, cfg.Records.PostgresDSN, providers.Embeddings)
		if err != nil {
			slog.Error("failed to open records store", "err", err)
			return 1
		}
		defer store.Close()
		slog.Info("records store ready", "embedding_model", providers.Embeddings.ModelID())
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	var runner web.Runner
	if providers.Transcription != nil && extractLLM != nil {
		extractor := extract.New(extractLLM)
		pipeOpts := []pipeline.Option{pipeline.WithMetrics(metrics)}
		if cfg.Pipeline.PollIntervalSeconds > 0 {
			pipeOpts = append(pipeOpts, pipeline.WithPollInterval(time.Duration(cfg.Pipeline.PollIntervalSeconds)*time.Second))
		}
		if cfg.Pipeline.PollTimeoutSeconds > 0 {
			pipeOpts = append(pipeOpts, pipeline.WithPollTimeout(time.Duration(cfg.Pipeline.PollTimeoutSeconds)*time.Second))
		}
		runner = pipeline.New(providers.Transcription, extractor, pipeOpts...)
	}

	// ── Tool server & agent ───────────────────────────────────────────────────
	var (
		webStore web.Store
		asker    web.Asker
	)
	if store != nil {
		webStore = store
		tools := toolserver.New(store, toolserver.WithMetrics(metrics))
		if extractLLM != nil {
			agentOpts := []agent.Option{agent.WithMetrics(metrics)}
			if cfg.Agent.MaxIterations > 0 {
				agentOpts = append(agentOpts, agent.WithMaxIterations(cfg.Agent.MaxIterations))
			}
			if cfg.Agent.Temperature > 0 {
				agentOpts = append(agentOpts, agent.WithTemperature(cfg.Agent.Temperature))
			}
			if cfg.Agent.MaxTokens > 0 {
				agentOpts = append(agentOpts, agent.WithMaxTokens(cfg.Agent.MaxTokens))
			}
			asker = agent.New(extractLLM, tools, agentOpts...)
		}
	}

	// ── Health probes ─────────────────────────────────────────────────────────
	var checkers []health.Checker
	if store != nil {
		checkers = append(checkers, health.Database(store))
	}
	if providers.Transcription != nil {
		checkers = append(checkers, health.Dependency("transcription", nil))
	}
	if extractLLM != nil {
		checkers = append(checkers, health.Dependency("llm", nil))
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	api := web.New(webStore, runner, asker,
		web.WithMaxUploadMB(cfg.Server.MaxUploadMB),
		web.WithHealth(health.New(checkers...)),
	)

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupSummary(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Server.TLS != nil {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("server ready — press Ctrl+C to shut down", "addr", addr)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	flushCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := shutdownTelemetry(flushCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with Voice2Vital. Used for startup logging.
var builtinProviders = map[string][]string{
	"llm":           {"openai", "gemini", "ollama", "anthropic", "mistral", "deepseek", "groq"},
	"transcription": {"revai"},
	"embeddings":    {"openai"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai goes through the native SDK so that JSON-schema response
	// enforcement is available for note extraction; the other hosted vendors
	// share the any-llm pattern of optional APIKey + optional BaseURL.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, oaillm.WithOrganization(org))
		}
		p, err := oaillm.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	for _, providerName := range []string{"gemini", "anthropic", "mistral", "deepseek", "groq"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(providerName, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		p, err := anyllm.NewOllama(entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// ── Transcription ─────────────────────────────────────────────────────────

	reg.RegisterTranscription("revai", func(entry config.ProviderEntry) (transcription.Provider, error) {
		var opts []revai.Option
		if entry.BaseURL != "" {
			opts = append(opts, revai.WithBaseURL(entry.BaseURL))
		}
		return revai.New(entry.APIKey, opts...)
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// providerSet holds the instantiated external providers for the application
// to consume. Any field may be nil when not configured.
type providerSet struct {
	LLM           llm.Provider
	FallbackLLM   llm.Provider
	Transcription transcription.Provider
	Embeddings    embeddings.Provider
}

// buildProviders instantiates all providers named in cfg using the registry.
func buildProviders(cfg *config.Config, reg *config.Registry) (*providerSet, error) {
	ps := &providerSet{}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "llm", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		} else {
			ps.LLM = p
			slog.Info("provider created", "kind", "llm", "name", name)
		}
	}

	if name := cfg.Providers.FallbackLLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.FallbackLLM)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "fallback_llm", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create fallback llm provider %q: %w", name, err)
		} else {
			ps.FallbackLLM = p
			slog.Info("provider created", "kind", "fallback_llm", "name", name)
		}
	}

	if name := cfg.Providers.Transcription.Name; name != "" {
		p, err := reg.CreateTranscription(cfg.Providers.Transcription)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "transcription", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create transcription provider %q: %w", name, err)
		} else {
			ps.Transcription = p
			slog.Info("provider created", "kind", "transcription", "name", name)
		}
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "embeddings", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		} else {
			ps.Embeddings = p
			slog.Info("provider created", "kind", "embeddings", "name", name)
		}
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      Voice2Vital — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("Fallback LLM", cfg.Providers.FallbackLLM.Name, cfg.Providers.FallbackLLM.Model)
	printProvider("Transcription", cfg.Providers.Transcription.Name, cfg.Providers.Transcription.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	if cfg.Records.PostgresDSN != "" {
		fmt.Printf("║  Records db     : %-19s ║\n", "configured")
	} else {
		fmt.Printf("║  Records db     : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr    : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-13s  : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
