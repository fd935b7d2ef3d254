// Command recordstools serves the medical-records tool catalogue over the
// Model Context Protocol, so external MCP clients (editors, desktop
// assistants, other agents) can query the same patient, doctor, and note
// tools the built-in records agent uses.
//
// By default it speaks MCP on stdio. With -listen it serves the
// streamable-HTTP transport instead.
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
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/voice2vital/voice2vital/internal/config"
	"github.com/voice2vital/voice2vital/internal/records"
	"github.com/voice2vital/voice2vital/internal/toolserver"
	"github.com/voice2vital/voice2vital/pkg/provider/embeddings"
	oaembed "github.com/voice2vital/voice2vital/pkg/provider/embeddings/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	dsn := flag.String("dsn", "", "PostgreSQL connection string (overrides records.postgres_dsn)")
	listen := flag.String("listen", "", "serve streamable HTTP on this address instead of stdio")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "recordstools: load .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recordstools: %v\n", err)
		return 1
	}

	// Logs go to stderr; on the stdio transport, stdout belongs to the
	// protocol.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	connString := cfg.Records.PostgresDSN
	if *dsn != "" {
		connString = *dsn
	}
	if connString == "" {
		fmt.Fprintln(os.Stderr, "recordstools: no database configured; set records.postgres_dsn or pass -dsn")
		return 1
	}

	embedder, err := buildEmbedder(cfg.Providers.Embeddings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recordstools: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := records.NewStore(ctx, connString, embedder)
	if err != nil {
		slog.Error("failed to open records store", "err", err)
		return 1
	}
	defer store.Close()

	srv := toolserver.New(store)

	if *listen != "" {
		return serveHTTP(ctx, srv, *listen)
	}

	slog.Info("serving records tools on stdio")
	if err := srv.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("mcp server error", "err", err)
		return 1
	}
	return 0
}

// serveHTTP exposes the tool server on the MCP streamable-HTTP transport
// until ctx is cancelled.
func serveHTTP(ctx context.Context, srv *toolserver.Server, addr string) int {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := httpSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	slog.Info("serving records tools over streamable HTTP", "addr", addr)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("mcp http server error", "err", err)
		return 1
	}
	return 0
}

// buildEmbedder constructs the embeddings provider for the store's semantic
// note search.
func buildEmbedder(entry config.ProviderEntry) (embeddings.Provider, error) {
	switch entry.Name {
	case "openai":
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	case "":
		return nil, errors.New("no embeddings provider configured; semantic note search needs one")
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", entry.Name)
	}
}
