package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/soochol/notegen/internal/a2askill"
	"github.com/soochol/notegen/internal/config"
	"github.com/soochol/notegen/internal/httpapi"
	"github.com/soochol/notegen/internal/llmadapter"
	"github.com/soochol/notegen/internal/pipeline"
	"github.com/soochol/notegen/internal/runlog"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve()
		return
	}
	fmt.Println("notegen v0.1.0")
	fmt.Println("Usage: notegen serve")
}

func serve() {
	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	transport, providerName := defaultTransport(cfg)
	if transport == nil {
		slog.Warn("no providers configured; compile requests touching \"ai\" slots will fail")
	} else {
		slog.Info("using LLM provider", "name", providerName)
	}

	var llm *llmadapter.Client
	if transport != nil {
		llm = llmadapter.NewClient(transport)
	}

	p := pipeline.New(llm)

	var runLog *runlog.DB
	if cfg.RunLog.URL != "" {
		db, err := runlog.Open(context.Background(), cfg.RunLog.URL)
		if err != nil {
			slog.Warn("run log unavailable, proceeding without it", "err", err)
		} else {
			defer db.Close()
			if err := db.Migrate(context.Background()); err != nil {
				slog.Error("run log migration failed", "err", err)
				os.Exit(1)
			}
			runLog = db
			slog.Info("run log connected", "url", cfg.RunLog.URL)
		}
	}

	genOpts := pipeline.GenerationOptions{
		Model:      cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:  cfg.Generation.MaxTokens,
		MaxRetries: cfg.Generation.MaxRetries,
	}

	srv := httpapi.NewServer(p, runLog, genOpts)
	router := srv.Handler()

	a2aBaseURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	executor := &a2askill.Executor{Templates: srv.Templates(), Pipeline: p, Generation: genOpts}
	a2askill.Mount(router, executor, a2aBaseURL)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("starting notegen server", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// defaultTransport picks the first configured provider deterministically
// by name and builds an HTTP transport for it. There is exactly one
// concept of "the" LLM here (C12 calls one model per request), unlike the
// teacher's multi-provider registry keyed by workflow node.
func defaultTransport(cfg *config.Config) (llmadapter.Transport, string) {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, ""
	}
	sort.Strings(names)
	name := names[0]
	pc := cfg.Providers[name]

	opts := []llmadapter.HTTPTransportOption{}
	if pc.URL != "" {
		opts = append(opts, llmadapter.WithBaseURL(pc.URL))
	}
	return llmadapter.NewHTTPTransport(pc.APIKey, opts...), name
}
