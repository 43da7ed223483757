package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/torosent/callcheck/internal/auth"
	"github.com/torosent/callcheck/internal/config"
	"github.com/torosent/callcheck/internal/errmodel"
	"github.com/torosent/callcheck/internal/executor"
	"github.com/torosent/callcheck/internal/extractor"
	"github.com/torosent/callcheck/internal/httpclient"
	"github.com/torosent/callcheck/internal/logging"
	"github.com/torosent/callcheck/internal/metrics"
	"github.com/torosent/callcheck/internal/output"
	"github.com/torosent/callcheck/internal/tracing"
	"github.com/torosent/callcheck/internal/variables"
)

// flusher is the part of the tracing provider the app needs on exit.
type flusher interface {
	Shutdown(ctx context.Context) error
}

// app wires one command invocation.
type app struct {
	cfg        *config.Config
	logger     logging.Logger
	builder    *httpclient.RequestBuilder
	exec       *executor.Executor
	candidates errmodel.Chain
	policy     executor.Policy
	collector  *metrics.Collector
	store      *variables.MemoryStore
	tracing    flusher
	stdout     io.Writer
}

// loadConfig reads the command's flags and an optional positional target.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.NewLoader().FromFlags(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.TargetURL = strings.TrimSpace(args[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*app, error) {
	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return nil, err
	}
	candidates, err := errmodel.Lookup(cfg.ErrorModels...)
	if err != nil {
		return nil, err
	}
	rules, err := extractor.RulesFromConfig(cfg.Extract)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.FromConfig(cfg.Auth, nil)
	if err != nil {
		return nil, err
	}
	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}

	logger := logging.NewConsoleLogger(stderr, cfg.KeepLogs)
	collector := metrics.NewCollector()
	store := variables.NewStore(nil)
	client := httpclient.NewClient(httpclient.TimeoutsFromConfig(cfg))

	exec := executor.New(client,
		executor.WithLogger(logger),
		executor.WithKeepLogs(cfg.KeepLogs),
		executor.WithLogHeaders(cfg.LogHeaders),
		executor.WithTracer(provider.Tracer(), provider.ShouldPropagate()),
		executor.WithRecorder(collector),
		executor.WithRateLimit(rate.Limit(cfg.RateLimit), 1),
		executor.WithVariables(store),
		executor.WithAuth(tokens),
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		builder:    builder,
		exec:       exec,
		candidates: candidates,
		policy: executor.Policy{
			Strict:      cfg.Strict,
			LogBody:     cfg.LogBody,
			ServiceName: cfg.Service,
			Extract:     rules,
		},
		collector: collector,
		store:     store,
		tracing:   provider,
		stdout:    stdout,
	}, nil
}

// shutdownTimeout bounds the final span flush.
const shutdownTimeout = 5 * time.Second

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warning("flush traces: %v", err)
	}
}

func (a *app) request(ctx context.Context) (context.Context, *http.Request, error) {
	ctx = variables.NewContext(ctx, a.store)
	req, err := a.builder.Build(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("build request: %w", err)
	}
	return ctx, req, nil
}

// report prints res and appends it to the report file, if configured.
func (a *app) report(res executor.Result[executor.Response]) error {
	rep := output.FromResult(res)
	if err := output.PrintCall(a.stdout, rep, a.cfg.Output); err != nil {
		return err
	}
	if a.cfg.ReportFile != "" {
		if err := output.AppendReport(a.cfg.ReportFile, rep); err != nil {
			return err
		}
	}
	return nil
}
