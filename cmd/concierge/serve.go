package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/concierge/api"
	"github.com/tailored-agentic-units/concierge/kernel"
	"github.com/tailored-agentic-units/concierge/observability"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		address    string
		guestActor int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		Long: `Starts the HTTP API:

  POST /chat     {"query": "..."} answered for the authenticated actor
  GET  /healthz  liveness
  GET  /metrics  Prometheus metrics

Callers authenticate with a bearer token from CONCIERGE_API_TOKENS or, behind a
trusted gateway, with the header named by CONCIERGE_API_ACTOR_HEADER.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiCfg, err := loadAPIConfig()
			if err != nil {
				return err
			}
			if address != "" {
				apiCfg.Address = address
			}
			if guestActor > 0 {
				apiCfg.GuestActor = guestActor
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := observability.NewMetricsObserver("concierge", registry)
			if err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}

			rt, err := bootstrap(ctx, flags, metrics)
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(apiCfg.Tokens) == 0 && apiCfg.ActorHeader == "" && apiCfg.GuestActor <= 0 {
				rt.logger.Warn("no authentication configured; every chat request will be rejected")
			}

			handler := api.NewHandler(rt.kernel, apiCfg,
				api.WithLogger(rt.logger),
				api.WithMetrics(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
			return api.Serve(ctx, apiCfg, handler, rt.logger)
		},
	}

	cmd.Flags().StringVarP(&address, "addr", "a", "", "Listen address (overrides CONCIERGE_API_ADDRESS)")
	cmd.Flags().Int64Var(&guestActor, "guest-actor", 0, "Actor id for unauthenticated requests (disabled when 0)")
	return cmd
}

// loadAPIConfig reads CONCIERGE_API_* over the API defaults.
func loadAPIConfig() (api.Config, error) {
	cfg := api.DefaultConfig()

	var env api.Config
	if err := envconfig.Process(kernel.EnvPrefix+"_API", &env); err != nil {
		return cfg, fmt.Errorf("failed to read %s_API environment: %w", kernel.EnvPrefix, err)
	}
	cfg.Merge(&env)
	return cfg, nil
}
