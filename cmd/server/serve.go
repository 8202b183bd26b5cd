package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/williamzujkowski/obmc-manager/internal/api"
	"github.com/williamzujkowski/obmc-manager/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API for the configured hosts.

Examples:
  # Single host from flags
  obmc-manager serve --host https://10.0.0.5 --pass 0penBmc

  # Hosts from a config file, API key from the environment
  OBMC_API_KEY=secret obmc-manager serve --config hosts.yaml
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("api-key", "", "optional API key for authentication")
	_ = v.BindPFlag(configAddr, serveCmd.Flags().Lookup("addr"))
	_ = v.BindPFlag(configAPIKey, serveCmd.Flags().Lookup("api-key"))
}

func serve(ctx context.Context) error {
	hostConfigs, err := hosts(v)
	if err != nil {
		return err
	}
	if len(hostConfigs) == 0 {
		return errors.New("no hosts configured: pass --host or a config file with hosts")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cfg := &api.Config{
		Hosts:      hostConfigs,
		APIKey:     v.GetString(configAPIKey),
		Operations: metrics.NewOperations(reg),
		Transport:  metrics.NewTransport(reg),
		Gatherer:   reg,
	}

	addr := v.GetString(configAddr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	for id, h := range hostConfigs {
		log.Info().Str("host", id).Str("name", h.Name).Str("hostname", h.Hostname).Msg("managing host")
	}
	if cfg.APIKey != "" {
		log.Info().Msg("API key authentication enabled")
	}
	log.Info().Str("addr", addr).Msg("OpenBMC manager starting")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
