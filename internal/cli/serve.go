package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/monorkin/living-power/internal/dbusapi"
	"github.com/monorkin/living-power/internal/globals"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger on the session bus",
	Long: `Claim io.livingpower.Ledger on the session bus and answer calls from the
desktop shell until interrupted. With --metrics-addr, ingest counters are also
exposed over HTTP in the Prometheus text format.`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		server := startMetricsServer(metricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	service := dbusapi.NewLedgerService(ctx, globals.Devices, globals.Collections, globals.Migration, globals.Logger)
	if err := service.Serve(ctx); err != nil {
		fail("Failed to serve on the session bus", err)
	}

	globals.Logger.Info("Shutting down")
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(globals.MetricsRegistry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		globals.Logger.Info("Serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			globals.Logger.Error("Metrics server failed", "error", err)
		}
	}()

	return server
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
}
