// Package serve implements the long-running worker command. It assembles the
// store, event bus, remote clients and the enrichment pipeline, and exposes
// the Prometheus metrics endpoint for an embedding server to scrape.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plantpal/plantpal-go/internal/conf"
	"github.com/plantpal/plantpal-go/internal/logging"
	"github.com/plantpal/plantpal-go/internal/runtime"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the enrichment worker",
		Long:  "Assemble the store, event bus and remote clients, expose the metrics endpoint, and run until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address for the metrics endpoint (empty disables it)")
	cmd.Flags().IntVar(&settings.Enrichment.Workers, "workers", settings.Enrichment.Workers, "Event bus worker count")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func run(settings *conf.Settings, listen string) error {
	logger := logging.ForService("serve")

	app, err := runtime.Build(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Shutdown(10 * time.Second); err != nil {
			logger.Error("shutdown incomplete", "error", err)
		}
	}()

	logger.Info("enrichment worker started", "config", settings.String())

	var server *http.Server
	serverErr := make(chan error, 1)
	if listen != "" {
		mux := http.NewServeMux()
		app.Metrics.RegisterHandlers(mux)
		server = &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics endpoint listening", "addr", listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("metrics endpoint failed", "error", err)
		return err
	}

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("metrics endpoint shutdown failed", "error", err)
		}
	}
	return nil
}
