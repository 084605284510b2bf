package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/lifecycle"
	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/settings"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the portal: bot, sync engine, and file watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return runServe(cmd.Context(), configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	s, err := settings.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	app, err := lifecycle.New(s)
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := app.Init(runCtx); err != nil {
		return fmt.Errorf("starting app: %w", err)
	}
	app.Logger.Info("portal started", "db_folder", s.DBFolder, "xmpp_domain", s.XMPPDomain)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Metrics.Registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(s.MetricsListenAddr, mux); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("metrics server exited", "error", err)
		}
	}()

	sigHandler := newSignalHandler(app, app.Logger)
	sigHandler.Start()
	defer sigHandler.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	app.Logger.Info("shutting down")
	haltCtx, haltCancel := context.WithTimeout(context.Background(), s.SyncTimeout())
	defer haltCancel()
	return app.Halt(haltCtx)
}
