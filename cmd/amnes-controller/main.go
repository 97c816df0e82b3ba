package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amnes-io/amnes/pkg/api"
	"github.com/amnes-io/amnes/pkg/client"
	"github.com/amnes-io/amnes/pkg/config"
	"github.com/amnes-io/amnes/pkg/controller"
	"github.com/amnes-io/amnes/pkg/events"
	"github.com/amnes-io/amnes/pkg/metrics"
	"github.com/amnes-io/amnes/pkg/scheduler"
	"github.com/amnes-io/amnes/pkg/storage"
	"github.com/amnes-io/amnes/pkg/transfer"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "amnes-controller",
	Short:   "AMNES controller - drives network experiments across worker nodes",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return run(configPath)
	},
}

func init() {
	rootCmd.Flags().String("config", "", "Path to controller configuration file")
}

func run(configPath string) error {
	cfg, err := config.LoadControllerConfig(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Log.Logger()

	store, err := newStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	collector := metrics.NewCollector(broker)
	collector.Start()
	defer collector.Stop()

	transferServer := transfer.NewServer(store, broker, logger)
	if cfg.TransferAdvertiseAddr != "" {
		transferServer.SetAdvertiseAddr(cfg.TransferAdvertiseAddr)
	}
	if err := transferServer.Start(cfg.TransferAddr); err != nil {
		return err
	}

	connect := func(addr string) (scheduler.WorkerConn, error) {
		return client.NewWorker(addr)
	}
	ctrl := controller.New(store, broker, transferServer, connect, cfg.ControlAddr(), logger)

	apiServer := api.NewServer(ctrl, logger)
	go func() {
		if err := apiServer.Start(cfg.ListenAddr); err != nil {
			logger.Error().Err(err).Msg("Control API stopped")
		}
	}()

	go func() {
		http.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			logger.Error().Err(err).Msg("Metrics endpoint stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Signal received, shutting down")
		ctrl.Shutdown()
	case <-ctrl.Done():
		logger.Info().Msg("Shutdown requested over the control API")
	}

	apiServer.Stop()
	transferServer.Shutdown()
	return nil
}

func newStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return storage.NewSQLStore(cfg.DataDir)
	case "bolt", "":
		return storage.NewBoltStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
