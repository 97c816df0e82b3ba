package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amnes-io/amnes/pkg/config"
	"github.com/amnes-io/amnes/pkg/worker"
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
	Use:     "amnes-worker",
	Short:   "AMNES worker - executes experiment tasks on a node",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return run(configPath)
	},
}

func init() {
	rootCmd.Flags().String("config", "", "Path to worker configuration file")
}

func run(configPath string) error {
	cfg, err := config.LoadWorkerConfig(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Log.Logger()

	w, err := worker.New(logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Start(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Signal received, shutting down")
		w.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}
