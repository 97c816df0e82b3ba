package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amnes-io/amnes/pkg/client"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"

	controllerAddr string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "amnesctl",
	Short:   "Control a running AMNES controller",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&controllerAddr, "controller", "127.0.0.1:7700", "Controller address")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(killCmd)
}

func withController(fn func(ctx context.Context, c *client.Controller) error) error {
	c, err := client.NewController(controllerAddr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, c)
}

var importCmd = &cobra.Command{
	Use:   "import <project.yaml>",
	Short: "Import a project definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		definition, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read project definition: %w", err)
		}
		return withController(func(ctx context.Context, c *client.Controller) error {
			resp, err := c.ImportProject(ctx, definition)
			if err != nil {
				return err
			}
			fmt.Printf("Imported project %s (id %s)\n", resp.Slug, resp.ID)
			return nil
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start <slug>",
	Short: "Start an imported project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c *client.Controller) error {
			if err := c.StartProject(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Started project %s\n", args[0])
			return nil
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Abort the running project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c *client.Controller) error {
			if err := c.StopProject(ctx); err != nil {
				return err
			}
			fmt.Println("Stop requested")
			return nil
		})
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Shut the controller down gracefully",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c *client.Controller) error {
			if err := c.Shutdown(ctx); err != nil {
				return err
			}
			fmt.Println("Shutdown requested")
			return nil
		})
	},
}

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Terminate the controller immediately",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c *client.Controller) error {
			if err := c.Kill(ctx); err != nil {
				return err
			}
			fmt.Println("Kill requested")
			return nil
		})
	},
}
