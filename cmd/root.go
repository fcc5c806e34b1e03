package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/app"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/config"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/logger"
)

var (
	cfgPath string
	output  string
	atFlag  string
)

var rootCmd = &cobra.Command{
	Use:           "pace",
	Short:         "Journey allocation, crew dispatch and T-24 sweep service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json); PACE_ variables override it")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	rootCmd.PersistentFlags().StringVar(&atFlag, "at", "", "evaluate as of this RFC3339 time instead of now")
}

// Execute runs the CLI with a context canceled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// now returns the --at time or the wall clock.
func now() (time.Time, error) {
	if atFlag == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, atFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: %w", err)
	}
	return t, nil
}

// withService loads the configuration, starts a service for the duration of
// fn and closes it afterwards.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *app.Service) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	svc.Start(ctx)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(ctx, svc)
}
