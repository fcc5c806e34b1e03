package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/app"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/config"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the scheduled sweep",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
