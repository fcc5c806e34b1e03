package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/config"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/auth"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token STAFF_ID",
	Short: "Issue a bearer token for a staff member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Auth.Secret == "" {
			return errors.New("auth.secret is not configured")
		}
		res, err := auth.NewJWTResolver(cfg.Auth)
		if err != nil {
			return err
		}
		tok, err := res.Issue(args[0], time.Now(), tokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
