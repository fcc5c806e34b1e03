package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/app"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/audit"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one T-24 sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := now()
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			res, err := svc.Sweeper.Run(ctx, at)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

var exceptionsJourney string

var exceptionsCmd = &cobra.Command{
	Use:   "exceptions",
	Short: "List operator exceptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			var out []model.Exception
			err := svc.Store.View(ctx, func(tx store.Tx) error {
				var err error
				out, err = tx.Exceptions(ctx, exceptionsJourney)
				return err
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), out)
		})
	},
}

var (
	auditQuery audit.Query
	auditSince time.Duration
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditSince > 0 {
			auditQuery.Start = time.Now().Add(-auditSince)
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			recs, err := svc.Audit.Query(ctx, auditQuery)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), recs)
		})
	},
}

func init() {
	exceptionsCmd.Flags().StringVar(&exceptionsJourney, "journey", "", "journey id; empty lists all")
	auditCmd.Flags().StringVar(&auditQuery.JourneyID, "journey", "", "journey id")
	auditCmd.Flags().StringVar(&auditQuery.Kind, "kind", "", "allocation, removal, crew or sweep")
	auditCmd.Flags().DurationVar(&auditSince, "since", 0, "only records newer than this")
	rootCmd.AddCommand(sweepCmd, exceptionsCmd, auditCmd)
}
