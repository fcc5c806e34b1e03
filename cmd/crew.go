package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/app"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

var (
	assignOperator string
	declineReason  string
	declineAs      string
)

var assignCmd = &cobra.Command{
	Use:   "assign-crew JOURNEY_ID VEHICLE_ID",
	Short: "Ensure a journey vehicle has a lead",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := now()
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			res, err := svc.Crew.AssignCrew(ctx, args[0], args[1], assignOperator, at)
			if errors.Is(err, model.ErrNoEligibleCandidate) {
				return printResult(cmd.OutOrStdout(), map[string]any{"no_eligible_candidate": true, "detail": err.Error()})
			}
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

var declineCmd = &cobra.Command{
	Use:   "decline ASSIGNMENT_ID",
	Short: "Decline an assignment on behalf of the staff member holding it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := now()
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			res, err := svc.Crew.DeclineCrewAssignment(ctx, args[0], declineAs, declineReason, at)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

func init() {
	assignCmd.Flags().StringVar(&assignOperator, "operator", "", "reject vehicles of other operators")
	declineCmd.Flags().StringVar(&declineReason, "reason", "", "free-text reason")
	declineCmd.Flags().StringVar(&declineAs, "as", "", "staff id of the caller")
	_ = declineCmd.MarkFlagRequired("as")
	rootCmd.AddCommand(assignCmd, declineCmd)
}
