package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/app"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/allocation"
)

var finalizeReq allocation.FinalizeRequest

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Recompute vehicle allocations for one journey, an operator or all journeys",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := now()
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			res, err := svc.Allocator.FinalizeAllocations(ctx, finalizeReq, at)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

var removeVehicleCmd = &cobra.Command{
	Use:   "remove-vehicle JOURNEY_ID VEHICLE_ID",
	Short: "Pull a vehicle from a journey and re-house its parties",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := now()
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			res, err := svc.Allocator.RemoveVehicle(ctx, args[0], args[1], at)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

func init() {
	finalizeCmd.Flags().StringVar(&finalizeReq.JourneyID, "journey", "", "journey id")
	finalizeCmd.Flags().StringVar(&finalizeReq.OperatorID, "operator", "", "operator id")
	finalizeCmd.Flags().BoolVar(&finalizeReq.All, "all", false, "every upcoming journey")
	rootCmd.AddCommand(finalizeCmd, removeVehicleCmd)
}
