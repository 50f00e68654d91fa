package commands

import (
	"strconv"

	"toplogger-backend/lib/analysis"

	"github.com/spf13/cobra"
)

var gymRefresh *bool

func init() {
	gymRefresh = gymCmd.Flags().Bool("refresh", false, "Bypass the response cache and fetch everything fresh.")
	rootCmd.AddCommand(gymCmd)
}

var gymCmd = &cobra.Command{
	Use:   "gym <gym id>",
	Short: "Shows a gym's current climbs joined with its live circuits.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		gymID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fatal("failed to parse gym id", err)
		}

		svc := newService()
		climbs, err := svc.GymClimbs(cmd.Context(), gymID, analysis.GymClimbsOptions{
			ForceRefresh: *gymRefresh,
		})
		if err != nil {
			fatal("failed to build gym climbs", err)
		}

		renderTable(climbs, []string{
			"circuit_name", "number", "grade_str", "color", "setter", "remarks",
		})
	},
}
