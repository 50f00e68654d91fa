package commands

import (
	"log/slog"

	"toplogger-backend/lib/analysis"

	"github.com/spf13/cobra"
)

var userRefresh *bool
var userUntopped *bool
var userUsedOnly *bool

func init() {
	userRefresh = userCmd.Flags().Bool("refresh", false, "Bypass the response cache and fetch everything fresh.")
	userUntopped = userCmd.Flags().Bool("untopped", false, "Include ascends that were never topped.")
	userUsedOnly = userCmd.Flags().Bool("used", false, "Only fetch logged ascends.")
	rootCmd.AddCommand(userCmd)
}

var userCmd = &cobra.Command{
	Use:   "user <id or share link>",
	Short: "Shows a user's ascend history with grades, colors and setters resolved.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID, err := analysis.ParseUserID(args[0])
		if err != nil {
			fatal("failed to parse user id", err)
		}

		svc := newService()
		tables, err := svc.UserMasterTables(cmd.Context(), userID, analysis.UserTablesOptions{
			ForceRefresh:    *userRefresh,
			IncludeUntopped: *userUntopped,
			UsedOnly:        *userUsedOnly,
		})
		if err != nil {
			fatal("failed to build user tables", err)
		}

		for _, gym := range tables.Gyms {
			slog.Info("gym", "id", gym.ID, "name", gym.Name,
				"holds", len(gym.Holds), "setters", len(gym.Setters))
		}
		renderTable(tables.Ascends, []string{
			"date_logged", "grade_string", "color", "setter", "topped",
		})
	},
}
