package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/profile-memory/internal/query"
)

func init() {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the subject's profile summary",
		Long:  "Group durable facts into preferences, personal facts, goals, skills and recent conversations.",
		Run:   runProfile,
	}

	cmd.Flags().IntP("limit", "l", 5, "Entries per section; goals and conversations get three fifths of it")

	RootCmd.AddCommand(cmd)
}

func runProfile(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	svc, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer svc.Close()

	printJSON(cmd, svc.ProfileSummary(cmd.Context(), subject(), query.LimitsFor(limit)))
}
