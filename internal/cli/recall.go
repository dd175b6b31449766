package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/profile-memory/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Recall ranked memories",
		Long:  "List the subject's memories ranked by importance, then recency. An optional query keeps only matching facts.",
		Run:   runRecall,
	}

	cmd.Flags().StringP("category", "c", "", "Filter by category")
	cmd.Flags().StringP("tag", "t", "", "Filter by tag")
	cmd.Flags().String("importance", "", "Only records at this importance (low, medium, high)")
	cmd.Flags().IntP("limit", "l", -1, "Max results (negative uses PROFILE_MEMORY_DEFAULT_LIMIT)")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	tag, _ := cmd.Flags().GetString("tag")
	importance, _ := cmd.Flags().GetString("importance")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	svc, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer svc.Close()

	printJSON(cmd, svc.Recall(cmd.Context(), subject(), service.RecallParams{
		Query:      query,
		Category:   category,
		Tag:        tag,
		Importance: importance,
		Limit:      limit,
	}))
}
