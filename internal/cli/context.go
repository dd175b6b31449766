package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Assemble memories into a prompt-ready text block",
		Long: "Rank the subject's memories for the query and render one fact per line, " +
			"bounded by PROFILE_MEMORY_CONTEXT_MAX_CHARS. With --conversation, list the " +
			"top conversation memories instead.",
		Run: runContext,
	}

	cmd.Flags().IntP("limit", "l", -1, "Max facts (negative uses PROFILE_MEMORY_CONTEXT_MAX_ITEMS)")
	cmd.Flags().Bool("conversation", false, "Show the top conversation memories as JSON")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	conversation, _ := cmd.Flags().GetBool("conversation")
	query := strings.Join(args, " ")

	svc, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer svc.Close()

	if conversation {
		printJSON(cmd, svc.ConversationContext(cmd.Context(), subject()))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), svc.BuildContext(cmd.Context(), subject(), query, limit))
}
