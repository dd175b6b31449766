package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/profile-memory/internal/contextbuild"
)

func init() {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize recent conversation turns",
		Long:  `Read a JSON array of turns ([{"role":"user","content":"..."}]) from stdin and print a bounded summary.`,
		Run:   runSummarize,
	}

	RootCmd.AddCommand(cmd)
}

func runSummarize(cmd *cobra.Command, args []string) {
	data, err := readInput(cmd)
	if err != nil {
		exitErr("read stdin", err)
	}

	var turns []contextbuild.Turn
	if data != "" {
		if err := json.Unmarshal([]byte(data), &turns); err != nil {
			exitErr("parse json", err)
		}
	}

	svc, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer svc.Close()

	fmt.Fprintln(cmd.OutOrStdout(), svc.BuildConversationSummary(cmd.Context(), subject(), turns))
}
