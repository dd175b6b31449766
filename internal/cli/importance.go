package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "importance <id> <level>",
		Short: "Change a memory's importance",
		Long:  "Set the importance of a memory to low, medium or high.",
		Args:  cobra.ExactArgs(2),
		Run:   runImportance,
	}

	RootCmd.AddCommand(cmd)
}

func runImportance(cmd *cobra.Command, args []string) {
	svc, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer svc.Close()

	mem, err := svc.UpdateImportance(cmd.Context(), subject(), args[0], args[1])
	if err != nil {
		exitErr("importance", err)
	}
	printJSON(cmd, mem)
}
