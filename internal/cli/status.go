package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Inspect the subject's backing storage",
		Long:  "Show where the subject's memories live, whether the file exists, its size, and a sample of records.",
		Run:   runStatus,
	}

	RootCmd.AddCommand(cmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	svc, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer svc.Close()

	printJSON(cmd, svc.Status(cmd.Context(), subject()))
}
