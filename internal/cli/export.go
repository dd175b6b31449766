package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/profile-memory/internal/exchange"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the subject's memories",
		Long:  "Export up to 1000 ranked memories as JSON, CSV or YAML.",
		Run:   runExport,
	}

	cmd.Flags().StringP("format", "f", "json", "Output format: json, csv or yaml")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	formatStr, _ := cmd.Flags().GetString("format")
	format, err := exchange.ParseFormat(formatStr)
	if err != nil {
		exitErr("export", err)
	}

	svc, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer svc.Close()

	if err := svc.Export(cmd.Context(), subject(), cmd.OutOrStdout(), format); err != nil {
		exitErr("export", err)
	}
}
