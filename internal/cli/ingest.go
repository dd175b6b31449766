package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store memories extracted by a generation step",
		Long: `Read an extraction payload from stdin and store every usable memory:
{"response": "...", "memories": [{"content": "...", "category": "...", "importance": "...", "type": "user"}]}`,
		Run: runIngest,
	}

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	data, err := readInput(cmd)
	if err != nil {
		exitErr("read stdin", err)
	}
	if strings.TrimSpace(data) == "" {
		exitErr("ingest", fmt.Errorf("payload is required on stdin"))
	}

	svc, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer svc.Close()

	res, err := svc.Ingest(cmd.Context(), subject(), []byte(data))
	if err != nil {
		exitErr("ingest", err)
	}
	printJSON(cmd, res)
}
