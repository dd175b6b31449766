// Package cli implements the profile-memory CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/profile-memory/internal/config"
	"github.com/rcliao/profile-memory/internal/logger"
	"github.com/rcliao/profile-memory/internal/service"
)

var (
	subjectFlag   string
	dataDirFlag   string
	backendFlag   string
	logFormatFlag string
	verboseFlag   bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "profile-memory",
	Short: "Long-term profile memory for conversational assistants",
	Long: "Remember facts about a user, recall them ranked by importance and recency, " +
		"and compress them into prompt-sized context. JSON-file or SQLite backed.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&subjectFlag, "subject", "u", "", "Subject (user) id whose memories to use")
	RootCmd.PersistentFlags().StringVarP(&dataDirFlag, "data-dir", "d", "", "Data directory (default: $PROFILE_MEMORY_DATA_DIR or ~/.profile-memory)")
	RootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Storage backend: json or sqlite")
	RootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: console or json")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	if logFormatFlag != "" {
		cfg.LogFormat = logFormatFlag
	}
	if verboseFlag {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openService() (*service.MemoryService, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New("profile-memory", cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return service.New(cfg, log)
}

// subject returns the --subject flag, exiting when it is missing.
func subject() string {
	if strings.TrimSpace(subjectFlag) == "" {
		exitErr("subject", fmt.Errorf("--subject is required"))
	}
	return subjectFlag
}

// readInput returns piped stdin, or "" when stdin is a terminal.
func readInput(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
