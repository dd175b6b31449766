package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/profile-memory/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a fact about the subject",
		Long:  "Store a fact. Content can be a positional arg or piped via stdin.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("category", "c", "", "Category: name, personal_facts, preferences, goals, skills, projects, events, friends, family, conversation (default personal_facts)")
	cmd.Flags().StringP("importance", "i", "medium", "Importance: low, medium, high")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("kind", "user", "Kind: user or session")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	importance, _ := cmd.Flags().GetString("importance")
	tagsStr, _ := cmd.Flags().GetString("tags")
	kind, _ := cmd.Flags().GetString("kind")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		in, err := readInput(cmd)
		if err != nil {
			exitErr("read stdin", err)
		}
		content = in
	}
	if strings.TrimSpace(content) == "" {
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	var tags []string
	if tagsStr != "" {
		for _, t := range strings.Split(tagsStr, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	svc, err := openService()
	if err != nil {
		exitErr("open service", err)
	}
	defer svc.Close()

	mem, err := svc.Remember(cmd.Context(), subject(), service.RememberParams{
		Content:    content,
		Category:   category,
		Importance: importance,
		Tags:       tags,
		Kind:       kind,
	})
	if err != nil {
		exitErr("remember", err)
	}
	printJSON(cmd, mem)
}
