package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/service"
)

func newPromptCommand(a *app) *cobra.Command {
	prompt := &cobra.Command{
		Use:   "prompt",
		Short: "Read and write channel system prompts",
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the prompt stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.ValidatePromptKey(args[0]); err != nil {
				return err
			}
			text, err := a.backend.Prompts.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if text == "" {
				return fmt.Errorf("no prompt stored for %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <text...>",
		Short: "Store a prompt under key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, text := args[0], strings.TrimSpace(strings.Join(args[1:], " "))
			if err := service.ValidatePromptKey(key); err != nil {
				return err
			}
			if text == "" {
				return fmt.Errorf("prompt text is empty")
			}
			if err := a.backend.Prompts.Set(cmd.Context(), key, text); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓")+" stored prompt for "+key)
			return nil
		},
	}

	var asJSON bool
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every stored prompt",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts, err := a.backend.Prompts.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(toFileEntries(prompts))
			}
			if len(prompts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no prompts stored")
				return nil
			}
			return renderPrompts(cmd.OutOrStdout(), prompts)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "output as JSON (the import format)")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store every prompt in a JSON file",
		Long: `Store every prompt in a JSON file, in one transaction on postgres.
The file holds an array of {"key": "...", "text": "..."} objects, the same
shape "prompt list --json" prints.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			var entries []fileEntry
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			prompts := make([]model.SystemPrompt, len(entries))
			for i, e := range entries {
				prompts[i] = model.SystemPrompt{Key: e.Key, Text: e.Text}
			}
			if err := service.ImportPrompts(cmd.Context(), a.backend.Tx, prompts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s imported %d prompts\n", color.GreenString("✓"), len(prompts))
			return nil
		},
	}

	prompt.AddCommand(get, set, list, importCmd)
	return prompt
}

// fileEntry is the JSON shape shared by list --json and import.
type fileEntry struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

func toFileEntries(prompts []model.SystemPrompt) []fileEntry {
	out := make([]fileEntry, len(prompts))
	for i, p := range prompts {
		out[i] = fileEntry{Key: p.Key, Text: p.Text}
	}
	return out
}
