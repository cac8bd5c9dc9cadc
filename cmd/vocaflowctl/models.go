package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vocaflow/internal/config"
	"vocaflow/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the Gemini models available to GOOGLE_API_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.GoogleAPIKey == "" {
			return errors.New("GOOGLE_API_KEY is not set")
		}

		provider, err := llm.NewGeminiProvider(cmd.Context(), llm.GeminiConfig{
			APIKey: cfg.GoogleAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			return err
		}

		models, err := provider.ListModels(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tACTIONS")
		for _, m := range models {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.DisplayName, strings.Join(m.Actions, ","))
		}
		return tw.Flush()
	},
}
