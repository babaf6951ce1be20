package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratedig/internal/config"
	"cratedig/internal/services/llm"
)

func newLLMCommand(ctx *commandContext) *cobra.Command {
	llmCmd := &cobra.Command{
		Use:   "llm",
		Short: "Normalizer backend utilities",
	}

	llmCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Verify connectivity to the configured LLM backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.LLM.Backend == config.LLMBackendRules {
				fmt.Fprintln(cmd.OutOrStdout(), "Backend is the deterministic rules engine; nothing to test")
				return nil
			}

			client := llm.NewClient(llm.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				Referer:        cfg.LLM.Referer,
				Title:          cfg.LLM.Title,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			})
			if err := client.HealthCheck(cmd.Context()); err != nil {
				return fmt.Errorf("llm backend unreachable: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %s responded\n", cfg.LLM.Model)
			return nil
		},
	})

	return llmCmd
}
