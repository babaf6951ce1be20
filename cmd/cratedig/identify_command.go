package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratedig/internal/pipeline"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "identify <file>",
		Short: "Identify a recording and show the proposed tags without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			p, err := pipeline.Build(cfg, logger)
			if err != nil {
				return err
			}

			result := p.Process(cmd.Context(), args[0])
			if result.Err != nil {
				return fmt.Errorf("identify %s: %w", args[0], result.Err)
			}

			fmt.Fprint(cmd.OutOrStdout(), renderProposal(result))
			return nil
		},
	}
}
