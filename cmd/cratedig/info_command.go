package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratedig/internal/audiofile"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show technical properties and existing tags of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := audiofile.Describe(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDescriptor(desc))
			return nil
		},
	}
}
