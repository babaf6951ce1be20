package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratedig/internal/applygate"
	"cratedig/internal/pipeline"
)

func newTagCommand(ctx *commandContext) *cobra.Command {
	var copyPlace bool
	var quarantineDir string

	cmd := &cobra.Command{
		Use:   "tag <file>",
		Short: "Identify one file, review the proposal, and apply it on approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiles(ctx, cmd, args, copyPlace, quarantineDir, 1)
		},
	}

	cmd.Flags().BoolVar(&copyPlace, "copy-place", false, "Copy into the library and tag the copy instead of retagging in place")
	cmd.Flags().StringVar(&quarantineDir, "quarantine-dir", "", "Move unresolved or duplicate files here instead of leaving them")
	return cmd
}

// runFiles wires the pipeline, gate, and interactive approver for tag and
// batch commands.
func runFiles(ctx *commandContext, cmd *cobra.Command, paths []string, copyPlace bool, quarantineDir string, workers int) error {
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

	if quarantineDir == "" {
		quarantineDir = cfg.Paths.QuarantineDir
	}
	if copyPlace || cfg.Apply.CopyPlace {
		copyPlace = true
	}
	mode := applygate.ModeTagOnly
	if copyPlace {
		mode = applygate.ModeCopyPlace
	}

	gate := applygate.New(
		cfg.Paths.LibraryDir,
		quarantineDir,
		applygate.NewFFmpegHasher(cfg.Apply.FFmpegBinary, nil),
		applygate.TaglibWriter{},
		cfg.Apply.KeepTags,
		logger,
	)

	runner := pipeline.NewRunner(p, gate, newInteractiveApprover(), mode, workers, logger)
	outcomes := runner.Run(cmd.Context(), paths)

	printOutcomes(cmd, outcomes)
	return nil
}

func printOutcomes(cmd *cobra.Command, outcomes []pipeline.BatchOutcome) {
	rows := make([][]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		detail := outcome.Apply.TargetPath
		if outcome.Apply.Err != nil {
			detail = outcome.Apply.Err.Error()
		}
		rows = append(rows, []string{outcome.Path, string(outcome.Apply.Outcome), detail})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "Outcome", "Detail"}, rows, nil))
}
