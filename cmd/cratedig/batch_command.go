package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"cratedig/internal/audiofile"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var copyPlace bool
	var quarantineDir string
	var workers int

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Identify every supported audio file in a directory with per-file approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := collectAudioFiles(args[0])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no supported audio files under %s\n", args[0])
				return nil
			}

			if workers <= 0 {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				workers = cfg.Batch.CollectWorkers
			}
			return runFiles(ctx, cmd, paths, copyPlace, quarantineDir, workers)
		},
	}

	cmd.Flags().BoolVar(&copyPlace, "copy-place", false, "Copy into the library and tag the copies instead of retagging in place")
	cmd.Flags().StringVar(&quarantineDir, "quarantine-dir", "", "Move unresolved or duplicate files here instead of leaving them")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent identification workers (default from config)")
	return cmd
}

// collectAudioFiles walks dir and returns supported audio files in a stable
// order.
func collectAudioFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && audiofile.IsSupported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}
