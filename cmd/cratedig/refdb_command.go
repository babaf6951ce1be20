package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cratedig/internal/refdb"
)

func newRefDBCommand(ctx *commandContext) *cobra.Command {
	refCmd := &cobra.Command{
		Use:   "refdb",
		Short: "Reference database utilities",
	}

	refCmd.AddCommand(newRefDBImportCommand(ctx))
	refCmd.AddCommand(newRefDBSearchCommand(ctx))

	return refCmd
}

type importRecord struct {
	Title           string   `json:"title"`
	Aliases         []string `json:"aliases"`
	RecordingDate   string   `json:"recording_date"`
	City            string   `json:"city"`
	Venue           string   `json:"venue"`
	SourceType      string   `json:"source_type"`
	DurationSeconds int      `json:"duration_seconds"`
	VarianceNote    string   `json:"variance_note"`
	Notes           string   `json:"notes"`
}

func newRefDBImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <recordings.json>",
		Short: "Create or extend the reference database from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.RefDBPath == "" {
				return fmt.Errorf("paths.refdb_path is not configured")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var records []importRecord
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("parse import file: %w", err)
			}

			store, err := refdb.Create(cfg.Paths.RefDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, record := range records {
				_, err := store.Insert(cmd.Context(), refdb.Recording{
					Title:           record.Title,
					Aliases:         record.Aliases,
					RecordingDate:   record.RecordingDate,
					City:            record.City,
					Venue:           record.Venue,
					SourceType:      record.SourceType,
					DurationSeconds: record.DurationSeconds,
					VarianceNote:    record.VarianceNote,
					Notes:           record.Notes,
				})
				if err != nil {
					return err
				}
			}

			count, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d recordings (%d total in %s)\n", len(records), count, cfg.Paths.RefDBPath)
			return nil
		},
	}
}

func newRefDBSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search the reference database by title or alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := refdb.Open(cfg.Paths.RefDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			matches, err := store.SearchByTitle(cmd.Context(), args[0], cfg.RefDB.SimilarityThreshold, cfg.RefDB.MaxResults)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches")
				return nil
			}

			rows := make([][]string, 0, len(matches))
			for _, match := range matches {
				rec := match.Recording
				rows = append(rows, []string{
					rec.Title, rec.RecordingDate, rec.Venue, rec.City,
					rec.SourceType, fmt.Sprintf("%.2f", match.Similarity),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Title", "Date", "Venue", "City", "Source", "Similarity"},
				rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
}
