package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/export"
)

var (
	exportOut     string
	exportMin     int
	exportSources []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write scored postings to an XLSX workbook",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "matches.xlsx", "output file")
	exportCmd.Flags().IntVar(&exportMin, "min", 0, "minimum fit score")
	exportCmd.Flags().StringSliceVar(&exportSources, "source", nil, "only these sources")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := openStore(cfg, discardLogger())
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	postings, err := loadScored(cmd.Context(), db, exportMin, exportSources)
	if err != nil {
		logger.Error("failed to load matches", "error", err)
		os.Exit(1)
	}
	sortByScore(postings)

	if err := export.WriteFile(exportOut, postings); err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	logger.Info("export written", "path", exportOut, "rows", len(postings))
	return nil
}
