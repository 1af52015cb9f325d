package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and how many postings each has stored",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	stored := make(map[string]int, len(cfg.Sources))
	db, err := openStore(cfg, discardLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "store unavailable, counts omitted: %v\n", err)
	} else {
		defer db.Close()
		for _, s := range cfg.Sources {
			ids, err := db.KnownIDs(cmd.Context(), s)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to count %s: %v\n", s, err)
				os.Exit(1)
			}
			stored[s] = len(ids)
		}
	}

	renderSources(cmd.OutOrStdout(), cfg.Sources, stored)
	return nil
}

func renderSources(w io.Writer, sources []string, stored map[string]int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Source", "Stored"})

	total := 0
	for _, s := range sources {
		t.AppendRow(table.Row{s, stored[s]})
		total += stored[s]
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d sources", len(sources)), total})
	t.Render()
}
