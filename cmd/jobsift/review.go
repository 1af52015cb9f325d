package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse scored postings interactively (TUI)",
	Long:  "Shows the source picker TUI, then the split-pane viewer of scored postings.",
	RunE:  runReviewCmd,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Any log output before the alt-screen starts corrupts the display.
	db, err := openStore(cfg, discardLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	all, err := loadScored(cmd.Context(), db, 0, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load matches: %v\n", err)
		os.Exit(1)
	}
	if len(all) == 0 {
		fmt.Println("No scored postings yet. Run `jobsift run` first.")
		return nil
	}
	counts := make(map[string]int)
	for _, p := range all {
		counts[p.Source]++
	}

	for {
		selected, ok, err := review.RunSourcePicker(cfg.Sources, counts)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if !ok {
			return nil
		}

		label := "scored postings"
		if len(selected) > 0 {
			label += " from " + strings.Join(selected, ", ")
		}
		postings, err := review.RunLoader(label, func(ctx context.Context) ([]model.Posting, error) {
			return loadScored(ctx, db, 0, selected)
		})
		if err != nil {
			fmt.Printf("Error loading postings: %v\n", err)
			continue
		}

		wantQuit, err := review.RunReviewTUI(postings, cfg.Match.NotifyThreshold)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}
