package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/model"
)

const reasonPreviewLength = 80

var (
	matchesMin     int
	matchesSources []string
	matchesLimit   int
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List scored postings, best first",
	RunE:  runMatches,
}

func init() {
	matchesCmd.Flags().IntVar(&matchesMin, "min", -1, "minimum fit score (default: match.notify_threshold)")
	matchesCmd.Flags().StringSliceVar(&matchesSources, "source", nil, "only these sources")
	matchesCmd.Flags().IntVar(&matchesLimit, "limit", 50, "maximum rows to print (0 = all)")
	rootCmd.AddCommand(matchesCmd)
}

func runMatches(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	minScore := matchesMin
	if minScore < 0 {
		minScore = cfg.Match.NotifyThreshold
	}

	db, err := openStore(cfg, discardLogger())
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	postings, err := loadScored(cmd.Context(), db, minScore, matchesSources)
	if err != nil {
		logger.Error("failed to load matches", "error", err)
		os.Exit(1)
	}
	sortByScore(postings)
	if matchesLimit > 0 && len(postings) > matchesLimit {
		postings = postings[:matchesLimit]
	}

	renderMatches(cmd.OutOrStdout(), postings, minScore)
	return nil
}

func loadScored(ctx context.Context, s model.PostingStore, minScore int, sources []string) ([]model.Posting, error) {
	pred := model.Scored(minScore)
	pred.Sources = sources
	return s.Select(ctx, pred)
}

// sortByScore orders postings by fit score, highest first. The store already
// returns newest first, so ties keep that order.
func sortByScore(postings []model.Posting) {
	score := func(p model.Posting) int {
		if p.FitScore == nil {
			return -1
		}
		return *p.FitScore
	}
	sort.SliceStable(postings, func(i, j int) bool {
		return score(postings[i]) > score(postings[j])
	})
}

func renderMatches(w io.Writer, postings []model.Posting, minScore int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 40},
		{Number: 4, WidthMax: 24},
		{Number: 7, WidthMax: reasonPreviewLength},
	})
	t.AppendHeader(table.Row{"Score", "Source", "Title", "Location", "Visa", "Posted", "Reason"})

	for _, p := range postings {
		score := ""
		if p.FitScore != nil {
			score = fmt.Sprint(*p.FitScore)
		}
		t.AppendRow(table.Row{
			score,
			p.Source,
			p.Title,
			p.Location,
			visaText(p.VisaSponsor),
			p.PublishedAt.Format("2006-01-02"),
			truncate(strings.Join(strings.Fields(p.Reason), " "), reasonPreviewLength),
		})
	}

	t.AppendFooter(table.Row{"Total", len(postings), fmt.Sprintf("min score %d", minScore)})
	t.Render()
}

func visaText(v *bool) string {
	switch {
	case v == nil:
		return "?"
	case *v:
		return "yes"
	default:
		return "no"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
