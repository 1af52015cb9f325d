package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobsift/internal/config"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/notifier"
)

func scoredPosting(id string, score int) model.Posting {
	return model.Posting{
		JobID:       id,
		Source:      "airbnb",
		Title:       "Data Engineer",
		Location:    "Remote - US",
		PublishedAt: time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
		URL:         "https://boards.greenhouse.io/airbnb/jobs/" + id,
		FitScore:    model.Int(score),
		VisaSponsor: model.Bool(true),
		Reason:      "Strong   pipeline\nexperience.",
	}
}

func TestSortByScore_StableOnTies(t *testing.T) {
	postings := []model.Posting{scoredPosting("a", 70), scoredPosting("b", 90), scoredPosting("c", 70), {JobID: "d"}}
	sortByScore(postings)

	var ids []string
	for _, p := range postings {
		ids = append(ids, p.JobID)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
}

func TestRenderMatches(t *testing.T) {
	var buf bytes.Buffer
	renderMatches(&buf, []model.Posting{scoredPosting("1", 91)}, 80)

	// Footers render upper-cased.
	out := strings.ToLower(buf.String())
	for _, want := range []string{"91", "airbnb", "data engineer", "yes", "2026-10-02", "strong pipeline experience.", "min score 80"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderSources(t *testing.T) {
	var buf bytes.Buffer
	renderSources(&buf, []string{"airbnb", "stripe"}, map[string]int{"airbnb": 4})

	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "airbnb")
	assert.Contains(t, out, "stripe")
	assert.Contains(t, out, "2 sources")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "héllo", truncate("héllo", 5))
}

func TestVisaText(t *testing.T) {
	assert.Equal(t, "?", visaText(nil))
	assert.Equal(t, "yes", visaText(model.Bool(true)))
	assert.Equal(t, "no", visaText(model.Bool(false)))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false, true).Info("stage finished", "stage", "fetch")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fetch", line["stage"])
}

func TestNewLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false, false).Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, true, false).Debug("shown")
	assert.True(t, strings.Contains(buf.String(), "shown"))
}

func TestSetupNotifier(t *testing.T) {
	cfg := &config.Config{Notification: config.NotificationConfig{Type: "log"}}
	_, ok := setupNotifier(cfg, discardLogger()).(*notifier.LogNotifier)
	assert.True(t, ok)

	cfg.Notification = config.NotificationConfig{Type: "slack", WebhookURL: "https://hooks.slack.com/services/x"}
	_, ok = setupNotifier(cfg, discardLogger()).(*notifier.SlackNotifier)
	assert.True(t, ok)
}

func TestRunNotifier_DryRunNeverPostsToSlack(t *testing.T) {
	cfg := &config.Config{Notification: config.NotificationConfig{Type: "slack", WebhookURL: "https://hooks.slack.com/services/x"}}

	_, ok := runNotifier(cfg, discardLogger(), true).(*notifier.LogNotifier)
	assert.True(t, ok)
	_, ok = runNotifier(cfg, discardLogger(), false).(*notifier.SlackNotifier)
	assert.True(t, ok)
}

func TestOpenStore_SQLiteAndLoadScored(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "jobs.db")}}
	db, err := openStore(cfg, discardLogger())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	p := scoredPosting("1", 0)
	p.FitScore, p.VisaSponsor = nil, nil
	_, err = db.InsertNew(ctx, []model.Posting{p})
	require.NoError(t, err)
	_, err = db.Update(ctx, []model.Update{{
		Key: p.Key(),
		Fields: model.Fields{
			TitleFiltered: model.Bool(true),
			InUSA:         model.Bool(true),
			FitScore:      model.Int(85),
			VisaSponsor:   model.Bool(true),
			Reason:        model.String("good"),
		},
	}})
	require.NoError(t, err)

	got, err := loadScored(ctx, db, 80, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 85, *got[0].FitScore)

	got, err = loadScored(ctx, db, 80, []string{"stripe"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := openStore(&config.Config{Store: config.StoreConfig{Driver: "mysql"}}, discardLogger())
	assert.Error(t, err)
}
