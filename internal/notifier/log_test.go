package notifier

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

func TestLogNotifier_Notify_zeroPostings(t *testing.T) {
	n := NewLogNotifier(discardLogger())
	if err := n.Notify(nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if err := n.Notify([]model.Posting{}); err != nil {
		t.Errorf("Notify([]) = %v, want nil", err)
	}
}

func TestLogNotifier_Notify_logsScoreAndVisa(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	postings := []model.Posting{
		samplePosting("Data Analyst", "acme", 91),
		{Source: "beta", JobID: "2", Title: "Data Engineer", PublishedAt: time.Now()},
	}

	if err := n.Notify(postings); err != nil {
		t.Errorf("Notify = %v, want nil", err)
	}

	out := buf.String()
	if strings.Count(out, "strong match") != 2 {
		t.Errorf("expected two log lines, got:\n%s", out)
	}
	if !strings.Contains(out, "score=91") || !strings.Contains(out, "visa=true") {
		t.Errorf("missing score/visa attributes:\n%s", out)
	}
}
