package notifier

import (
	"log/slog"

	"github.com/amishk599/jobsift/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes strong matches to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each posting via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each posting. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(postings []model.Posting) error {
	for _, p := range postings {
		args := []any{
			"source", p.Source,
			"job_id", p.JobID,
			"title", p.Title,
			"location", p.Location,
			"url", p.URL,
		}
		if p.FitScore != nil {
			args = append(args, "score", *p.FitScore)
		}
		if p.VisaSponsor != nil {
			args = append(args, "visa", *p.VisaSponsor)
		}
		if p.Reason != "" {
			args = append(args, "reason", p.Reason)
		}
		n.logger.Info("strong match", args...)
	}
	return nil
}
