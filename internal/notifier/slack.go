package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// slackPace spaces consecutive webhook posts to stay under Slack's 1 msg/s limit.
const slackPace = 500 * time.Millisecond

// SlackNotifier sends strong matches to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	pace       time.Duration
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each match to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		pace:       slackPace,
		logger:     logger,
	}
}

// Notify sends each posting as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	failures := 0
	for i, p := range postings {
		if i > 0 && s.pace > 0 {
			time.Sleep(s.pace)
		}

		if err := s.sendMessage(p); err != nil {
			s.logger.Error("slack notification failed", "source", p.Source, "job_id", p.JobID, "error", err)
			failures++
		}
	}

	if failures == len(postings) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", len(postings)-failures, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(p model.Posting) error {
	body, err := json.Marshal(buildPayload(p))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("slack webhook rejected message"),
		}
	}
	s.logger.Debug("slack message sent", "source", p.Source, "job_id", p.JobID)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy match notification to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	test := model.Posting{
		JobID:       "test-001",
		Source:      "jobsift",
		Title:       "Test Notification: Integration Verified",
		Location:    "Remote - US",
		Department:  "Data",
		URL:         "https://boards.greenhouse.io",
		PublishedAt: time.Now(),
		FitScore:    model.Int(100),
		VisaSponsor: model.Bool(true),
		Reason:      "This is a test message.",
	}
	return n.Notify([]model.Posting{test})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return "?"
	case *b:
		return "Yes"
	default:
		return "No"
	}
}

func buildPayload(p model.Posting) slackPayload {
	postedText := "Unknown"
	if !p.PublishedAt.IsZero() {
		pst, err := time.LoadLocation("America/Los_Angeles")
		if err == nil {
			postedText = p.PublishedAt.In(pst).Format(time.RFC1123)
		} else {
			postedText = p.PublishedAt.Format(time.RFC1123)
		}
	}

	score := "?"
	if p.FitScore != nil {
		score = fmt.Sprintf("%d/100", *p.FitScore)
	}

	company := capitalize(p.Source)

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🎯 " + company + ": " + p.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Fit score:*\n" + score},
				{Type: "mrkdwn", Text: "*Visa OK:*\n" + yesNo(p.VisaSponsor)},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Location:*\n" + p.Location},
				{Type: "mrkdwn", Text: "*Posted:*\n" + postedText},
			},
		},
	}

	if p.Reason != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Why:* " + p.Reason},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "Apply Now"},
					URL:   p.URL,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
