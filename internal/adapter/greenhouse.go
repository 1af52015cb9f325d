package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

// GreenhouseBaseURL is the public job-board API root.
const GreenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             int64                  `json:"id"`
	Title          string                 `json:"title"`
	Location       greenhouseLocation     `json:"location"`
	Departments    []greenhouseDepartment `json:"departments"`
	AbsoluteURL    string                 `json:"absolute_url"`
	FirstPublished string                 `json:"first_published"`
	UpdatedAt      string                 `json:"updated_at"`
	Content        string                 `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

type greenhouseDepartment struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseAdapter fetches postings from the Greenhouse public boards API.
// One adapter serves every board token.
type GreenhouseAdapter struct {
	baseURL string
	client  *http.Client
}

// NewGreenhouseAdapter creates an adapter. An empty baseURL means GreenhouseBaseURL.
func NewGreenhouseAdapter(baseURL string, client *http.Client) *GreenhouseAdapter {
	if baseURL == "" {
		baseURL = GreenhouseBaseURL
	}
	return &GreenhouseAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// FetchPostings lists every open posting on the source board, with descriptions,
// normalized into the Posting model. Postings without a parseable publish time
// are dropped.
func (a *GreenhouseAdapter) FetchPostings(ctx context.Context, source string) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", a.baseURL, source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", source, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", source, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(snippet))),
		})
	}

	var ghResp greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", source, err)
	}

	postings := make([]model.Posting, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		p, ok := normalizeGreenhouseJob(source, gj)
		if !ok {
			continue
		}
		postings = append(postings, p)
	}

	return postings, nil
}

func normalizeGreenhouseJob(source string, gj greenhouseJob) (model.Posting, bool) {
	publishedRaw := gj.FirstPublished
	if publishedRaw == "" {
		publishedRaw = gj.UpdatedAt
	}
	published, ok := parseTimestamp(publishedRaw)
	if !ok {
		return model.Posting{}, false
	}

	id := fmt.Sprintf("%d", gj.ID)
	if gj.ID == 0 {
		// Boards occasionally omit ids; derive a stable one from the listing.
		id = fmt.Sprintf("%s:%s:%s:%s", source, gj.AbsoluteURL, publishedRaw, gj.Title)
	}

	var department string
	if len(gj.Departments) > 0 {
		department = strings.TrimSpace(gj.Departments[0].Name)
	}

	return model.Posting{
		JobID:       id,
		Source:      source,
		Title:       strings.TrimSpace(gj.Title),
		Location:    strings.TrimSpace(gj.Location.Name),
		Department:  department,
		PublishedAt: published,
		URL:         gj.AbsoluteURL,
		Description: extractText(gj.Content),
	}, true
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
