package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const minimalConfig = `
sources: [airbnb]
filters:
  title_keywords: [data engineer]
ai:
  api_key: sk-test
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Lookback != 24*time.Hour {
		t.Errorf("Lookback = %v, want 24h", cfg.Lookback)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "jobs.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Fetch.Concurrency != 25 || cfg.Fetch.BatchSize != 400 || cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Title.BatchSize != 500 {
		t.Errorf("Title.BatchSize = %d, want 500", cfg.Title.BatchSize)
	}
	if cfg.Location.Concurrency != 5 || cfg.Location.BatchSize != 50 {
		t.Errorf("Location = %+v", cfg.Location)
	}
	if cfg.Match.Concurrency != 5 || cfg.Match.BatchSize != 20 || cfg.Match.NotifyThreshold != 80 || cfg.Match.Resume != "Resume.pdf" {
		t.Errorf("Match = %+v", cfg.Match)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.Model != "gpt-4.1-mini" || cfg.AI.Timeout != 60*time.Second {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.Cache.TTL != 720*time.Hour {
		t.Errorf("Cache.TTL = %v, want 720h", cfg.Cache.TTL)
	}
	if cfg.Notification.Type != "log" || cfg.Metrics.Job != "jobsift" || cfg.Schedule != "0 */6 * * *" {
		t.Errorf("Notification = %+v Metrics = %+v Schedule = %q", cfg.Notification, cfg.Metrics, cfg.Schedule)
	}
	if cfg.Filters.EligibilityWindow != 0 {
		t.Errorf("EligibilityWindow = %v, want unbounded", cfg.Filters.EligibilityWindow)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	content := `
sources: [airbnb, stripe]
lookback_days: 3
schedule: "@hourly"
store: {driver: postgres, dsn: "postgres://localhost/jobs?sslmode=disable"}
filters:
  title_keywords: [analyst]
  title_exclude_keywords: [manager]
  eligibility_window: 48h
fetch: {concurrency: 10, batch_size: 100, requests_per_second: 5, timeout: 10s}
title: {batch_size: 50}
location: {concurrency: 2, batch_size: 10}
match: {concurrency: 3, batch_size: 7, resume: cv.txt, notify_threshold: 90}
ai: {provider: anthropic, api_key: key, timeout: 20s, requests_per_second: 2}
cache: {redis_addr: "localhost:6379", ttl: 24h}
notification: {type: slack, webhook_url: "https://hooks.slack.com/services/T/B/X"}
metrics: {pushgateway_url: "http://localhost:9091", job: nightly}
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(cfg.Sources, []string{"airbnb", "stripe"}) {
		t.Errorf("Sources = %v", cfg.Sources)
	}
	if cfg.Lookback != 72*time.Hour || cfg.Schedule != "@hourly" {
		t.Errorf("Lookback = %v Schedule = %q", cfg.Lookback, cfg.Schedule)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("Store.Driver = %q", cfg.Store.Driver)
	}
	if cfg.Filters.EligibilityWindow != 48*time.Hour {
		t.Errorf("EligibilityWindow = %v", cfg.Filters.EligibilityWindow)
	}
	if cfg.Fetch.RequestsPerSecond != 5 || cfg.Fetch.Timeout != 10*time.Second {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Match.Concurrency != 3 || cfg.Match.BatchSize != 7 || cfg.Match.Resume != "cv.txt" || cfg.Match.NotifyThreshold != 90 {
		t.Errorf("Match = %+v", cfg.Match)
	}
	if cfg.AI.Provider != "anthropic" || cfg.AI.Model != "claude-3-5-haiku-latest" || cfg.AI.RequestsPerSecond != 2 {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" || cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Metrics.PushgatewayURL != "http://localhost:9091" || cfg.Metrics.Job != "nightly" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JOBSIFT_TEST_KEY", "sk-from-env")
	cfg, err := Load(writeConfig(t, `
sources: [airbnb]
filters: {title_keywords: [analyst]}
ai: {api_key: ${JOBSIFT_TEST_KEY}}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want sk-from-env", cfg.AI.APIKey)
	}
}

func TestLoad_SourcesFile(t *testing.T) {
	dir := t.TempDir()
	list := "# companies\nairbnb\n\n  stripe  \n# disabled\nairbnb\n"
	if err := os.WriteFile(filepath.Join(dir, "Companies.txt"), []byte(list), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.yaml")
	content := "sources: [figma, stripe]\nsources_file: Companies.txt\nfilters: {title_keywords: [analyst]}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"figma", "stripe", "airbnb"}
	if !reflect.DeepEqual(cfg.Sources, want) {
		t.Errorf("Sources = %v, want %v", cfg.Sources, want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "sources: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no sources", "filters: {title_keywords: [analyst]}", "at least one source"},
		{"no keywords", "sources: [a]\nfilters: {title_keywords: ['  ']}", "title_keywords"},
		{"zero lookback", "sources: [a]\nlookback_days: 0\nfilters: {title_keywords: [x]}", "lookback_days"},
		{"bad driver", "sources: [a]\nfilters: {title_keywords: [x]}\nstore: {driver: mysql}", "store.driver"},
		{"bad provider", "sources: [a]\nfilters: {title_keywords: [x]}\nai: {provider: llama}", "ai.provider"},
		{"threshold", "sources: [a]\nfilters: {title_keywords: [x]}\nmatch: {notify_threshold: 101}", "notify_threshold"},
		{"negative concurrency", "sources: [a]\nfilters: {title_keywords: [x]}\nlocation: {concurrency: -1}", "location.concurrency"},
		{"bad duration", "sources: [a]\nfilters: {title_keywords: [x], eligibility_window: soon}", "eligibility_window"},
		{"slack without webhook", "sources: [a]\nfilters: {title_keywords: [x]}\nnotification: {type: slack}", "webhook_url is required"},
		{"slack bad webhook", "sources: [a]\nfilters: {title_keywords: [x]}\nnotification: {type: slack, webhook_url: 'https://example.com'}", "hooks.slack.com"},
		{"unknown notifier", "sources: [a]\nfilters: {title_keywords: [x]}\nnotification: {type: email}", "notification.type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestRequireAI(t *testing.T) {
	cfg, err := Load(writeConfig(t, "sources: [a]\nfilters: {title_keywords: [x]}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RequireAI() == nil {
		t.Error("expected error without ai.api_key")
	}
	cfg.AI.APIKey = "k"
	if err := cfg.RequireAI(); err != nil {
		t.Errorf("RequireAI: %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(""); got != "config.yaml" {
		t.Errorf("default = %q", got)
	}
	t.Setenv(EnvConfigPath, "/etc/jobsift.yaml")
	if got := ResolvePath(""); got != "/etc/jobsift.yaml" {
		t.Errorf("env = %q", got)
	}
	if got := ResolvePath("custom.yaml"); got != "custom.yaml" {
		t.Errorf("flag = %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("JOBSIFT_DOTENV_A=local\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("JOBSIFT_DOTENV_A=base\nJOBSIFT_DOTENV_B=base\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("JOBSIFT_DOTENV_A", "")
	os.Unsetenv("JOBSIFT_DOTENV_A")
	t.Setenv("JOBSIFT_DOTENV_B", "")
	os.Unsetenv("JOBSIFT_DOTENV_B")

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("JOBSIFT_DOTENV_A"); got != "local" {
		t.Errorf("A = %q, want local (.env.local wins)", got)
	}
	if got := os.Getenv("JOBSIFT_DOTENV_B"); got != "base" {
		t.Errorf("B = %q, want base", got)
	}
}
