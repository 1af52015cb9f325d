package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when --config is not set.
const EnvConfigPath = "JOBSIFT_CONFIG"

const defaultConfigPath = "config.yaml"

// Config is the root configuration for jobsift.
type Config struct {
	Sources      []string
	Lookback     time.Duration // fetch stage window, lookback_days * 24h
	Schedule     string        // cron expression for `jobsift start`
	Store        StoreConfig
	Filters      FilterConfig
	Fetch        FetchConfig
	Title        TitleConfig
	Location     StageConfig
	Match        MatchConfig
	AI           AIConfig
	Cache        CacheConfig
	Notification NotificationConfig
	Metrics      MetricsConfig
}

// StoreConfig selects the row store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite, connection URL for postgres
}

// FilterConfig holds title keywords and the optional eligibility window.
type FilterConfig struct {
	TitleKeywords        []string
	TitleExcludeKeywords []string
	EligibilityWindow    time.Duration // zero means unbounded
}

// FetchConfig tunes the fetch stage.
type FetchConfig struct {
	Concurrency       int
	BatchSize         int
	RequestsPerSecond float64 // zero means unlimited
	Timeout           time.Duration
}

type TitleConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// StageConfig tunes a model-backed stage.
type StageConfig struct {
	Concurrency int `yaml:"concurrency"`
	BatchSize   int `yaml:"batch_size"`
}

type MatchConfig struct {
	StageConfig     `yaml:",inline"`
	Resume          string `yaml:"resume"`
	NotifyThreshold int    `yaml:"notify_threshold"`
}

// AIConfig selects the LLM backend.
type AIConfig struct {
	Provider          string
	BaseURL           string // empty means the provider default
	Model             string
	APIKey            string // expanded from env var by Load
	Timeout           time.Duration
	RequestsPerSecond float64 // zero means unlimited
}

// CacheConfig controls the location verdict cache. An empty RedisAddr keeps
// the cache in memory for the life of the process.
type CacheConfig struct {
	RedisAddr string
	TTL       time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// MetricsConfig controls the optional Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

const defaultSchedule = "0 */6 * * *"

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Sources      []string           `yaml:"sources"`
	SourcesFile  string             `yaml:"sources_file"`
	LookbackDays *int               `yaml:"lookback_days"`
	Schedule     string             `yaml:"schedule"`
	Store        StoreConfig        `yaml:"store"`
	Filters      rawFilterConfig    `yaml:"filters"`
	Fetch        rawFetchConfig     `yaml:"fetch"`
	Title        TitleConfig        `yaml:"title"`
	Location     StageConfig        `yaml:"location"`
	Match        MatchConfig        `yaml:"match"`
	AI           rawAIConfig        `yaml:"ai"`
	Cache        rawCacheConfig     `yaml:"cache"`
	Notification NotificationConfig `yaml:"notification"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type rawFilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
	EligibilityWindow    string   `yaml:"eligibility_window"`
}

type rawFetchConfig struct {
	Concurrency       int     `yaml:"concurrency"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Timeout           string  `yaml:"timeout"`
}

type rawAIConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type rawCacheConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	TTL       string `yaml:"ttl"`
}

// ResolvePath picks the config file: the flag value, then $JOBSIFT_CONFIG,
// then ./config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return defaultConfigPath
}

// LoadDotEnv loads .env.local then .env from the working directory. Variables
// already set in the environment win; missing files are ignored.
func LoadDotEnv() error {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// A relative sources_file is resolved against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	sources := raw.Sources
	if raw.SourcesFile != "" {
		sf := raw.SourcesFile
		if !filepath.IsAbs(sf) {
			sf = filepath.Join(filepath.Dir(path), sf)
		}
		fromFile, err := ReadSourcesFile(sf)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fromFile...)
	}

	lookbackDays := 1
	if raw.LookbackDays != nil {
		lookbackDays = *raw.LookbackDays
	}

	window, err := parseDuration("filters.eligibility_window", raw.Filters.EligibilityWindow, 0)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("fetch.timeout", raw.Fetch.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	aiTimeout, err := parseDuration("ai.timeout", raw.AI.Timeout, 60*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("cache.ttl", raw.Cache.TTL, 720*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Sources:  dedupe(sources),
		Lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		Schedule: orDefault(raw.Schedule, defaultSchedule),
		Store: StoreConfig{
			Driver: orDefault(raw.Store.Driver, "sqlite"),
			DSN:    orDefault(raw.Store.DSN, "jobs.db"),
		},
		Filters: FilterConfig{
			TitleKeywords:        raw.Filters.TitleKeywords,
			TitleExcludeKeywords: raw.Filters.TitleExcludeKeywords,
			EligibilityWindow:    window,
		},
		Fetch: FetchConfig{
			Concurrency:       intOrDefault(raw.Fetch.Concurrency, 25),
			BatchSize:         intOrDefault(raw.Fetch.BatchSize, 400),
			RequestsPerSecond: raw.Fetch.RequestsPerSecond,
			Timeout:           fetchTimeout,
		},
		Title: TitleConfig{BatchSize: intOrDefault(raw.Title.BatchSize, 500)},
		Location: StageConfig{
			Concurrency: intOrDefault(raw.Location.Concurrency, 5),
			BatchSize:   intOrDefault(raw.Location.BatchSize, 50),
		},
		Match: MatchConfig{
			StageConfig: StageConfig{
				Concurrency: intOrDefault(raw.Match.Concurrency, 5),
				BatchSize:   intOrDefault(raw.Match.BatchSize, 20),
			},
			Resume:          orDefault(raw.Match.Resume, "Resume.pdf"),
			NotifyThreshold: intOrDefault(raw.Match.NotifyThreshold, 80),
		},
		AI: AIConfig{
			Provider:          orDefault(raw.AI.Provider, "openai"),
			BaseURL:           raw.AI.BaseURL,
			Model:             raw.AI.Model,
			APIKey:            raw.AI.APIKey,
			Timeout:           aiTimeout,
			RequestsPerSecond: raw.AI.RequestsPerSecond,
		},
		Cache: CacheConfig{
			RedisAddr: raw.Cache.RedisAddr,
			TTL:       cacheTTL,
		},
		Notification: NotificationConfig{
			Type:       orDefault(raw.Notification.Type, "log"),
			WebhookURL: raw.Notification.WebhookURL,
		},
		Metrics: MetricsConfig{
			PushgatewayURL: raw.Metrics.PushgatewayURL,
			Job:            orDefault(raw.Metrics.Job, "jobsift"),
		},
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultModel(cfg.AI.Provider)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ReadSourcesFile reads newline-delimited source identifiers. Blank lines and
// lines starting with '#' are skipped.
func ReadSourcesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return out, nil
}

// RequireAI reports whether the model-backed stages can be built.
func (c *Config) RequireAI() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required to run the pipeline")
	}
	return nil
}

func validate(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one source is required (sources or sources_file)")
	}
	if cfg.Lookback < 24*time.Hour {
		return fmt.Errorf("lookback_days must be at least 1")
	}
	if len(nonBlank(cfg.Filters.TitleKeywords)) == 0 {
		return fmt.Errorf("filters.title_keywords must contain at least one keyword")
	}
	if cfg.Filters.EligibilityWindow < 0 {
		return fmt.Errorf("filters.eligibility_window must not be negative, got %v", cfg.Filters.EligibilityWindow)
	}

	switch cfg.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Store.Driver)
	}

	for name, v := range map[string]int{
		"fetch.concurrency":    cfg.Fetch.Concurrency,
		"fetch.batch_size":     cfg.Fetch.BatchSize,
		"title.batch_size":     cfg.Title.BatchSize,
		"location.concurrency": cfg.Location.Concurrency,
		"location.batch_size":  cfg.Location.BatchSize,
		"match.concurrency":    cfg.Match.Concurrency,
		"match.batch_size":     cfg.Match.BatchSize,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if cfg.Match.NotifyThreshold < 0 || cfg.Match.NotifyThreshold > 100 {
		return fmt.Errorf("match.notify_threshold must be between 0 and 100, got %d", cfg.Match.NotifyThreshold)
	}
	if cfg.Fetch.RequestsPerSecond < 0 || cfg.AI.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}

	switch cfg.AI.Provider {
	case "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("ai.provider must be one of openai, anthropic, gemini, got %q", cfg.AI.Provider)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}

func defaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-3-5-haiku-latest"
	case "gemini":
		return "gemini-2.5-flash"
	default:
		return "gpt-4.1-mini"
	}
}

func parseDuration(key, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, s, err)
	}
	return d, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func intOrDefault(n, def int) int {
	if n == 0 {
		return def
	}
	return n
}

func nonBlank(ss []string) []string {
	var out []string
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(ss []string) []string {
	seen := make(map[string]struct{}, len(ss))
	var out []string
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
