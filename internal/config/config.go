// Package config loads the agent configuration: built-in defaults, an
// optional YAML file, then environment overrides for secrets and paths.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes one RSS source.
type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// KeywordsConfig drives keyword matching in the score filter.
type KeywordsConfig struct {
	// Categories maps a topic label to the keywords that signal it.
	Categories map[string][]string `yaml:"categories"`
	// Excluded keywords drop an article outright.
	Excluded []string `yaml:"excluded"`
}

// ScoringWeights are the four score components; they should sum to 1.0.
type ScoringWeights struct {
	SourcePriority float64 `yaml:"source_priority"`
	KeywordMatch   float64 `yaml:"keyword_match"`
	Recency        float64 `yaml:"recency"`
	Engagement     float64 `yaml:"engagement"`
}

// GithubGates are admission thresholds for GitHub trending items.
type GithubGates struct {
	MinStars      int `yaml:"min_stars"`
	MinTodayStars int `yaml:"min_today_stars"`
}

// HuggingFaceGates are admission thresholds for Hugging Face items.
type HuggingFaceGates struct {
	MinLikes     int `yaml:"min_likes"`
	MinDownloads int `yaml:"min_downloads"`
}

// ScoringConfig configures the score filter.
type ScoringConfig struct {
	Weights        ScoringWeights     `yaml:"weights"`
	MinScore       float64            `yaml:"min_score"`
	SourcePriority map[string]float64 `yaml:"source_priority"`
	Github         GithubGates        `yaml:"github"`
	HuggingFace    HuggingFaceGates   `yaml:"huggingface"`
}

// ContentConfig bounds the text fields an article must carry to be admitted.
type ContentConfig struct {
	MinTitleLen       int `yaml:"min_title_len"`
	MaxTitleLen       int `yaml:"max_title_len"`
	MinDescriptionLen int `yaml:"min_description_len"`
	// PrimaryWindowHours, when > 0, drops articles published longer ago
	// than this. 0 disables the gate so backlog reconstitution still sees
	// historical items.
	PrimaryWindowHours int `yaml:"primary_window_hours"`
}

// DedupConfig configures the deduplicator.
type DedupConfig struct {
	Enabled             bool    `yaml:"enabled"`
	Method              string  `yaml:"method"` // url_hash | content_hash | similarity | both | all
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	RecentWindowDays    int     `yaml:"recent_window_days"`
	RecentSampleLimit   int     `yaml:"recent_sample_limit"`
}

// TemporalConfig configures recent/historical balancing.
type TemporalConfig struct {
	RecentThresholdDays int     `yaml:"recent_threshold_days"`
	DailyTargetCount    int     `yaml:"daily_target_count"`
	TargetRecentRatio   float64 `yaml:"target_recent_ratio"`
	MinRecentRatio      float64 `yaml:"min_recent_ratio"`
}

// AllocatorConfig configures category quota allocation.
type AllocatorConfig struct {
	TargetCount    int `yaml:"target_count"`
	MaxTargetCount int `yaml:"max_target_count"`
	LatestCount    int `yaml:"latest_count"`
	AcademicMin    int `yaml:"academic_min"`
	AcademicMax    int `yaml:"academic_max"`
	ToolsMax       int `yaml:"tools_max"`
	LabBlogMax     int `yaml:"lab_blog_max"`

	DualChannel               bool `yaml:"dual_channel"`
	ToolsChannelCount         int  `yaml:"tools_channel_count"`
	AcademicMediaChannelCount int  `yaml:"academic_media_channel_count"`
}

// ModelReleaseConfig configures the model-release overflow detector.
type ModelReleaseConfig struct {
	MaxExtra    int      `yaml:"max_extra"`
	WindowHours int      `yaml:"window_hours"`
	Keywords    []string `yaml:"keywords"`
}

// FunProjectConfig configures the notable-project overflow detector.
type FunProjectConfig struct {
	MaxExtra int `yaml:"max_extra"`
}

// OverflowConfig groups the overflow detectors.
type OverflowConfig struct {
	ModelRelease ModelReleaseConfig `yaml:"model_release"`
	FunProject   FunProjectConfig   `yaml:"fun_project"`
}

// GeminiConfig configures the LLM summarizer.
type GeminiConfig struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	MaxRequests int    `yaml:"max_requests"` // per-run cap, 0 = unlimited
}

// WebhookConfig configures digest delivery.
type WebhookConfig struct {
	URL               string `yaml:"url"`
	Secret            string `yaml:"secret"`
	TestMode          bool   `yaml:"test_mode"`
	TestOutputDir     string `yaml:"test_output_dir"`
	MaxPerMinute      int    `yaml:"max_per_minute"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
}

// ScheduleConfig sets the daily run time in local clock terms.
type ScheduleConfig struct {
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
}

// MonitoringConfig controls the health/metrics HTTP server.
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Config is the full agent configuration.
type Config struct {
	DatabasePath string `yaml:"database_path"`
	LogLevel     string `yaml:"log_level"`

	Feeds      []FeedConfig     `yaml:"feeds"`
	Keywords   KeywordsConfig   `yaml:"keywords"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Content    ContentConfig    `yaml:"content"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Temporal   TemporalConfig   `yaml:"temporal"`
	Allocator  AllocatorConfig  `yaml:"allocator"`
	Overflow   OverflowConfig   `yaml:"overflow"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// Default returns the built-in configuration every load starts from.
func Default() *Config {
	return &Config{
		DatabasePath: "data/aipulse.db",
		LogLevel:     "info",
		Keywords: KeywordsConfig{
			Categories: map[string][]string{
				"models":   {"llm", "gpt", "claude", "gemini", "llama", "transformer", "diffusion"},
				"research": {"paper", "benchmark", "dataset", "arxiv", "sota"},
				"tools":    {"open source", "framework", "library", "agent", "api"},
			},
		},
		Scoring: ScoringConfig{
			Weights: ScoringWeights{
				SourcePriority: 0.3,
				KeywordMatch:   0.3,
				Recency:        0.2,
				Engagement:     0.2,
			},
			MinScore: 0.6,
			SourcePriority: map[string]float64{
				"openai_blog":        1.0,
				"anthropic_blog":     1.0,
				"google_deepmind":    1.0,
				"arxiv":              0.9,
				"papers_with_code":   0.9,
				"huggingface_papers": 0.9,
				"jiqizhixin":         0.8,
				"mit_tech_review":    0.8,
				"github_trending_ai": 0.7,
				"hacker_news":        0.6,
			},
			Github:      GithubGates{MinStars: 100, MinTodayStars: 10},
			HuggingFace: HuggingFaceGates{MinLikes: 50, MinDownloads: 1000},
		},
		Content: ContentConfig{
			MinTitleLen:        10,
			MaxTitleLen:        200,
			MinDescriptionLen:  50,
			PrimaryWindowHours: 0,
		},
		Dedup: DedupConfig{
			Enabled:             true,
			Method:              "all",
			SimilarityThreshold: 0.85,
			RecentWindowDays:    7,
			RecentSampleLimit:   100,
		},
		Temporal: TemporalConfig{
			RecentThresholdDays: 365,
			DailyTargetCount:    10,
			TargetRecentRatio:   0.80,
			MinRecentRatio:      0.70,
		},
		Allocator: AllocatorConfig{
			TargetCount:               10,
			MaxTargetCount:            10,
			LatestCount:               3,
			AcademicMin:               1,
			AcademicMax:               3,
			ToolsMax:                  3,
			LabBlogMax:                2,
			DualChannel:               false,
			ToolsChannelCount:         5,
			AcademicMediaChannelCount: 5,
		},
		Overflow: OverflowConfig{
			ModelRelease: ModelReleaseConfig{
				MaxExtra:    3,
				WindowHours: 48,
				Keywords:    []string{"release", "launch", "announce", "unveil", "introduce"},
			},
			FunProject: FunProjectConfig{MaxExtra: 2},
		},
		Gemini: GeminiConfig{
			Model:       "gemini-1.5-flash",
			MaxRequests: 15,
		},
		Webhook: WebhookConfig{
			TestOutputDir:     "data/digests",
			MaxPerMinute:      30,
			MaxRetries:        3,
			RetryDelaySeconds: 5,
		},
		Schedule:   ScheduleConfig{Hour: 9, Minute: 0},
		Monitoring: MonitoringConfig{Enabled: false, Port: 8080},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// the one named by AIPULSE_CONFIG), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("AIPULSE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Webhook.URL = getEnvOrDefault("WEBHOOK_URL", c.Webhook.URL)
	c.Webhook.Secret = getEnvOrDefault("WEBHOOK_SECRET", c.Webhook.Secret)
	c.Gemini.APIKey = getEnvOrDefault("GEMINI_API_KEY", c.Gemini.APIKey)
	c.DatabasePath = getEnvOrDefault("DATABASE_PATH", c.DatabasePath)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.Monitoring.Port = getEnvIntOrDefault("MONITORING_PORT", c.Monitoring.Port)
}

// Validate checks the invariants the pipeline depends on.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	switch c.Dedup.Method {
	case "url_hash", "content_hash", "similarity", "both", "all":
	default:
		return fmt.Errorf("dedup.method must be one of url_hash, content_hash, similarity, both, all; got %q", c.Dedup.Method)
	}
	if c.Dedup.SimilarityThreshold < 0 || c.Dedup.SimilarityThreshold > 1 {
		return fmt.Errorf("dedup.similarity_threshold must be in [0,1], got %v", c.Dedup.SimilarityThreshold)
	}
	if c.Scoring.MinScore < 0 || c.Scoring.MinScore > 1 {
		return fmt.Errorf("scoring.min_score must be in [0,1], got %v", c.Scoring.MinScore)
	}
	if c.Temporal.DailyTargetCount <= 0 {
		return fmt.Errorf("temporal.daily_target_count must be positive")
	}
	if c.Temporal.MinRecentRatio > c.Temporal.TargetRecentRatio {
		return fmt.Errorf("temporal.min_recent_ratio %v exceeds target_recent_ratio %v",
			c.Temporal.MinRecentRatio, c.Temporal.TargetRecentRatio)
	}
	if c.Allocator.AcademicMin > c.Allocator.AcademicMax {
		return fmt.Errorf("allocator.academic_min %d exceeds academic_max %d",
			c.Allocator.AcademicMin, c.Allocator.AcademicMax)
	}
	if c.Allocator.TargetCount > c.Allocator.MaxTargetCount {
		return fmt.Errorf("allocator.target_count %d exceeds max_target_count %d",
			c.Allocator.TargetCount, c.Allocator.MaxTargetCount)
	}
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 || c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		return fmt.Errorf("schedule %02d:%02d is not a valid time of day", c.Schedule.Hour, c.Schedule.Minute)
	}
	if !c.Webhook.TestMode && c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required unless webhook.test_mode is on")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
