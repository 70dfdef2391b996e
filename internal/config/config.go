package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the full chatpulse configuration. Credentials (the Slack bot
// token, the Gemini API key, optional AWS keys) are deliberately not part of
// the file; they come from the environment.
type Config struct {
	Timezone   string           `toml:"timezone"`    // IANA name; empty means local time
	AnchorHour int              `toml:"anchor_hour"` // daily window cutoff hour
	LogDir     string           `toml:"log_dir"`
	Slack      SlackConfig      `toml:"slack"`
	Classifier ClassifierConfig `toml:"classifier"`
	Scoring    ScoringConfig    `toml:"scoring"`
	Limits     LimitsConfig     `toml:"limits"`
	Database   DatabaseConfig   `toml:"database"`
	Archive    ArchiveConfig    `toml:"archive"`
}

// SlackConfig holds workspace-side settings: where to notify and what to
// ingest.
type SlackConfig struct {
	AdminChannelID   string   `toml:"admin_channel_id"`   // violation notifications
	RankingChannelID string   `toml:"ranking_channel_id"` // leaderboard publication
	TargetChannels   []string `toml:"target_channels"`    // allow-list; empty means all public channels
	SkippedChannels  []string `toml:"skipped_channels"`   // deny-list applied at fetch time
	ExcludedUsers    []string `toml:"excluded_users"`
	SkipBots         bool     `toml:"skip_bots"`
	SkipSubtypes     []string `toml:"skip_subtypes"`
}

// ClassifierConfig selects the model and an optional prompt template
// override. The template file must contain the {post_text} placeholder.
type ClassifierConfig struct {
	Model      string `toml:"model"`
	PromptPath string `toml:"prompt_path,omitempty"`
}

// ScoringConfig holds the contribution weights and the leaderboard size.
type ScoringConfig struct {
	PostCountWeight     int `toml:"post_count_weight"`
	ReactionCountWeight int `toml:"reaction_count_weight"`
	PositivePostWeight  int `toml:"positive_post_weight"`
	HelpfulAnswerWeight int `toml:"helpful_answer_weight"`
	RankingLimit        int `toml:"ranking_limit"`
}

// LimitsConfig holds the minimum interval, in milliseconds, between calls to
// each external dependency. Zero disables pacing for that concern.
type LimitsConfig struct {
	ChannelFetchMillis int `toml:"channel_fetch_millis"`
	UserLookupMillis   int `toml:"user_lookup_millis"`
	ClassifyMillis     int `toml:"classify_millis"`
	NotifyMillis       int `toml:"notify_millis"`
}

// DatabaseConfig selects the store backend.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig selects the daily report archive backend.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant. An empty type disables archival.
type ArchiveConfig struct {
	Type string `toml:"type"` // "", "none", "memory", "s3" or "filesystem"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`
}

// NewConfig creates a Config with defaults rooted at baseDir. The defaults
// mirror the production deployment: 03:00 cutoff, standard weights, pacing
// tuned to the Slack and Gemini rate limits.
func NewConfig(baseDir string) *Config {
	return &Config{
		AnchorHour: 3,
		LogDir:     filepath.Join(baseDir, "log"),
		Slack: SlackConfig{
			SkipBots:     true,
			SkipSubtypes: []string{"channel_join"},
		},
		Classifier: ClassifierConfig{
			Model: "gemini-2.0-flash",
		},
		Scoring: ScoringConfig{
			PostCountWeight:     1,
			ReactionCountWeight: 2,
			PositivePostWeight:  3,
			HelpfulAnswerWeight: 5,
			RankingLimit:        20,
		},
		Limits: LimitsConfig{
			ChannelFetchMillis: 3000,
			UserLookupMillis:   500,
			ClassifyMillis:     10000,
			NotifyMillis:       1000,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided
// Config. Fails if a config file already exists there.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
