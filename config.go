package afm

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	defaults "github.com/peridot-sh/afm/default"
)

// Config represents the user's afm configuration.
type Config struct {
	Version int           `toml:"version"`
	Runtime RuntimeConfig `toml:"runtime"`
	Chat    ChatConfig    `toml:"chat"`
	Recall  RecallConfig  `toml:"recall"`
}

// RuntimeConfig holds settings for the local model runtime server.
type RuntimeConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	TaggingModel   string  `toml:"tagging_model"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// ChatConfig holds settings for the chat command.
type ChatConfig struct {
	// InstructionsFile overrides the built-in default instructions.
	InstructionsFile string `toml:"instructions_file"`
	// Tools lists the built-in tools enabled by default for chat sessions.
	Tools []string `toml:"tools"`
}

// RecallConfig holds settings for transcript recall in the chat REPL.
type RecallConfig struct {
	Enabled    bool   `toml:"enabled"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	MaxResults int    `toml:"max_results"`
	// CacheFile stores embeddings between runs. Empty disables the cache.
	CacheFile string `toml:"cache_file"`
}

// ConfigDir returns the config directory path.
// Resolution order: $AFM_CONFIG_DIR > $XDG_CONFIG_HOME/afm > ~/.config/afm
func ConfigDir() string {
	if dir := os.Getenv("AFM_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "afm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "afm-config")
	}
	return filepath.Join(home, ".config", "afm")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultConfig returns the default configuration from the embedded
// default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if err := toml.Unmarshal(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("afm: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	d := DefaultConfig()
	if cfg.Runtime.BaseURL == "" {
		cfg.Runtime.BaseURL = d.Runtime.BaseURL
	}
	if cfg.Runtime.Model == "" {
		cfg.Runtime.Model = d.Runtime.Model
	}
	if cfg.Runtime.MaxTokens == 0 {
		cfg.Runtime.MaxTokens = d.Runtime.MaxTokens
	}
	if cfg.Runtime.Temperature == 0 {
		cfg.Runtime.Temperature = d.Runtime.Temperature
	}
	if cfg.Runtime.TimeoutSeconds == 0 {
		cfg.Runtime.TimeoutSeconds = d.Runtime.TimeoutSeconds
	}
	if cfg.Recall.Model == "" {
		cfg.Recall.Model = d.Recall.Model
	}
	if cfg.Recall.MaxResults == 0 {
		cfg.Recall.MaxResults = d.Recall.MaxResults
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if cfg.Recall.Enabled && ResolveRecallBaseURL(cfg) == "" {
		warnings = append(warnings, "recall is enabled but no embedding base_url is configured; recall will be inactive")
	}
	if cfg.Runtime.TaggingModel == "" {
		warnings = append(warnings, "no tagging_model configured; the tagging capability will report unavailable")
	}
	return warnings
}

// ResolveBaseURL returns the runtime base URL.
// Priority: $AFM_BASE_URL env > config value.
func ResolveBaseURL(cfg *Config) string {
	if url := os.Getenv("AFM_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Runtime.BaseURL
	}
	return ""
}

// ResolveAPIKey returns the runtime API key.
// Priority: $AFM_API_KEY env > config value.
func ResolveAPIKey(cfg *Config) string {
	if key := os.Getenv("AFM_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Runtime.APIKey
	}
	return ""
}

// ResolveModel returns the default generation model name.
// Priority: $AFM_MODEL env > config value.
func ResolveModel(cfg *Config) string {
	if model := os.Getenv("AFM_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Runtime.Model
	}
	return ""
}

// ResolveTaggingModel returns the tagging model name.
// Priority: $AFM_TAGGING_MODEL env > config value.
func ResolveTaggingModel(cfg *Config) string {
	if model := os.Getenv("AFM_TAGGING_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Runtime.TaggingModel
	}
	return ""
}

// ResolveRecallBaseURL returns the embedding API base URL for recall.
// Priority: $AFM_RECALL_BASE_URL env > recall config value > runtime base URL.
func ResolveRecallBaseURL(cfg *Config) string {
	if url := os.Getenv("AFM_RECALL_BASE_URL"); url != "" {
		return url
	}
	if cfg == nil {
		return ""
	}
	if cfg.Recall.BaseURL != "" {
		return cfg.Recall.BaseURL
	}
	return cfg.Runtime.BaseURL
}

// RecallEnabled returns true when recall is switched on and an embedding
// endpoint can be resolved.
func RecallEnabled(cfg *Config) bool {
	if cfg == nil || !cfg.Recall.Enabled {
		return false
	}
	return ResolveRecallBaseURL(cfg) != ""
}

// Instructions returns the instruction text for chat sessions.
// Priority: configured instructions_file > embedded default.
func Instructions(cfg *Config) string {
	if cfg != nil && cfg.Chat.InstructionsFile != "" {
		if data, err := os.ReadFile(cfg.Chat.InstructionsFile); err == nil {
			return string(data)
		}
	}
	return defaults.DefaultInstructions
}
