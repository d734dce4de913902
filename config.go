package glance

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	defaults "github.com/Paranoid-AF/glance/default"
)

// Config represents the user's glance configuration.
type Config struct {
	Version    int              `toml:"version" json:"version"`
	Generation GenerationConfig `toml:"generation" json:"generation"`
	Embedding  EmbeddingConfig  `toml:"embedding" json:"embedding"`
	Actions    ActionsConfig    `toml:"actions" json:"actions"`
	Catalog    CatalogConfig    `toml:"catalog" json:"catalog"`
	Clipboard  ClipboardConfig  `toml:"clipboard" json:"clipboard"`
	Usage      UsageConfig      `toml:"usage" json:"usage"`
	Telemetry  TelemetryConfig  `toml:"telemetry" json:"telemetry"`
}

// GenerationConfig holds settings for the model API that runs actions.
type GenerationConfig struct {
	BaseURL         string   `toml:"base_url" json:"base_url"`
	APIKey          string   `toml:"api_key" json:"api_key"`
	APIType         string   `toml:"api_type" json:"api_type"`
	Model           string   `toml:"model" json:"model"`
	MaxTokens       int      `toml:"max_tokens" json:"max_tokens,omitempty"`
	Temperature     float64  `toml:"temperature" json:"temperature,omitempty"`
	Stop            []string `toml:"stop" json:"stop,omitempty"`
	CacheTTLMinutes int      `toml:"cache_ttl_minutes" json:"cache_ttl_minutes,omitempty"`
}

// EmbeddingConfig holds settings for the embedding API used to order the
// catalog by captured text.
type EmbeddingConfig struct {
	BaseURL string `toml:"base_url" json:"base_url"`
	APIKey  string `toml:"api_key" json:"api_key"`
	Model   string `toml:"model" json:"model"`
	TopK    int    `toml:"top_k" json:"top_k,omitempty"`
}

// ActionsConfig holds the preferences substituted into action prompts.
type ActionsConfig struct {
	Language string `toml:"language" json:"language"`
	Currency string `toml:"currency" json:"currency"`
	TimeZone string `toml:"time_zone" json:"time_zone,omitempty"`
}

// CatalogConfig holds settings for the command catalog.
type CatalogConfig struct {
	Path       string `toml:"path" json:"path,omitempty"`
	TTLMinutes int    `toml:"ttl_minutes" json:"ttl_minutes,omitempty"`
	Watch      *bool  `toml:"watch" json:"watch,omitempty"`
}

// ClipboardConfig holds settings for the clipboard history feed.
type ClipboardConfig struct {
	PollMillis int   `toml:"poll_ms" json:"poll_ms,omitempty"`
	Enabled    *bool `toml:"enabled" json:"enabled,omitempty"`
}

// UsageConfig holds settings for usage recording.
type UsageConfig struct {
	DBPath string `toml:"db_path" json:"db_path,omitempty"`
}

// TelemetryConfig holds telemetry settings.
type TelemetryConfig struct {
	OpenRouter *bool `toml:"openrouter" json:"openrouter,omitempty"`
}

// ConfigDir returns the config directory path.
// Resolution order: $GLANCE_CONFIG_DIR > $XDG_CONFIG_HOME/glance > ~/.config/glance
func ConfigDir() string {
	if dir := os.Getenv("GLANCE_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "glance")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "glance-config")
	}
	return filepath.Join(home, ".config", "glance")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// PromptDir returns the directory holding custom action prompts.
func PromptDir() string {
	return filepath.Join(ConfigDir(), "prompts")
}

// DataDir returns the directory for the usage database and caches.
// Resolution order: $GLANCE_DATA_DIR > $XDG_DATA_HOME/glance > ~/.local/share/glance
func DataDir() string {
	if dir := os.Getenv("GLANCE_DATA_DIR"); dir != "" {
		return dir
	}
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "glance")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "glance-data")
	}
	return filepath.Join(home, ".local", "share", "glance")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if _, err := toml.Decode(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("glance: invalid embedded default_config.toml: " + err.Error())
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
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	def := DefaultConfig()
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = def.Generation.BaseURL
	}
	if cfg.Generation.APIType == "" {
		cfg.Generation.APIType = def.Generation.APIType
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = def.Generation.Model
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = def.Generation.MaxTokens
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = def.Generation.Temperature
	}
	if cfg.Generation.CacheTTLMinutes == 0 {
		cfg.Generation.CacheTTLMinutes = def.Generation.CacheTTLMinutes
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.TopK == 0 {
		cfg.Embedding.TopK = def.Embedding.TopK
	}
	if cfg.Actions.Language == "" {
		cfg.Actions.Language = def.Actions.Language
	}
	if cfg.Actions.Currency == "" {
		cfg.Actions.Currency = def.Actions.Currency
	}
	if cfg.Catalog.TTLMinutes == 0 {
		cfg.Catalog.TTLMinutes = def.Catalog.TTLMinutes
	}
	if cfg.Catalog.Watch == nil {
		cfg.Catalog.Watch = def.Catalog.Watch
	}
	if cfg.Clipboard.PollMillis == 0 {
		cfg.Clipboard.PollMillis = def.Clipboard.PollMillis
	}
	if cfg.Clipboard.Enabled == nil {
		cfg.Clipboard.Enabled = def.Clipboard.Enabled
	}
	if cfg.Telemetry.OpenRouter == nil {
		cfg.Telemetry.OpenRouter = def.Telemetry.OpenRouter
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if ResolveGenerationAPIKey(cfg) == "" {
		warnings = append(warnings, "generation API key is not configured; inline actions will fail")
	}
	switch cfg.Generation.APIType {
	case "", "responses", "chat_completions":
	default:
		warnings = append(warnings, "unknown generation api_type "+cfg.Generation.APIType+"; falling back to responses")
	}
	if cfg.Catalog.Path != "" {
		if _, err := os.Stat(cfg.Catalog.Path); err != nil {
			warnings = append(warnings, "catalog path is not readable; the built-in catalog will be used")
		}
	}
	return warnings
}

// ResolveGenerationBaseURL returns the generation API base URL.
// Priority: $GLANCE_GENERATION_API_BASE_URL env > config value.
func ResolveGenerationBaseURL(cfg *Config) string {
	if url := os.Getenv("GLANCE_GENERATION_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Generation.BaseURL
	}
	return ""
}

// ResolveGenerationAPIKey returns the generation API key.
// Priority: $GLANCE_GENERATION_API_KEY env > config value.
func ResolveGenerationAPIKey(cfg *Config) string {
	if key := os.Getenv("GLANCE_GENERATION_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Generation.APIKey
	}
	return ""
}

// ResolveGenerationModel returns the generation model name.
// Priority: $GLANCE_GENERATION_MODEL env > config value.
func ResolveGenerationModel(cfg *Config) string {
	if model := os.Getenv("GLANCE_GENERATION_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Generation.Model
	}
	return ""
}

// ResolveEmbeddingBaseURL returns the embedding API base URL.
// Priority: $GLANCE_EMBEDDING_API_BASE_URL env > config value.
func ResolveEmbeddingBaseURL(cfg *Config) string {
	if url := os.Getenv("GLANCE_EMBEDDING_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Embedding.BaseURL
	}
	return ""
}

// ResolveEmbeddingAPIKey returns the embedding API key.
// Priority: $GLANCE_EMBEDDING_API_KEY env > config value.
func ResolveEmbeddingAPIKey(cfg *Config) string {
	if key := os.Getenv("GLANCE_EMBEDDING_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Embedding.APIKey
	}
	return ""
}

// ResolveEmbeddingModel returns the embedding model name.
// Priority: $GLANCE_EMBEDDING_MODEL env > config value.
func ResolveEmbeddingModel(cfg *Config) string {
	if model := os.Getenv("GLANCE_EMBEDDING_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Embedding.Model
	}
	return ""
}

// EmbeddingEnabled returns true when both base_url and api_key are configured for embedding.
func EmbeddingEnabled(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return ResolveEmbeddingBaseURL(cfg) != "" && ResolveEmbeddingAPIKey(cfg) != ""
}

// ResolveCatalogPath returns the user catalog file path.
// Priority: $GLANCE_CATALOG env > config value > <config dir>/catalog.toml.
func ResolveCatalogPath(cfg *Config) string {
	if path := os.Getenv("GLANCE_CATALOG"); path != "" {
		return path
	}
	if cfg != nil && cfg.Catalog.Path != "" {
		return cfg.Catalog.Path
	}
	return filepath.Join(ConfigDir(), "catalog.toml")
}

// ResolveUsageDBPath returns the usage database path.
// Priority: config value > <data dir>/usage.db.
func ResolveUsageDBPath(cfg *Config) string {
	if cfg != nil && cfg.Usage.DBPath != "" {
		return cfg.Usage.DBPath
	}
	return filepath.Join(DataDir(), "usage.db")
}

// CatalogWatchEnabled returns whether the catalog file is watched for changes.
func CatalogWatchEnabled(cfg *Config) bool {
	if cfg == nil || cfg.Catalog.Watch == nil {
		return true
	}
	return *cfg.Catalog.Watch
}

// ClipboardEnabled returns whether the daemon keeps a clipboard history.
func ClipboardEnabled(cfg *Config) bool {
	if cfg == nil || cfg.Clipboard.Enabled == nil {
		return true
	}
	return *cfg.Clipboard.Enabled
}

// OpenRouterTelemetryEnabled returns whether OpenRouter attribution headers should be sent.
func OpenRouterTelemetryEnabled(cfg *Config) bool {
	if cfg == nil || cfg.Telemetry.OpenRouter == nil {
		return true // default true
	}
	return *cfg.Telemetry.OpenRouter
}

// SocketPath returns the daemon socket path.
// Resolution order: $GLANCE_SOCKET > $XDG_RUNTIME_DIR/glance.sock > /tmp/glance-<uid>.sock
func SocketPath() string {
	if path := os.Getenv("GLANCE_SOCKET"); path != "" {
		return path
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "glance.sock")
	}
	return filepath.Join("/tmp", fmt.Sprintf("glance-%d.sock", os.Getuid()))
}
