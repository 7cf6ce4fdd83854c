package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix namespaces every environment override, e.g. SKILLGAP_AI_APIKEY
const envPrefix = "SKILLGAP"

var configSearchPaths = []string{"/etc/skillgap/", "$HOME/.skillgap", "."}

// Config is the merged application configuration. Credentials resolve in this order:
// Vault secrets, then SKILLGAP_ environment variables, then the config file, then defaults.
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Data          DataConfig          `mapstructure:"data"`
	Extraction    ExtractionConfig    `mapstructure:"extraction"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	prompts *PromptStore
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global/fallback configuration
	Provider         string         `mapstructure:"provider"`
	Model            string         `mapstructure:"model"`
	Timeout          time.Duration  `mapstructure:"timeout"`
	APIKey           string         `mapstructure:"apiKey"`
	MaxRetries       int            `mapstructure:"maxRetries"`
	Temperature      float32        `mapstructure:"temperature"`
	UseSystemPrompts bool           `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig   `mapstructure:"customPrompts"`
	Sanitize         SanitizeConfig `mapstructure:"sanitize"`

	// Operation-specific configurations
	Refine OperationAIConfig `mapstructure:"refine"`
	Coach  OperationAIConfig `mapstructure:"coach"`
}

// SanitizeConfig controls input redaction on safety-blocked retries
type SanitizeConfig struct {
	MaxChars int `mapstructure:"maxChars"` // Truncation length at the first redaction level
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds AI configuration for specific operations
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds configuration for customizable prompts
type PromptConfig struct {
	SystemPrompts SystemPrompts `mapstructure:"systemPrompts"`
	UserPrompts   UserPrompts   `mapstructure:"userPrompts"`
}

// SystemPrompts contains system-level instructions
type SystemPrompts struct {
	RefineSkills     string `mapstructure:"refineSkills"`
	RefineSkillsFile string `mapstructure:"refineSkillsFile"`
	CoachCareer      string `mapstructure:"coachCareer"`
	CoachCareerFile  string `mapstructure:"coachCareerFile"`
}

// UserPrompts contains user-level prompt templates
type UserPrompts struct {
	RefineSkills     string `mapstructure:"refineSkills"`
	RefineSkillsFile string `mapstructure:"refineSkillsFile"`
	CoachCareer      string `mapstructure:"coachCareer"`
	CoachCareerFile  string `mapstructure:"coachCareerFile"`
}

// DataConfig points at the market data loaded at startup
type DataConfig struct {
	PostingsFile string `mapstructure:"postingsFile"` // Aggregated job postings (.csv or .xlsx)
	TaxonomyFile string `mapstructure:"taxonomyFile"` // Skills taxonomy (.csv or .xlsx)
}

// ExtractionConfig holds skill extraction configuration
type ExtractionConfig struct {
	VocabularyFile string       `mapstructure:"vocabularyFile"` // Optional YAML vocabulary override
	ExtraStopwords []string     `mapstructure:"extraStopwords"`
	ExtraDenylist  []string     `mapstructure:"extraDenylist"`
	Tagger         TaggerConfig `mapstructure:"tagger"`
}

// TaggerConfig configures the remote skill tagging model
type TaggerConfig struct {
	Enabled        bool                 `mapstructure:"enabled"`
	Endpoint       string               `mapstructure:"endpoint"`
	APIKey         string               `mapstructure:"apiKey"` // Sent as a bearer token when set
	Timeout        time.Duration        `mapstructure:"timeout"`
	Threshold      float64              `mapstructure:"threshold"`
	Labels         []string             `mapstructure:"labels"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`

	// Reload prompt files when they change on disk
	WatchPrompts bool `mapstructure:"watchPrompts"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig tunes the stdout exporters used when consoleOutput is set
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AIOperationsMetricsConfig holds AI operation metrics configuration
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
	TrackModelInfo  bool `mapstructure:"trackModelInfo"`
	TrackSafety     bool `mapstructure:"trackSafety"`
}

// BusinessMetricsConfig holds business metrics configuration
type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
	TrackContentSizes bool `mapstructure:"trackContentSizes"`
	TrackSkillCounts  bool `mapstructure:"trackSkillCounts"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig bounds the AI model check done by /health
type HealthCheckConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range configSearchPaths {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.applyFallbacks()
	config.logConfigurationSources(v.ConfigFileUsed())

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}
	if err := config.Prompts().LoadFiles(config.PromptFiles()); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate checks the settings every command needs.
// AI credentials are checked separately by ValidateAI.
func (c *Config) Validate() error {
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.AI.Sanitize.MaxChars <= 0 {
		return fmt.Errorf("ai.sanitize.maxChars must be positive")
	}

	if c.Data.PostingsFile == "" || c.Data.TaxonomyFile == "" {
		return fmt.Errorf("data.postingsFile and data.taxonomyFile are required")
	}

	if c.Extraction.Tagger.Enabled {
		if c.Extraction.Tagger.Endpoint == "" {
			return fmt.Errorf("extraction.tagger.endpoint is required when the tagger is enabled")
		}
		if c.Extraction.Tagger.Threshold < 0 || c.Extraction.Tagger.Threshold > 1 {
			return fmt.Errorf("extraction.tagger.threshold must be between 0 and 1")
		}
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}

// ValidateAI checks the settings needed to call the AI model
func (c *Config) ValidateAI() error {
	if c.GetRefineConfig().APIKey == "" || c.GetCoachConfig().APIKey == "" {
		return fmt.Errorf("AI API key is required (set SKILLGAP_AI_APIKEY environment variable)")
	}
	return nil
}
