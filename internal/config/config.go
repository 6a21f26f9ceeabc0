package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the answerdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Assistant AssistantConfig `yaml:"assistant"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Answer    AnswerConfig    `yaml:"answer"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Index     IndexConfig     `yaml:"index"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig holds per-tenant request throttling settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// AssistantConfig holds the process-wide assistant switch.
type AssistantConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	User       string `yaml:"user"`
}

// AnswerConfig holds answer model and policy settings.
type AnswerConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
	User        string  `yaml:"user"`

	CostPerAnswerCents int64 `yaml:"cost_per_answer_cents"`

	ThinEvidenceFactor     float64 `yaml:"thin_evidence_factor"`
	ThinEvidenceMax        int     `yaml:"thin_evidence_max"`
	SemanticOnlyFactor     float64 `yaml:"semantic_only_factor"`
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the answer model.
type BreakerConfig struct {
	MinRequests    uint32  `yaml:"min_requests"`
	FailureRatio   float64 `yaml:"failure_ratio"`
	OpenTimeoutSec int     `yaml:"open_timeout_sec"`
}

// RetrievalConfig holds search policy settings.
type RetrievalConfig struct {
	LexicalLimits       map[string]int `yaml:"lexical_limits"` // per category
	SemanticPerType     int            `yaml:"semantic_per_type"`
	AbsoluteFloor       float64        `yaml:"absolute_floor"`
	RelativeFloorOffset float64        `yaml:"relative_floor_offset"`
	SnippetMaxChars     int            `yaml:"snippet_max_chars"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int     `yaml:"hnsw_m"`
	HNSWEFConstruct int     `yaml:"hnsw_ef_construction"`
	LabelWeight     float64 `yaml:"label_weight"`
	TextWeight      float64 `yaml:"text_weight"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Answer.TimeoutSec <= 0 {
		c.Answer.TimeoutSec = 30
	}
	if c.Answer.MaxTokens <= 0 {
		c.Answer.MaxTokens = 1024
	}
	if c.Answer.ThinEvidenceFactor <= 0 {
		c.Answer.ThinEvidenceFactor = 0.65
	}
	if c.Answer.ThinEvidenceMax <= 0 {
		c.Answer.ThinEvidenceMax = 3
	}
	if c.Answer.SemanticOnlyFactor <= 0 {
		c.Answer.SemanticOnlyFactor = 0.75
	}
	if c.Answer.LowConfidenceThreshold <= 0 {
		c.Answer.LowConfidenceThreshold = 0.55
	}
	if c.Answer.Breaker.MinRequests == 0 {
		c.Answer.Breaker.MinRequests = 5
	}
	if c.Answer.Breaker.FailureRatio <= 0 {
		c.Answer.Breaker.FailureRatio = 0.6
	}
	if c.Answer.Breaker.OpenTimeoutSec <= 0 {
		c.Answer.Breaker.OpenTimeoutSec = 30
	}
	if len(c.Retrieval.LexicalLimits) == 0 {
		c.Retrieval.LexicalLimits = map[string]int{
			"contacts":      30,
			"engagements":   30,
			"transactions":  20,
			"professionals": 20,
		}
	}
	if c.Retrieval.SemanticPerType <= 0 {
		c.Retrieval.SemanticPerType = 5
	}
	if c.Retrieval.AbsoluteFloor <= 0 {
		c.Retrieval.AbsoluteFloor = 0.40
	}
	if c.Retrieval.RelativeFloorOffset <= 0 {
		c.Retrieval.RelativeFloorOffset = 0.12
	}
	if c.Retrieval.SnippetMaxChars <= 0 {
		c.Retrieval.SnippetMaxChars = 900
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if c.Index.LabelWeight <= 0 {
		c.Index.LabelWeight = 5
	}
	if c.Index.TextWeight <= 0 {
		c.Index.TextWeight = 1
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Assistant.Enabled {
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required when the assistant is enabled")
		}
		if c.Answer.Model == "" {
			return fmt.Errorf("answer.model is required when the assistant is enabled")
		}
	}
	if c.Retrieval.AbsoluteFloor < 0 || c.Retrieval.AbsoluteFloor > 1 {
		return fmt.Errorf("retrieval.absolute_floor must be within [0,1], got %g", c.Retrieval.AbsoluteFloor)
	}
	if c.Answer.LowConfidenceThreshold < 0 || c.Answer.LowConfidenceThreshold > 1 {
		return fmt.Errorf("answer.low_confidence_threshold must be within [0,1], got %g",
			c.Answer.LowConfidenceThreshold)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
