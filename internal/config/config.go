package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	LLM         LLMConfig         `mapstructure:"llm"         validate:"required"`
	Cache       CacheConfig       `mapstructure:"cache"       validate:"required"`
	Executor    ExecutorConfig    `mapstructure:"executor"    validate:"required"`
	Generator   GeneratorConfig   `mapstructure:"generator"   validate:"required"`
	Consistency ConsistencyConfig `mapstructure:"consistency" validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// LLMConfig contains all remote text-generator related settings. A missing
// API key, a missing model name, or a temperature outside [0, 1] is a fatal
// startup error, distinct from any runtime failure in the dispatch core.
type LLMConfig struct {
	Provider           string  `mapstructure:"provider"             validate:"required,oneof=groq gemini"`
	APIKey             string  `mapstructure:"api_key"              validate:"required"`
	ModelName          string  `mapstructure:"model_name"           validate:"required"`
	Temperature        float64 `mapstructure:"temperature"          validate:"gte=0,lte=1"`
	PromptTemplatePath string  `mapstructure:"prompt_template_path"`
}

// CacheConfig contains the answer cache settings.
type CacheConfig struct {
	FilePath string        `mapstructure:"file_path" validate:"required"`
	TTL      time.Duration `mapstructure:"ttl"       validate:"gt=0"`
	MaxSize  int           `mapstructure:"max_size"  validate:"gt=0"`
}

// ExecutorConfig contains the admission-control settings for outbound calls:
// the concurrency cap and the sliding-window rate ceiling.
type ExecutorConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent" validate:"gt=0"`
	RateLimit     int           `mapstructure:"rate_limit"     validate:"gt=0"`
	Window        time.Duration `mapstructure:"window"         validate:"gt=0"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout"   validate:"gt=0"`
}

// GeneratorConfig contains the dispatch core's retry settings. The per-call
// timeout lives on the executor as task_timeout.
type GeneratorConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"      validate:"gte=0"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"gt=0"`
}

// ConsistencyConfig contains the answer-consistency validator settings.
type ConsistencyConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" validate:"gte=0,lte=1"`
}
