package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables (prefixed with FORMFILL_) take precedence over
// values from the config file, which takes precedence over defaults.
// Returns a populated Config struct or an error if loading or validation
// fails; callers are expected to treat that error as fatal.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing file is fine; defaults and environment cover everything.
	}

	// FORMFILL_LLM_API_KEY overrides llm.api_key, and so on.
	v.SetEnvPrefix("FORMFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every key so AutomaticEnv can bind
// each of them and a bare environment is a valid starting point.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model_name", "mixtral-8x7b-32768")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.prompt_template_path", "")

	v.SetDefault("cache.file_path", "data/cache.json")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.max_size", 1000)

	v.SetDefault("executor.max_concurrent", 5)
	v.SetDefault("executor.rate_limit", 100)
	v.SetDefault("executor.window", time.Minute)
	v.SetDefault("executor.task_timeout", 5*time.Second)

	v.SetDefault("generator.max_retries", 3)
	v.SetDefault("generator.retry_base_delay", 500*time.Millisecond)

	v.SetDefault("consistency.similarity_threshold", 0.6)
}
