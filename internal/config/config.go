package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all server configuration. Values come from config.yaml when
// present, overridden by SCIENCELAB_* environment variables.
type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	DBDriver string `mapstructure:"DB_DRIVER"` // sqlite | postgres
	DBDSN    string `mapstructure:"DB_DSN"`

	AuthSecret string        `mapstructure:"AUTH_SECRET"`
	TokenTTL   time.Duration `mapstructure:"TOKEN_TTL"`
	BcryptCost int           `mapstructure:"BCRYPT_COST"`

	ResetTokenTTL time.Duration `mapstructure:"RESET_TOKEN_TTL"`
	// Dev-only escape hatch: include raw reset tokens in API responses.
	AllowDebugResetToken bool `mapstructure:"ALLOW_DEBUG_RESET_TOKEN"`

	OpenAIAPIKey  string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string        `mapstructure:"OPENAI_MODEL"`
	AITimeout     time.Duration `mapstructure:"AI_TIMEOUT"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`  // debug, info, warn, error
	LogFormat string `mapstructure:"LOG_FORMAT"` // text, json
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_DSN", "")
	viper.SetDefault("AUTH_SECRET", "dev-only-secret-change-me")
	viper.SetDefault("TOKEN_TTL", "8h")
	viper.SetDefault("BCRYPT_COST", 12)
	viper.SetDefault("RESET_TOKEN_TTL", "48h")
	viper.SetDefault("ALLOW_DEBUG_RESET_TOKEN", false)
	viper.SetDefault("OPENAI_API_KEY", "")
	viper.SetDefault("OPENAI_BASE_URL", "")
	viper.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	viper.SetDefault("AI_TIMEOUT", "30s")
	viper.SetDefault("CORS_ORIGINS", []string{"http://localhost:3000"})
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config.yaml: env vars and defaults only.
	}

	viper.SetEnvPrefix("SCIENCELAB")
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
