package cfg

import (
	"errors"
	"fmt"
)

type (
	App struct {
		Name    string `mapstructure:"name"`
		Version string `mapstructure:"version"`
	}

	Log struct {
		// Driver selects the backend: "zap" or "console".
		Driver string `mapstructure:"driver"`
		// Format selects the zap encoder: "json" or "console".
		Format string `mapstructure:"format"`
		Level  string `mapstructure:"level"`
	}

	Database struct {
		// Driver is one of mysql, postgres, sqlite.
		Driver                string `mapstructure:"driver"`
		Host                  string `mapstructure:"host"`
		Port                  string `mapstructure:"port"`
		Username              string `mapstructure:"username"`
		Password              string `mapstructure:"password"`
		Database              string `mapstructure:"database"`
		SSLMode               string `mapstructure:"ssl_mode"`
		Path                  string `mapstructure:"path"`
		MaxIdleConnection     int    `mapstructure:"max_idle_connection"`
		MaxOpenConnection     int    `mapstructure:"max_open_connection"`
		MaxLifeTimeConnection int    `mapstructure:"max_life_time_connection"`
		TopTable              string `mapstructure:"top_table"`
		ActivityTable         string `mapstructure:"activity_table"`
	}

	GithubApi struct {
		AccessToken       string  `mapstructure:"access_token"`
		ApiUrl            string  `mapstructure:"api_url"`
		ApiVersion        string  `mapstructure:"api_version"`
		Accept            string  `mapstructure:"accept"`
		TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
		MaxRetries        int     `mapstructure:"max_retries"`
		RetryDelayMs      int     `mapstructure:"retry_delay_ms"`
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		ActivityPerPage   int     `mapstructure:"activity_per_page"`
		ActivityType      string  `mapstructure:"activity_type"`
	}

	Sync struct {
		Scope           string `mapstructure:"scope"`
		InitialCursor   int64  `mapstructure:"initial_cursor"`
		IntervalSeconds int    `mapstructure:"interval_seconds"`
		TopSize         int    `mapstructure:"top_size"`
	}

	Kafka struct {
		Brokers      []string `mapstructure:"brokers"`
		TopicPass    string   `mapstructure:"topic_pass"`
		TopicTrigger string   `mapstructure:"topic_trigger"`
		GroupID      string   `mapstructure:"group_id"`
	}

	Http struct {
		Addr string `mapstructure:"addr"`
	}
)

type Config struct {
	App       App       `mapstructure:"app"`
	Log       Log       `mapstructure:"log"`
	Database  Database  `mapstructure:"database"`
	GithubApi GithubApi `mapstructure:"github_api"`
	Sync      Sync      `mapstructure:"sync"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Http      Http      `mapstructure:"http"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the values the pipeline cannot run without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.GithubApi.ApiUrl == "" {
		return fmt.Errorf("%w: github_api.api_url must not be empty", ErrInvalidConfig)
	}
	if c.GithubApi.MaxRetries < 0 {
		return fmt.Errorf("%w: github_api.max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Sync.TopSize <= 0 {
		return fmt.Errorf("%w: sync.top_size must be positive", ErrInvalidConfig)
	}
	return nil
}

// KafkaEnabled reports whether any broker is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
