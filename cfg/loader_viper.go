package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ViperLoader struct {
	v          *viper.Viper
	configPath string
	configName string
	envFile    string
	watch      bool

	once sync.Once
	mu   sync.RWMutex
	cfg  *Config

	configChangeCallbacks []func(*Config)
}

type ViperOption func(*ViperLoader)

// WithConfigPath sets the directory searched for the YAML file.
func WithConfigPath(path string) ViperOption {
	return func(l *ViperLoader) {
		if path != "" {
			l.configPath = path
		}
	}
}

// WithConfigName sets the YAML file name without extension.
func WithConfigName(name string) ViperOption {
	return func(l *ViperLoader) {
		if name != "" {
			l.configName = name
		}
	}
}

// WithEnvFile sets the dotenv file loaded before the environment is read.
func WithEnvFile(path string) ViperOption {
	return func(l *ViperLoader) {
		l.envFile = path
	}
}

// WithWatch enables reloading when the config file changes.
func WithWatch(watch bool) ViperOption {
	return func(l *ViperLoader) {
		l.watch = watch
	}
}

func NewViperLoader(opts ...ViperOption) (*ViperLoader, error) {
	l := &ViperLoader{
		v:                     viper.New(),
		configPath:            "cfg/yaml",
		configName:            "mode",
		envFile:               ".env",
		configChangeCallbacks: make([]func(*Config), 0),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (yl *ViperLoader) Load() (*Config, error) {
	var err error
	yl.once.Do(func() {
		err = yl.loadConfig()
		if err == nil && yl.IsWatchChange() && yl.v.ConfigFileUsed() != "" {
			yl.v.OnConfigChange(func(e fsnotify.Event) {
				fmt.Printf("[INFO][CONFIG] Config file changed: %s\n", e.Name)
				if errReload := yl.reloadConfig(); errReload != nil {
					fmt.Printf("[ERROR][CONFIG] Failed to reload config: %v\n", errReload)
				}
			})
			yl.v.WatchConfig()
		}
	})

	if err != nil {
		return nil, err
	}

	yl.mu.RLock()
	defer yl.mu.RUnlock()
	return yl.cfg, nil
}

func (yl *ViperLoader) IsWatchChange() bool {
	return yl.watch
}

func (yl *ViperLoader) RegisterConfigChangeCallback(callback func(*Config)) {
	yl.mu.Lock()
	yl.configChangeCallbacks = append(yl.configChangeCallbacks, callback)
	yl.mu.Unlock()
}

func (yl *ViperLoader) loadConfig() error {
	if yl.envFile != "" {
		if err := godotenv.Load(yl.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("[ERROR][CONFIG] failed to read env file: %w", err)
		}
	}

	setDefaults(yl.v, Defaults())
	yl.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	yl.v.AutomaticEnv()

	yl.v.AddConfigPath(yl.configPath)
	yl.v.SetConfigName(yl.configName)
	yl.v.SetConfigType("yaml")
	if err := yl.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("[ERROR][CONFIG] failed to read config file: %w", err)
		}
	}

	cfg, err := yl.unmarshal()
	if err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to unmarshal config: %w", err)
	}

	yl.mu.Lock()
	yl.cfg = cfg
	yl.mu.Unlock()

	return nil
}

func (yl *ViperLoader) reloadConfig() error {
	cfg, err := yl.unmarshal()
	if err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to unmarshal config during reload: %w", err)
	}

	yl.mu.Lock()
	yl.cfg = cfg

	// Notify all registered callbacks
	callbacks := make([]func(*Config), len(yl.configChangeCallbacks))
	copy(callbacks, yl.configChangeCallbacks)
	yl.mu.Unlock()
	for _, callback := range callbacks {
		go callback(cfg)
	}

	fmt.Println("[INFO][CONFIG] Configuration reloaded successfully")
	return nil
}

func (yl *ViperLoader) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := yl.v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.version", d.App.Version)

	v.SetDefault("log.driver", d.Log.Driver)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.level", d.Log.Level)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.username", d.Database.Username)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.database", d.Database.Database)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.max_idle_connection", d.Database.MaxIdleConnection)
	v.SetDefault("database.max_open_connection", d.Database.MaxOpenConnection)
	v.SetDefault("database.max_life_time_connection", d.Database.MaxLifeTimeConnection)
	v.SetDefault("database.top_table", d.Database.TopTable)
	v.SetDefault("database.activity_table", d.Database.ActivityTable)

	v.SetDefault("github_api.access_token", d.GithubApi.AccessToken)
	v.SetDefault("github_api.api_url", d.GithubApi.ApiUrl)
	v.SetDefault("github_api.api_version", d.GithubApi.ApiVersion)
	v.SetDefault("github_api.accept", d.GithubApi.Accept)
	v.SetDefault("github_api.timeout_seconds", d.GithubApi.TimeoutSeconds)
	v.SetDefault("github_api.max_retries", d.GithubApi.MaxRetries)
	v.SetDefault("github_api.retry_delay_ms", d.GithubApi.RetryDelayMs)
	v.SetDefault("github_api.requests_per_second", d.GithubApi.RequestsPerSecond)
	v.SetDefault("github_api.activity_per_page", d.GithubApi.ActivityPerPage)
	v.SetDefault("github_api.activity_type", d.GithubApi.ActivityType)

	v.SetDefault("sync.scope", d.Sync.Scope)
	v.SetDefault("sync.initial_cursor", d.Sync.InitialCursor)
	v.SetDefault("sync.interval_seconds", d.Sync.IntervalSeconds)
	v.SetDefault("sync.top_size", d.Sync.TopSize)

	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic_pass", d.Kafka.TopicPass)
	v.SetDefault("kafka.topic_trigger", d.Kafka.TopicTrigger)
	v.SetDefault("kafka.group_id", d.Kafka.GroupID)

	v.SetDefault("http.addr", d.Http.Addr)
}
