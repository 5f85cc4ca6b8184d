package cfg

type MockLoader struct {
	// DatabasePath overrides the sqlite DSN, tests use a unique in-memory name each.
	DatabasePath string
}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{}, nil
}

func (ml *MockLoader) Load() (*Config, error) {
	config := Defaults()

	// Log
	config.Log.Driver = "console"
	config.Log.Level = "debug"

	// Database
	config.Database.Driver = "sqlite"
	config.Database.Path = "file:github_top100?mode=memory&cache=shared"
	if ml.DatabasePath != "" {
		config.Database.Path = ml.DatabasePath
	}
	config.Database.MaxIdleConnection = 1
	config.Database.MaxOpenConnection = 1

	// GithubApi
	config.GithubApi.RetryDelayMs = 1
	config.GithubApi.RequestsPerSecond = 0

	return config, nil
}
