package cfg

// Defaults returns the configuration used when neither file nor environment set a key.
func Defaults() *Config {
	return &Config{
		App: App{
			Name:    "github-top100",
			Version: "0.1.0",
		},
		Log: Log{
			Driver: "zap",
			Format: "json",
			Level:  "info",
		},
		Database: Database{
			Driver:                "postgres",
			Host:                  "127.0.0.1",
			Port:                  "5432",
			Username:              "postgres",
			Password:              "postgres",
			Database:              "github_top100",
			SSLMode:               "disable",
			Path:                  "github_top100.db",
			MaxIdleConnection:     10,
			MaxOpenConnection:     50,
			MaxLifeTimeConnection: 3600,
			TopTable:              "top_repos",
			ActivityTable:         "repo_activity",
		},
		GithubApi: GithubApi{
			ApiUrl:            "https://api.github.com",
			ApiVersion:        "2022-11-28",
			Accept:            "application/vnd.github+json",
			TimeoutSeconds:    30,
			MaxRetries:        5,
			RetryDelayMs:      500,
			RequestsPerSecond: 1.2,
			ActivityPerPage:   100,
			ActivityType:      "push",
		},
		Sync: Sync{
			Scope:           "repositories",
			InitialCursor:   1,
			IntervalSeconds: 600,
			TopSize:         100,
		},
		Kafka: Kafka{
			TopicPass:    "github-top100.passes",
			TopicTrigger: "github-top100.triggers",
			GroupID:      "github-top100-sync",
		},
		Http: Http{
			Addr: ":8080",
		},
	}
}
