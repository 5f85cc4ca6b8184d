package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestViperLoader_Defaults(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewViperLoader(WithConfigPath(dir), WithEnvFile(""))
	require.NoError(t, err)

	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, "https://api.github.com", config.GithubApi.ApiUrl)
	assert.Equal(t, "2022-11-28", config.GithubApi.ApiVersion)
	assert.Equal(t, 5, config.GithubApi.MaxRetries)
	assert.Equal(t, int64(1), config.Sync.InitialCursor)
	assert.Equal(t, 100, config.Sync.TopSize)
	assert.False(t, config.KafkaEnabled())
}

func TestViperLoader_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mode.yaml", `
database:
  driver: sqlite
  path: ":memory:"
github_api:
  max_retries: 2
sync:
  top_size: 50
kafka:
  brokers: ["localhost:9092"]
`)

	t.Setenv("GITHUB_API_ACCESS_TOKEN", "secret")
	t.Setenv("SYNC_TOP_SIZE", "25")

	loader, err := NewViperLoader(WithConfigPath(dir), WithEnvFile(""))
	require.NoError(t, err)
	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, 2, config.GithubApi.MaxRetries)
	assert.Equal(t, "secret", config.GithubApi.AccessToken)
	assert.Equal(t, 25, config.Sync.TopSize, "env overrides file")
	assert.True(t, config.KafkaEnabled())
}

func TestViperLoader_EnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "GITHUB_API_ACCESS_TOKEN=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("GITHUB_API_ACCESS_TOKEN") })

	loader, err := NewViperLoader(WithConfigPath(dir), WithEnvFile(filepath.Join(dir, ".env")))
	require.NoError(t, err)
	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", config.GithubApi.AccessToken)
}

func TestViperLoader_Invalid(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "mode.yaml", "database:\n  driver: oracle\n")
		loader, _ := NewViperLoader(WithConfigPath(dir), WithEnvFile(""))

		config, err := loader.Load()
		require.ErrorIs(t, err, ErrInvalidConfig)
		assert.Nil(t, config)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "mode.yaml", "invalid: yaml: content: [")
		loader, _ := NewViperLoader(WithConfigPath(dir), WithEnvFile(""))

		config, err := loader.Load()
		require.Error(t, err)
		assert.Nil(t, config)
	})
}

func TestMockLoader(t *testing.T) {
	loader, err := NewMockLoader()
	require.NoError(t, err)
	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.NoError(t, config.Validate())
}
