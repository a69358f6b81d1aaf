package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivethreefive/legisync/internal/publish"
)

const minimalYAML = `dataDir: /var/lib/legisync
upstream:
  apiKey: upstream-key
publish:
  appID: app
  appSecret: secret
  username: bot
  password: hunter2
  subreddit: "535"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(WithConfigPath(writeConfig(t, minimalYAML)), WithEnv(viper.New()))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/legisync", cfg.DataDir)
	assert.Equal(t, []string{ChamberHouse, ChamberSenate}, cfg.Chambers)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, DefaultLookback, cfg.GetLookback())
	assert.Equal(t, DefaultSyncInterval, cfg.GetSyncInterval())
	assert.Equal(t, DefaultUpstreamBaseURL, cfg.Upstream.BaseURL)
	assert.Equal(t, DefaultRequestsPerMinute, cfg.Upstream.RequestsPerMinute)
	assert.Equal(t, DefaultUpstreamTimeout, cfg.Upstream.GetTimeout())
	assert.Equal(t, DefaultPublishBaseURL, cfg.Publish.BaseURL)
	assert.Equal(t, DefaultTokenURL, cfg.Publish.TokenURL)
	assert.Equal(t, DefaultRequestsPerMinute, cfg.Publish.RequestsPerMinute)
	assert.True(t, cfg.Publish.IsBlocking())
	assert.Zero(t, cfg.Publish.GetTokenSafetyMargin())
	assert.Nil(t, cfg.Telemetry)
}

func TestLoadConfig_FullFile(t *testing.T) {
	t.Parallel()

	content := `dataDir: ./data
congress: 115
chambers: [senate]
lookback: 48h
syncInterval: 10m
workers: 4
rememberCursor: true
upstream:
  baseURL: http://localhost:8080/congress/v1/
  apiKey: upstream-key
  requestsPerMinute: 30
  timeout: 5s
publish:
  appID: app
  appSecret: secret
  username: bot
  password: hunter2
  userAgent: legisync-test
  subreddit: "535"
  requestsPerMinute: 20
  blocking: false
  tokenSafetyMargin: 2m
  flair:
    bill: bill-flair
    votePassed: pass-flair
    voteFailed: fail-flair
publishedFields:
  bill: [title, status]
  vote: [result]
telemetry:
  enabled: true
`
	cfg, err := LoadConfig(WithConfigPath(writeConfig(t, content)), WithEnv(viper.New()))
	require.NoError(t, err)

	assert.Equal(t, 115, cfg.Congress)
	assert.Equal(t, []string{ChamberSenate}, cfg.Chambers)
	assert.Equal(t, 48*time.Hour, cfg.GetLookback())
	assert.Equal(t, 10*time.Minute, cfg.GetSyncInterval())
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.RememberCursor)
	assert.Equal(t, 30, cfg.Upstream.RequestsPerMinute)
	assert.Equal(t, 5*time.Second, cfg.Upstream.GetTimeout())
	assert.False(t, cfg.Publish.IsBlocking())
	assert.Equal(t, 2*time.Minute, cfg.Publish.GetTokenSafetyMargin())
	assert.Equal(t, publish.Flair{Bill: "bill-flair", VotePassed: "pass-flair", VoteFailed: "fail-flair"}, cfg.Publish.Flair)
	assert.Equal(t, []string{"title", "status"}, cfg.PublishedFields.Bill)
	assert.Equal(t, []string{"result"}, cfg.PublishedFields.Vote)
	require.NotNil(t, cfg.Telemetry)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, DefaultAddress, cfg.Telemetry.Address)
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	t.Parallel()

	env := viper.New()
	env.Set("upstream.api_key", "env-key")
	env.Set("publish.password", "env-password")
	env.Set("publish.username", "")

	cfg, err := LoadConfig(WithConfigPath(writeConfig(t, minimalYAML)), WithEnv(env))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Upstream.APIKey)
	assert.Equal(t, "env-password", cfg.Publish.Password)
	assert.Equal(t, "bot", cfg.Publish.Username, "empty env values do not clear the file")
	assert.Equal(t, "app", cfg.Publish.AppID)
}

func TestLoadConfig_SecretsFromEnvOnly(t *testing.T) {
	t.Parallel()

	content := `dataDir: /data
publish:
  subreddit: "535"
`
	env := viper.New()
	env.Set("upstream.api_key", "k")
	env.Set("publish.app_id", "a")
	env.Set("publish.app_secret", "s")
	env.Set("publish.username", "u")
	env.Set("publish.password", "p")

	cfg, err := LoadConfig(WithConfigPath(writeConfig(t, content)), WithEnv(env))
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Publish.AppID)
	assert.Equal(t, "s", cfg.Publish.AppSecret)
}

func TestNewEnv(t *testing.T) {
	t.Setenv("LEGISYNC_PUBLISH_APP_SECRET", "from-env")

	assert.Equal(t, "from-env", NewEnv().GetString("publish.app_secret"))
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		yamlContent string
		errContains string
	}{
		{
			name:        "missing data dir",
			yamlContent: "upstream:\n  apiKey: k\n",
			errContains: "dataDir is required",
		},
		{
			name:        "unknown chamber",
			yamlContent: minimalYAML + "chambers: [house, assembly]\n",
			errContains: `unknown chamber "assembly"`,
		},
		{
			name:        "duplicate chamber",
			yamlContent: minimalYAML + "chambers: [house, house]\n",
			errContains: "duplicate chamber",
		},
		{
			name:        "negative workers",
			yamlContent: minimalYAML + "workers: -2\n",
			errContains: "workers must be at least 1",
		},
		{
			name:        "malformed lookback",
			yamlContent: minimalYAML + "lookback: yesterday\n",
			errContains: "lookback must be a valid duration",
		},
		{
			name:        "negative interval",
			yamlContent: minimalYAML + "syncInterval: -5m\n",
			errContains: "syncInterval must not be negative",
		},
		{
			name: "missing upstream key",
			yamlContent: `dataDir: /data
publish:
  appID: a
  appSecret: s
  username: u
  password: p
  subreddit: x
`,
			errContains: "upstream.apiKey is required",
		},
		{
			name: "missing subreddit",
			yamlContent: `dataDir: /data
upstream:
  apiKey: k
publish:
  appID: a
  appSecret: s
  username: u
  password: p
`,
			errContains: "publish.subreddit is required",
		},
		{
			name: "bad publish url",
			yamlContent: `dataDir: /data
upstream:
  apiKey: k
publish:
  baseURL: ftp://example.com
  appID: a
  appSecret: s
  username: u
  password: p
  subreddit: x
`,
			errContains: "publish.baseURL must be an http or https URL",
		},
		{
			name:        "tracing without endpoint",
			yamlContent: minimalYAML + "telemetry:\n  enabled: true\n  tracing:\n    enabled: true\n",
			errContains: "endpoint is required",
		},
		{
			name:        "invalid yaml",
			yamlContent: "dataDir: [unterminated",
			errContains: "failed to parse YAML config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadConfig(WithConfigPath(writeConfig(t, tt.yamlContent)), WithEnv(viper.New()))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoadConfig_Options(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig()
	assert.EqualError(t, err, "path is required")

	_, err = LoadConfig(WithConfigPath(""))
	assert.EqualError(t, err, "path is required")

	_, err = LoadConfig(WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorContains(t, err, "failed to evaluate symlinks")

	_, err = LoadConfig(WithEnv(nil))
	assert.EqualError(t, err, "viper instance is required")
}

func TestWithConfigPath_ResolvesSymlink(t *testing.T) {
	t.Parallel()

	target := writeConfig(t, minimalYAML)
	link := filepath.Join(t.TempDir(), "link.yaml")
	require.NoError(t, os.Symlink(target, link))

	cfg, err := LoadConfig(WithConfigPath(link), WithEnv(viper.New()))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/legisync", cfg.DataDir)
}

func TestQualifyBillID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		congress int
		id       string
		expected string
	}{
		{name: "bare slug gets congress", congress: 115, id: "HR1", expected: "hr1-115"},
		{name: "qualified id kept", congress: 115, id: "s2155-115", expected: "s2155-115"},
		{name: "no congress configured", id: "hr1", expected: "hr1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{Congress: tt.congress}
			assert.Equal(t, tt.expected, cfg.QualifyBillID(tt.id))
		})
	}
}
