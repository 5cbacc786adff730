package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
)

const endpointsYAML = `
tracker_store:
  type: sql
  dialect: postgresql
  host: db.internal
  port: 5433
  db: rasa
  username: bot
  password: secret
  record_exp: 1.5
  login_db: postgres
  retry:
    max_retries: 3
    delay: 250ms
    backoff: exponential
event_broker:
  type: redis
  host: broker.internal
  channel: conversation_events
`

func Test_Parse_ReadsAllSections(t *testing.T) {
	// act
	endpoints, err := config.Parse([]byte(endpointsYAML))

	// assert
	require.NoError(t, err)

	store := endpoints.TrackerStore
	assert.Equal(t, "sql", store.Type)
	assert.Equal(t, "postgresql", store.Dialect)
	assert.Equal(t, "db.internal:5433", store.Address(0))
	assert.Equal(t, 1500*time.Millisecond, store.RecordExpiration())
	assert.Equal(t, 3, store.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, store.Retry.Delay)
	assert.Equal(t, config.BackoffExponential, store.Retry.Backoff)
	assert.Equal(t, "postgres", store.Extra["login_db"])

	assert.Equal(t, "redis", endpoints.EventBroker.Type)
	assert.Equal(t, "conversation_events", endpoints.EventBroker.Channel)
	assert.Equal(t, "broker.internal:6379", endpoints.EventBroker.Address(6379))
}

func Test_Parse_AppliesDefaults(t *testing.T) {
	// act
	endpoints, err := config.Parse(nil)

	// assert
	require.NoError(t, err)
	assert.Empty(t, endpoints.TrackerStore.Type)
	assert.Equal(t, 0, endpoints.TrackerStore.Retry.MaxRetries)
	assert.Equal(t, 5*time.Second, endpoints.TrackerStore.Retry.Delay)
	assert.Equal(t, config.BackoffConstant, endpoints.TrackerStore.Retry.Backoff)
	assert.Equal(t, time.Duration(0), endpoints.TrackerStore.RecordExpiration())
}

func Test_Parse_EnvironmentOverridesFile(t *testing.T) {
	// arrange
	t.Setenv("TRACKER_STORE_TYPE", "redis")
	t.Setenv("TRACKER_STORE_RECORD_EXP", "60")
	t.Setenv("TRACKER_STORE_RETRY_MAX_RETRIES", "7")
	t.Setenv("EVENT_BROKER_CHANNEL", "events")

	// act
	endpoints, err := config.Parse([]byte(endpointsYAML))

	// assert
	require.NoError(t, err)
	assert.Equal(t, "redis", endpoints.TrackerStore.Type)
	assert.Equal(t, time.Minute, endpoints.TrackerStore.RecordExpiration())
	assert.Equal(t, 7, endpoints.TrackerStore.Retry.MaxRetries)
	assert.Equal(t, "bot", endpoints.TrackerStore.Username)
	assert.Equal(t, "events", endpoints.EventBroker.Channel)
}

func Test_Load_ReadsDotenvFiles(t *testing.T) {
	// setup
	dir := t.TempDir()
	endpointsPath := filepath.Join(dir, "endpoints.yml")
	dotenvPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(endpointsPath, []byte(endpointsYAML), 0o600))
	require.NoError(t, os.WriteFile(dotenvPath, []byte("TRACKER_STORE_KEY_PREFIX=staging\n"), 0o600))

	// godotenv does not overwrite existing variables, t.Setenv restores the previous state afterward
	t.Setenv("TRACKER_STORE_KEY_PREFIX", "")
	require.NoError(t, os.Unsetenv("TRACKER_STORE_KEY_PREFIX"))

	// act
	endpoints, err := config.Load(endpointsPath, dotenvPath)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "staging", endpoints.TrackerStore.KeyPrefix)
}

func Test_Load_ShouldFail(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(t *testing.T) (string, []string)
	}{
		{
			name: "missing endpoints file",
			setup: func(t *testing.T) (string, []string) {
				return filepath.Join(t.TempDir(), "missing.yml"), nil
			},
		},
		{
			name: "missing dotenv file",
			setup: func(t *testing.T) (string, []string) {
				return "", []string{filepath.Join(t.TempDir(), ".env")}
			},
		},
		{
			name: "broken yaml",
			setup: func(t *testing.T) (string, []string) {
				path := filepath.Join(t.TempDir(), "endpoints.yml")
				require.NoError(t, os.WriteFile(path, []byte("tracker_store: [\n"), 0o600))

				return path, nil
			},
		},
		{
			name: "negative retries",
			setup: func(t *testing.T) (string, []string) {
				path := filepath.Join(t.TempDir(), "endpoints.yml")
				require.NoError(t, os.WriteFile(path, []byte("tracker_store:\n  retry:\n    max_retries: -1\n"), 0o600))

				return path, nil
			},
		},
		{
			name: "unknown backoff",
			setup: func(t *testing.T) (string, []string) {
				path := filepath.Join(t.TempDir(), "endpoints.yml")
				require.NoError(t, os.WriteFile(path, []byte("tracker_store:\n  retry:\n    backoff: random\n"), 0o600))

				return path, nil
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			path, dotenvFiles := tc.setup(t)

			// act
			_, err := config.Load(path, dotenvFiles...)

			// assert
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}
