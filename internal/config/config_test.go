package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingRequired_EverySubset(t *testing.T) {
	for mask := 0; mask < 1<<len(RequiredVars); mask++ {
		vars := map[string]string{}
		var want []string
		for i, name := range RequiredVars {
			if mask&(1<<i) != 0 {
				vars[name] = "set-" + name
			} else {
				want = append(want, name)
			}
		}
		cfg, err := LoadFrom(vars)
		require.NoError(t, err)
		assert.Equal(t, want, cfg.MissingRequired(), "mask=%03b", mask)
	}
}

func TestMissingRequired_BlankCountsAsMissing(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"API_KEY":           "   ",
		"SUPABASE_URL":      "https://x.supabase.co",
		"SUPABASE_ANON_KEY": "\t",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"API_KEY", "SUPABASE_ANON_KEY"}, cfg.MissingRequired())
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, AuthHosted, cfg.AuthMode)
	assert.Equal(t, StoreSupabase, cfg.StoreBackend)
	assert.Equal(t, "gemini", cfg.AIProvider)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 2*time.Minute, cfg.StreamTimeout)
	assert.Equal(t, "chat_events", cfg.RabbitQueue)
	assert.False(t, cfg.ResumeHistory)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"AUTH_MODE":      " Username ",
		"STORE_BACKEND":  "SQL",
		"SESSION_TTL":    "1h",
		"RESUME_HISTORY": "true",
		"REDIS_DB":       "3",
		"API_KEY":        "k",
	})
	require.NoError(t, err)
	assert.Equal(t, AuthUsername, cfg.AuthMode)
	assert.Equal(t, StoreSQL, cfg.StoreBackend)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.ResumeHistory)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "k", cfg.OpenRouterKey())
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := []map[string]string{
		{"AUTH_MODE": "magic-link"},
		{"STORE_BACKEND": "files"},
		{"SESSION_TTL": "0s"},
		{"REDIS_DB": "not-a-number"},
	}
	for _, vars := range cases {
		_, err := LoadFrom(vars)
		assert.Error(t, err, "%v", vars)
	}
}
