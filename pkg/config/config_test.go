package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)

	c, err := load(path, env(map[string]string{
		EnvSpreadsheetID:   "abc123",
		EnvCredentialsJSON: `{"type":"service_account"}`,
	}))
	require.NoError(t, err)
	assert.Equal(t, "abc123", c.Store.Sheets.SpreadsheetID)
	assert.Equal(t, 5, c.Store.Retry.MaxAttempts)
	assert.Equal(t, 1100*time.Millisecond, c.Store.Batch.PartitionDelay.Std())
	assert.Equal(t, 30*time.Minute, c.Store.Cache.ReferenceTTL.Std())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "BaseDelay")
	assert.Contains(t, string(b), "2s")
	assert.NotContains(t, string(b), "CredentialsJSON")
	assert.NotContains(t, string(b), "abc123")
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte(`
[Sheets]
SpreadsheetID = 'from-file'
CredentialsFile = '/etc/painel/sa.json'

[Retry]
MaxAttempts = 3
BaseDelay = '500ms'
`), 0644))

	c, err := load(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.Store.Sheets.SpreadsheetID)

	p := c.RetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.BaseDelay)
	// untouched keys keep their defaults
	assert.Equal(t, 60*time.Second, p.Budget)
	assert.Equal(t, ":8080", c.Store.Server.ListenAddress)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte(`
[Sheets]
SpreadsheetID = 'from-file'
CredentialsFile = 'file.json'
`), 0644))

	c, err := load(path, env(map[string]string{
		EnvSpreadsheetID:   "from-env",
		EnvCredentialsFile: "env.json",
	}))
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.Store.Sheets.SpreadsheetID)
	assert.Equal(t, "env.json", c.Store.Sheets.CredentialsFile)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{
			name: "missing spreadsheet",
			env:  map[string]string{EnvCredentialsFile: "sa.json"},
		},
		{
			name: "missing credentials",
			env:  map[string]string{EnvSpreadsheetID: "abc"},
		},
		{
			name: "zero attempts",
			file: "[Retry]\nMaxAttempts = 0\n",
			env:  map[string]string{EnvSpreadsheetID: "abc", EnvCredentialsFile: "sa.json"},
		},
		{
			name: "bad duration",
			file: "[Retry]\nBaseDelay = 'soon'\n",
			env:  map[string]string{EnvSpreadsheetID: "abc", EnvCredentialsFile: "sa.json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultFilename)
			if tt.file != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0644))
			}
			_, err := load(path, env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))
}
