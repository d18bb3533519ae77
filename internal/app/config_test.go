package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/gradebook/internal/scoring"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9999"
shutdown_timeout = "3s"

[database]
dsn = "postgres://gradebook@localhost/gradebook"

[events]
max_append_attempts = 7
tx_timeout = "2s"

[grading]
finalize_policy = "any"

[[api.required_headers]]
name = "X-Gradebook-Token"
value = "secret"

[export]
schedule = "*/5 * * * *"
output_dir = "/tmp/boards"
courses = ["cs101", "cs102"]
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", config.Server.Port)
	assert.Equal(t, scoring.PolicyAny, config.FinalizePolicy())
	assert.Equal(t, 7, config.Events.MaxAppendAttempts)
	assert.Equal(t, 2*time.Second, config.EventTxTimeout())
	assert.Equal(t, 3*time.Second, config.ShutdownTimeout())
	assert.Equal(t, []string{"cs101", "cs102"}, config.Export.Courses)
	require.Len(t, config.API.RequiredHeaders, 1)
	assert.Equal(t, "X-Gradebook-Token", config.API.RequiredHeaders[0].Name)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `
[server]
port = ":9999"

[database]
dsn = ":memory:"
`))
	require.NoError(t, err)

	assert.Equal(t, scoring.PolicyAll, config.FinalizePolicy())
	assert.Equal(t, store.DefaultMaxAppendAttempts, config.Events.MaxAppendAttempts)
	assert.Equal(t, 5*time.Second, config.EventTxTimeout())
	assert.Equal(t, 10*time.Second, config.ImportTxTimeout())
	assert.Equal(t, time.Minute, config.ExportTimeout())
	assert.Equal(t, "X-User-Id", config.API.UserIDHeader)
	assert.Equal(t, "X-Student-Id", config.API.StudentIDHeader)
	assert.Equal(t, "gradebook:notifications", config.Notify.Queue)
	assert.Equal(t, "./migrations", config.Database.MigrationsDir)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing port", "[database]\ndsn = \":memory:\"\n"},
		{"missing dsn", "[server]\nport = \":9999\"\n"},
		{"unknown policy", "[server]\nport = \":9999\"\n[database]\ndsn = \":memory:\"\n[grading]\nfinalize_policy = \"most\"\n"},
		{"bad duration", "[server]\nport = \":9999\"\n[database]\ndsn = \":memory:\"\n[events]\ntx_timeout = \"soon\"\n"},
		{"negative duration", "[server]\nport = \":9999\"\n[database]\ndsn = \":memory:\"\n[import]\ntx_timeout = \"-1s\"\n"},
		{"broken toml", "[server\nport = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
