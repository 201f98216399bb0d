package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1500tools/s1500d/internal/config"
)

func TestParseFullConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
handler = "/usr/bin/scan.sh"
gesture_timeout_ms = 500
log_level = "debug"

[profiles]
1 = "standard"
2 = "legal"
3 = "photo"
`))
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/scan.sh", cfg.Handler)
	assert.Equal(t, 500*time.Millisecond, cfg.GestureTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, map[int]string{1: "standard", 2: "legal", 3: "photo"}, cfg.Profiles)
}

func TestParseMinimalConfigUsesDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`handler = "/bin/handler.sh"`))
	require.NoError(t, err)
	assert.Equal(t, 400*time.Millisecond, cfg.GestureTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Profiles)
}

func TestParseSparseProfileMap(t *testing.T) {
	cfg, err := config.Parse([]byte(`
handler = "/bin/h.sh"
[profiles]
2 = "legal"
5 = "photo"
`))
	require.NoError(t, err)
	assert.Equal(t, map[int]string{2: "legal", 5: "photo"}, cfg.Profiles)
	_, ok := cfg.Profiles[1]
	assert.False(t, ok, "unmapped counts stay unmapped")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"invalid toml", "not valid toml {{{{"},
		{"missing handler", "gesture_timeout_ms = 400"},
		{"negative timeout", "handler = \"/bin/h.sh\"\ngesture_timeout_ms = -5"},
		{"non-numeric profile key", "handler = \"/bin/h.sh\"\n[profiles]\nabc = \"bad\""},
		{"zero profile key", "handler = \"/bin/h.sh\"\n[profiles]\n0 = \"bad\""},
		{"negative profile key", "handler = \"/bin/h.sh\"\n[profiles]\n-1 = \"bad\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.text))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`handler = "/bin/h.sh"`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/bin/h.sh", cfg.Handler)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
