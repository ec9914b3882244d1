package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Config{Format: "json", Level: "info", Service: "19queue-server"})

	log.Debug().Msg("hidden")
	log.Info().Msgf("Entry enqueued: id=%s", "e1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "Entry enqueued: id=e1", line["message"])
	assert.Equal(t, "19queue-server", line["service"])
	assert.NotContains(t, line, "caller")
}

func TestNew_DebugAddsCaller(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	log := New(&buf, Config{Format: "json", Level: "debug"})
	log.Debug().Msg("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Contains(t, line, "caller")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Config{Level: "info"})
	log.Warn().Msg("careful")
	assert.Contains(t, buf.String(), "careful")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	closeFn, err := Init(Config{Output: path, Level: "info"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = Init(Config{Output: "stderr"})
	})
	require.NoError(t, closeFn())

	_, err = os.Stat(path)
	assert.NoError(t, err)

	_, err = Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
