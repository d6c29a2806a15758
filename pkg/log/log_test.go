package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		wantDebug bool
	}{
		{name: "debug", level: DebugLevel, wantDebug: true},
		{name: "info", level: InfoLevel, wantDebug: false},
		{name: "unknown falls back to info", level: Level("loud"), wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Config{Level: tt.level, JSONOutput: true, Output: &buf})
			l.Debug().Msg("dbg")
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("dbg")))
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := WithComponent(New(Config{Level: InfoLevel, JSONOutput: true, Output: &buf}), "router")
	l = WithContainer(l, "bns-router-1")
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "router", entry["component"])
	assert.Equal(t, "bns-router-1", entry["container"])
	assert.Equal(t, "hello", entry["message"])
}
