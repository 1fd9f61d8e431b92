package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatHuman, Level: LevelWarn, Output: &buf})

	l.Debug("should not appear", nil)
	l.Info("should not appear either", nil)
	l.Warn("visible", nil)

	out := buf.String()
	require.NotContains(t, out, "should not appear")
	require.Contains(t, out, "visible")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Level: LevelDebug, Output: &buf})

	l.Info("indexed file", Fields{"path": "a.go", "objects": 3})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	require.Equal(t, "indexed file", decoded["message"])
	require.Equal(t, "info", decoded["level"])
	fields, ok := decoded["fields"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "a.go", fields["path"])
}

func TestWithMergesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Level: LevelDebug, Output: &buf}).With(Fields{"project": "demo"})
	l.Info("start", Fields{"files": 10})

	require.True(t, strings.Contains(buf.String(), `"project":"demo"`))
	require.True(t, strings.Contains(buf.String(), `"files":10`))
}
