package wsession

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  LogLevel
	}{
		{"debug", "debug", LevelDebug},
		{"upper case", "WARN", LevelWarn},
		{"alias", "warning", LevelWarn},
		{"padded", " error ", LevelError},
		{"unknown", "verbose", LevelInfo},
		{"empty", "", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LevelWarn)

	log.Debugln("hidden")
	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)
	log.Error("shown", " too")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: shown 2\n")
	assert.Contains(t, out, "ERROR: shown too\n")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriterLogger(&buf, LevelDebug)
	child := base.WithField("type", "coordinator").WithField("net", "ws")

	child.Infoln("socket opened")
	base.Infoln("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "INFO [net=ws, type=coordinator]: socket opened")
	assert.Contains(t, lines[1], "INFO: plain")
}
