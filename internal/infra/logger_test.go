package infra

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewLoggerToLevels(t *testing.T) {
	tests := []struct {
		env, level string
		want       zerolog.Level
	}{
		{env: "production", want: zerolog.InfoLevel},
		{env: "development", want: zerolog.DebugLevel},
		{env: "production", level: "DEBUG", want: zerolog.DebugLevel},
		{env: "development", level: " warn ", want: zerolog.WarnLevel},
		{env: "production", level: "loud", want: zerolog.InfoLevel},
		{env: "production", level: "   ", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		l := NewLoggerTo(&bytes.Buffer{}, tt.env, tt.level)
		if got := l.GetLevel(); got != tt.want {
			t.Fatalf("NewLoggerTo(%q, %q) level = %s, want %s", tt.env, tt.level, got, tt.want)
		}
	}
}

func TestNewLoggerToJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "production", "")
	l.Info().Msg("hello")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "descriptai" || line["message"] != "hello" || line["time"] == nil {
		t.Fatalf("line = %v", line)
	}
}

func TestPoolOptionsDefaults(t *testing.T) {
	o := PoolOptions{MinConns: 50}.withDefaults()
	if o.MaxConns != 10 || o.MinConns != 1 || o.ApplicationName != "descriptai" || o.ConnectTimeout != 10*time.Second {
		t.Fatalf("defaults = %+v", o)
	}
	o = PoolOptions{MaxConns: 4, MinConns: 2, ApplicationName: "x"}.withDefaults()
	if o.MaxConns != 4 || o.MinConns != 2 || o.ApplicationName != "x" {
		t.Fatalf("explicit = %+v", o)
	}
}
