package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"descriptai/internal/infra/credentials"
)

func TestRunValidatesBeforeConnecting(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown provider", args: []string{"-provider", "openai", "-key", "k"}, want: "unsupported provider"},
		{name: "missing key", args: []string{"-provider", "gemini"}, want: "GEMINI_API_KEY"},
		{name: "missing database", args: []string{"-provider", "groq", "-key", "gsk_x"}, want: "DATABASE_URL"},
		{name: "list needs database", args: []string{"-list"}, want: "DATABASE_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("run(%v) = %v, want error containing %q", tt.args, err, tt.want)
			}
		})
	}
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	if err := printEntries(&buf, nil); err != nil || !strings.Contains(buf.String(), "no provider keys") {
		t.Fatalf("empty list output %q, %v", buf.String(), err)
	}

	buf.Reset()
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	err := printEntries(&buf, []credentials.Entry{
		{Provider: "gemini", UpdatedAt: at},
		{Provider: "groq", Fingerprint: "...cdef sha256:0a1b2c3d", UpdatedAt: at},
	})
	if err != nil {
		t.Fatalf("printEntries: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PROVIDER", "gemini", "-", "...cdef sha256:0a1b2c3d", "2026-10-01T12:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
