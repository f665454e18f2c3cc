package logger

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewJSONOutput(t *testing.T) {
	output := captureStdout(t, func() {
		log := New(Config{Level: "info", Format: "json"})
		log.Info().Msg("payment recorded")
	})

	if !strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Fatalf("expected json output, got %q", output)
	}
	if !strings.Contains(output, `"message":"payment recorded"`) {
		t.Fatalf("expected message field, got %q", output)
	}
	if !strings.Contains(output, `"service":"waterledger"`) {
		t.Fatalf("expected service field, got %q", output)
	}
}

func TestNewConsoleOutput(t *testing.T) {
	output := captureStdout(t, func() {
		log := New(Config{Level: "debug", Format: "console"})
		log.Info().Msg("payment recorded")
	})

	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Fatalf("expected human-readable output, got %q", output)
	}
	if !strings.Contains(output, "payment recorded") {
		t.Fatalf("expected message in output, got %q", output)
	}
}

func TestNewLevelFiltersOutput(t *testing.T) {
	output := captureStdout(t, func() {
		log := New(Config{Level: "error", Format: "json"})
		log.Info().Msg("should be dropped")
	})

	if strings.TrimSpace(output) != "" {
		t.Fatalf("expected info suppressed at error level, got %q", output)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}

	return buf.String()
}
