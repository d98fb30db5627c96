package logger

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NewWithLevel(tt.in).GetLevel(); got != tt.want {
				t.Errorf("NewWithLevel(%q) level = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	output := buf.String()
	if output == "" {
		t.Error("Expected log output, got empty string")
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestTee(t *testing.T) {
	own := &bytes.Buffer{}
	base := NewWithWriter(own).With().Str("session_id", "s1").Logger()
	ctx := WithOutput(context.Background(), base, own)
	buf := &bytes.Buffer{}

	teed := Tee(ctx, buf)
	teed.Info().Msg("copied")

	out := buf.String()
	if !strings.Contains(out, "copied") || !strings.Contains(out, "s1") {
		t.Errorf("Expected tee buffer to carry message and context fields, got: %s", out)
	}
	if !strings.Contains(own.String(), "copied") {
		t.Errorf("Expected the logger's own writer to receive the event, got: %s", own.String())
	}
}

func TestTeeWithoutRecordedOutputWritesOnlyToTarget(t *testing.T) {
	own := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(own))
	buf := &bytes.Buffer{}

	stdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	teed := Tee(ctx, buf)
	teed.Info().Msg("private")
	os.Stdout = stdout
	w.Close()
	leaked, _ := io.ReadAll(r)

	if !strings.Contains(buf.String(), "private") {
		t.Errorf("Expected tee buffer to receive the event, got: %s", buf.String())
	}
	if len(leaked) != 0 {
		t.Errorf("Expected nothing on stdout, got: %s", leaked)
	}
}

func TestWithContext(t *testing.T) {
	log := New()
	ctx := context.Background()

	ctxWithLogger := WithContext(ctx, log)

	if ctxWithLogger.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	logWithFields := WithFields(log, map[string]interface{}{
		"session_id": "abc",
		"file":       "jan.csv",
	})
	logWithFields.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "session_id") || !strings.Contains(output, "abc") {
		t.Errorf("Expected output to contain session_id field, got: %s", output)
	}
	if !strings.Contains(output, "jan.csv") {
		t.Errorf("Expected output to contain file field, got: %s", output)
	}
}
