package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/simaofelgueirasJM/flipper/internal/logging"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line is not JSON: %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestStdoutLogger_WritesJSONLines(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := logging.NewWriterLogger("network", &buf, logging.LevelDebug)

	l.Info("captured request", logging.Field{Key: "id", Value: "abc"})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["level"] != "info" || lines[0]["msg"] != "captured request" {
		t.Errorf("unexpected entry: %v", lines[0])
	}
	if lines[0]["component"] != "network" {
		t.Errorf("expected component network, got %v", lines[0]["component"])
	}
	fields, _ := lines[0]["fields"].(map[string]any)
	if fields["id"] != "abc" {
		t.Errorf("expected id field, got %v", fields)
	}
}

func TestStdoutLogger_WithCarriesFieldsAndComponent(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := logging.NewWriterLogger("root", &buf, logging.LevelDebug)

	child := l.With(logging.Field{Key: "component", Value: "store"}, logging.Field{Key: "db", Value: "x.db"})
	child.Warn("slow write", logging.Err(errors.New("boom")))

	lines := decodeLines(t, &buf)
	if lines[0]["component"] != "store" {
		t.Errorf("expected component store, got %v", lines[0]["component"])
	}
	fields, _ := lines[0]["fields"].(map[string]any)
	if fields["db"] != "x.db" || fields["error"] != "boom" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestStdoutLogger_MinLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := logging.NewWriterLogger("", &buf, logging.LevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Error("shown")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "shown" {
		t.Fatalf("expected only the error line, got %v", lines)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"info":    logging.LevelInfo,
		"warning": logging.LevelWarn,
		"error":   logging.LevelError,
		"bogus":   logging.LevelInfo,
		"WARN":    logging.LevelWarn,
		" Debug ": logging.LevelDebug,
		"ERROR":   logging.LevelError,
	}
	for in, want := range cases {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
