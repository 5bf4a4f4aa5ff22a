package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_JSONWithServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Options{Level: "debug", Output: &buf, Service: "portal"}), "resolver")
	log.Debug().Str("user_id", "u-1").Msg("resolved")

	entry := decodeLine(t, &buf)
	if entry["service"] != "portal" || entry["component"] != "resolver" || entry["user_id"] != "u-1" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["caller"]; !ok {
		t.Errorf("JSON output should carry the caller: %v", entry)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Output: &buf})
	log.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info entry written at warn level: %q", buf.String())
	}
	log.Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn entry missing: %q", buf.String())
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Console: true, Output: &buf})
	log.Info().Msg("hello")
	if json.Valid(buf.Bytes()) || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected console text, got %q", buf.String())
	}
}

func TestInit_OnlyFirstCallWins(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Output: &first})
	log := Init(Options{Output: &second, Level: "trace"})
	log.Info().Msg("hello")

	if first.Len() == 0 || second.Len() != 0 {
		t.Errorf("second Init must not replace the logger (first=%d second=%d)", first.Len(), second.Len())
	}
	again := Get()
	again.Info().Msg("again")
	if second.Len() != 0 {
		t.Errorf("Get must return the first logger")
	}
}

func TestGet_PanicsBeforeInit(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	_ = Get()
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
