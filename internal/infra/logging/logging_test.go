package logging

import (
	"bytes"
	"strings"
	"testing"

	"event-keyword-monitor/internal/config"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	t.Run("json by default", func(t *testing.T) {
		log := New(config.LogConfig{Level: "info", Format: "json"}, false)
		if log == nil {
			t.Fatal("expected a logger")
		}
	})

	t.Run("console in dev", func(t *testing.T) {
		log := New(config.LogConfig{Level: "debug"}, true)
		if log == nil {
			t.Fatal("expected a logger")
		}
	})
}

func TestTraceDuration(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	log := zerolog.New(&buf)

	done := TraceDuration(&log, "DispatchUC.Run")
	done()

	out := buf.String()
	if !strings.Contains(out, "start") || !strings.Contains(out, "finish") {
		t.Fatalf("expected start and finish entries, got:\n%s", out)
	}
	if !strings.Contains(out, "DispatchUC.Run") {
		t.Fatalf("expected the method name in both entries, got:\n%s", out)
	}
	if !strings.Contains(out, "duration") {
		t.Fatalf("finish entry must carry the elapsed duration, got:\n%s", out)
	}
}
