package debug

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestPrintfRespectsToggle(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() {
		slog.SetDefault(prev)
		Disable()
	})

	Disable()
	Printf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output while disabled, got %q", buf.String())
	}

	Enable()
	if !Enabled() {
		t.Fatal("Enabled() = false after Enable()")
	}
	Printf("frame %s", "2::")
	out := buf.String()
	if !strings.Contains(out, "frame 2::") {
		t.Errorf("trace line missing from output: %q", out)
	}
	if !strings.Contains(out, "component=socketio_trace") {
		t.Errorf("component attribute missing from output: %q", out)
	}
}
