package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleLogger_DebugRequiresVerbose(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, false)

	log.Debug("hidden %d", 1)
	log.Info("shown %s", "line")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug output written without verbose: %q", out)
	}
	if !strings.Contains(out, "shown line") {
		t.Errorf("info output missing: %q", out)
	}

	buf.Reset()
	verbose := NewWriterLogger(&buf, true)
	verbose.Debug("visible %d", 2)
	if !strings.Contains(buf.String(), "visible 2") {
		t.Errorf("debug output missing with verbose: %q", buf.String())
	}
}

func TestConsoleLogger_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, true)

	log.Warn("w")
	log.Error("e")

	out := buf.String()
	for _, want := range []string{"[WARN] w", "[ERROR] e"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	silent := NewSilentLogger()
	SetDefault(silent)
	if Default() != Logger(silent) {
		t.Error("Default() did not return the logger passed to SetDefault")
	}

	SetDefault(nil)
	if Default() != Logger(silent) {
		t.Error("SetDefault(nil) replaced the default logger")
	}

	if OrDefault(nil) != Logger(silent) {
		t.Error("OrDefault(nil) should fall back to the default logger")
	}
}
