package monitoring

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")

	if !called {
		t.Error("Custom logger was not called")
	}

	// Now set to nil and verify it doesn't call our logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestSetLogger_NilMutesAllLevels(t *testing.T) {
	origLogf, origWarnf, origDebugf := Logf, Warnf, Debugf
	defer func() { Logf, Warnf, Debugf = origLogf, origWarnf, origDebugf }()

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetVerbose(true)
	defer SetVerbose(false)

	SetLogger(nil)
	Logf("info")
	Warnf("warn")
	Debugf("debug")
	if buf.Len() != 0 {
		t.Errorf("expected no output after SetLogger(nil), got %q", buf.String())
	}
}

func TestSetLogger_KeepsWarnAndDebug(t *testing.T) {
	origLogf := Logf
	defer func() { Logf = origLogf }()

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	var infos []string
	SetLogger(func(format string, v ...interface{}) { infos = append(infos, format) })
	Logf("info")
	Warnf("still warned")

	if len(infos) != 1 {
		t.Errorf("custom logger got %d calls, want 1", len(infos))
	}
	if !strings.Contains(buf.String(), "still warned") {
		t.Errorf("expected Warnf on the backend, got %q", buf.String())
	}
}

func TestLogf_Default(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
	Logf("opened %s", "/dev/ttyACM0")

	if !strings.Contains(buf.String(), "opened /dev/ttyACM0") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}

func TestWarnf(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Warnf("no telemetry for %s", "5s")
	out := buf.String()
	if !strings.Contains(out, "no telemetry for 5s") {
		t.Errorf("expected warning in output, got %q", out)
	}
	if !strings.Contains(out, "WRN") {
		t.Errorf("expected warn level marker in output, got %q", out)
	}
}

func TestDebugf_Verbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	defer SetVerbose(false)

	SetVerbose(false)
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("expected no output when not verbose, got %q", buf.String())
	}

	SetVerbose(true)
	if !Verbose() {
		t.Fatal("Verbose() should report true after SetVerbose(true)")
	}
	Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("expected debug output when verbose, got %q", buf.String())
	}
}
