package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
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

	// nil installs a no-op logger; calling it must not panic or call
	// back into the previous logger.
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()
	Logf("test message: %s", "value")
}

func TestDebugfGate(t *testing.T) {
	original := Logf
	wasOn := DebugEnabled()
	defer func() {
		Logf = original
		SetDebug(wasOn)
	}()

	var lines int
	SetLogger(func(format string, v ...interface{}) { lines++ })

	SetDebug(false)
	Debugf("muted")
	if lines != 0 {
		t.Errorf("Debugf logged %d lines while disabled", lines)
	}

	SetDebug(true)
	Debugf("group %s done", "g1")
	if lines != 1 {
		t.Errorf("Debugf logged %d lines while enabled, want 1", lines)
	}
}
