package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		if l := New(level, "json"); l == nil || l.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestNewTextFormat(t *testing.T) {
	if l := New("info", "text"); l == nil {
		t.Fatal("expected text logger")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default returned nil")
	}
}

func TestWith(t *testing.T) {
	l := Default().With("component", "test")
	if l == nil || l.Logger == nil {
		t.Fatal("With returned nil logger")
	}
}
