package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"true", false, true},
		{"YES", false, true},
		{"0", true, false},
		{"off", true, false},
		{"banana", true, true},
		{"banana", false, false},
	}
	for _, tc := range cases {
		t.Setenv("TEST_BOOL", tc.value)
		if got := ParseBoolEnv("TEST_BOOL", tc.def); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := ParseIntEnv("TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("TEST_INT", "not a number")
	if got := ParseIntEnv("TEST_INT", 7); got != 7 {
		t.Errorf("invalid value must fall back to default, got %d", got)
	}
	t.Setenv("TEST_INT", "")
	if got := ParseIntEnv("TEST_INT", 7); got != 7 {
		t.Errorf("empty value must fall back to default, got %d", got)
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("TEST_DUR", "2500ms")
	if got := ParseDurationEnv("TEST_DUR", time.Second); got != 2500*time.Millisecond {
		t.Errorf("expected 2.5s, got %v", got)
	}
	t.Setenv("TEST_DUR", "soon")
	if got := ParseDurationEnv("TEST_DUR", time.Second); got != time.Second {
		t.Errorf("invalid value must fall back to default, got %v", got)
	}
}
