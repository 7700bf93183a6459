package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Post", KeyPost, "decorators", Post("decorators")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Source", KeySource, "posts", Source("posts")},
		{"Output", KeyOutput, "site", Output("site")},
		{"Category", KeyCategory, "python", Category("python")},
		{"Kind", KeyKind, "MalformedMetadata", Kind("MalformedMetadata")},
		{"Code", KeyCode, "UnterminatedFence", Code("UnterminatedFence")},
		{"Phase", KeyPhase, "render", Phase("render")},
	}
	for _, c := range cases {
		if c.attr.Key != c.attrKey {
			t.Errorf("%s: key = %q, want %q", c.name, c.attr.Key, c.attrKey)
		}
		if c.attr.Value.String() != c.attrVal {
			t.Errorf("%s: value = %q, want %q", c.name, c.attr.Value.String(), c.attrVal)
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if a := Count(3); a.Key != KeyCount || a.Value.Int64() != 3 {
		t.Errorf("Count attr = %v", a)
	}
	if a := Workers(4); a.Key != KeyWorkers || a.Value.Int64() != 4 {
		t.Errorf("Workers attr = %v", a)
	}
	if a := DurationMS(1.5); a.Value.Float64() != 1.5 {
		t.Errorf("DurationMS attr = %v", a)
	}
	if a := Elapsed(2500 * time.Microsecond); a.Key != KeyDurationMS || a.Value.Float64() != 2.5 {
		t.Errorf("Elapsed attr = %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Errorf("Error(nil) = %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Errorf("Error() = %q", a.Value.String())
	}
}
