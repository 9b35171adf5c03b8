package scenes_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/clipforge/clipforge/internal/scenes"
)

func TestSerializeRoundsNumericFields(t *testing.T) {
	data, err := scenes.Serialize([]scenes.Scene{
		{Start: 30.12345, End: 42.98765, Score: 0.98765, Reason: "test"},
	})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	out := string(data)
	for _, want := range []string{"30.123", "42.988", "0.9877", "test"} {
		if !strings.Contains(out, want) {
			t.Fatalf("serialized output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "30.12345") {
		t.Fatalf("start not rounded:\n%s", out)
	}
}

func TestSerializeRoundTrips(t *testing.T) {
	in := []scenes.Scene{
		{Start: 1, End: 6, Score: 0.92, Reason: "exciting"},
		{Start: 100.5, End: 130.25, Score: 0.5, Reason: "steady"},
	}
	data, err := scenes.Serialize(in)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var out []scenes.Scene
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestSerializeEmpty(t *testing.T) {
	data, err := scenes.Serialize(nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("empty list serialized as %q", data)
	}
}

func TestDuration(t *testing.T) {
	s := scenes.Scene{Start: 1, End: 6}
	if s.Duration() != 5 {
		t.Fatalf("Duration = %v, want 5", s.Duration())
	}
}
