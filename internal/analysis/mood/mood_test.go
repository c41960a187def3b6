package mood

import "testing"

func TestParseAcceptsKnownMoods(t *testing.T) {
	for _, m := range All {
		got, ok := Parse("  " + string(m) + " ")
		if !ok || got != m {
			t.Fatalf("expected %s to parse, got %q ok=%v", m, got, ok)
		}
	}
	if got, ok := Parse("SHOCKED"); !ok || got != Shocked {
		t.Fatalf("expected case-insensitive parse, got %q", got)
	}
}

func TestCoerceFallsBackToNeutral(t *testing.T) {
	for _, raw := range []string{"", "furious", "happy"} {
		if got := Coerce(raw); got != Neutral {
			t.Fatalf("Coerce(%q) = %s, want neutral", raw, got)
		}
	}
}

func TestAssetFallbackOrder(t *testing.T) {
	assets := map[string]string{"amused": "(^_^)", "neutral": "(-_-)"}

	if got := Asset(assets, Amused); got != "(^_^)" {
		t.Fatalf("expected persona amused face, got %q", got)
	}
	if got := Asset(assets, Shocked); got != "(-_-)" {
		t.Fatalf("expected persona neutral face, got %q", got)
	}
	if got := Asset(nil, Shocked); got != defaultFaces[Shocked] {
		t.Fatalf("expected built-in shocked face, got %q", got)
	}
}
