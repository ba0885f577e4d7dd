package comment

import "testing"

func TestTagRelayed(t *testing.T) {
	tagged := TagRelayed("  /assign @a ")
	if tagged != "/assign @a\n\n"+RelayMarker {
		t.Fatalf("TagRelayed = %q", tagged)
	}
	if !IsRelayed(tagged) {
		t.Fatal("tagged body must be relayed")
	}
	if got := StripRelayed(tagged); got != "/assign @a" {
		t.Fatalf("StripRelayed = %q, want %q", got, "/assign @a")
	}
}

func TestIsRelayed_PlainBodies(t *testing.T) {
	for _, body := range []string{"", "/assign", "<!-- other -->", FormatUnlocked(nil)} {
		if IsRelayed(body) {
			t.Fatalf("IsRelayed(%q) = true", body)
		}
		if got := StripRelayed(body); got != body {
			t.Fatalf("StripRelayed(%q) = %q", body, got)
		}
	}
}
