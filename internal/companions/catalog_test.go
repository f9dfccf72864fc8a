package companions

import (
	"errors"
	"testing"
)

func TestSlugify(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
	}{
		{name: "Aditya (Best Friend)", expected: "aditya-best-friend"},
		{name: "Sandeep Sir (Mentor)", expected: "sandeep-sir-mentor"},
		{name: "Sunita Daadi", expected: "sunita-daadi"},
		{name: "  --Shraddha   Didi!! ", expected: "shraddha-didi"},
		{name: "Motu & Patlu 2", expected: "motu-patlu-2"},
		{name: "!!!", expected: ""},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := Slugify(testCase.name); got != testCase.expected {
				t.Fatalf("Slugify(%q) = %q, want %q", testCase.name, got, testCase.expected)
			}
		})
	}
}

func TestDefaultCatalogListsPersonasInOrder(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	expected := []string{"sunita-daadi", "aditya-best-friend", "sandeep-sir-mentor", "shraddha-didi"}
	companions := catalog.Companions()
	if len(companions) != len(expected) {
		t.Fatalf("expected %d companions, got %d", len(expected), len(companions))
	}
	for index, companion := range companions {
		if companion.Slug != expected[index] {
			t.Fatalf("companion %d: expected slug %q, got %q", index, expected[index], companion.Slug)
		}
		if companion.Greeting == "" || companion.Subtitle == "" {
			t.Fatalf("companion %s is missing copy: %+v", companion.Slug, companion)
		}
	}
}

func TestResolveFallsBackForUnknownSlug(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}

	known, ok := catalog.Resolve("aditya-best-friend")
	if !ok || known.Name != "Aditya (Best Friend)" || known.Greeting != "Chal memes dekhte hain 😂" {
		t.Fatalf("unexpected persona %+v (known=%v)", known, ok)
	}

	fallback, ok := catalog.Resolve("ghost")
	if ok {
		t.Fatalf("expected unknown slug to report ok=false")
	}
	if fallback.Name != "Companion" || fallback.Greeting != "Hi there 👋" || fallback.Slug != "" {
		t.Fatalf("unexpected fallback %+v", fallback)
	}

	if _, ok := catalog.Lookup("Aditya (Best Friend)"); ok {
		t.Fatalf("lookup must match slugs, not display names")
	}
}

func TestParseCatalogRejectsInvalidDocuments(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{name: "malformed", raw: "companions: ["},
		{name: "missing-greeting", raw: "companions:\n  - name: Tom\nfallback: {name: Companion, greeting: hi}\n"},
		{name: "duplicate-slug", raw: "companions:\n  - {name: Tom Cat, greeting: hi}\n  - {name: tom-cat, greeting: yo}\nfallback: {name: Companion, greeting: hi}\n"},
		{name: "missing-fallback", raw: "companions:\n  - {name: Tom, greeting: hi}\n"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(testCase.raw)); !errors.Is(err, ErrInvalidCatalog) {
				t.Fatalf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}
