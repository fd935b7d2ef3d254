package records

import "testing"

func TestNameMatcher_PhoneticMisspelling(t *testing.T) {
	t.Parallel()

	m := newNameMatcher()
	names := []string{"John Smith", "Maria Garcia", "Wei Chen"}

	hits := m.rank("Jon Smyth", names)
	if len(hits) == 0 {
		t.Fatal("no match for phonetic misspelling")
	}
	if names[hits[0].index] != "John Smith" {
		t.Errorf("top match = %q, want John Smith", names[hits[0].index])
	}
}

func TestNameMatcher_SurnameOnly(t *testing.T) {
	t.Parallel()

	m := newNameMatcher()
	names := []string{"John Smith", "Maria Garcia"}

	hits := m.rank("garcia", names)
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if names[hits[0].index] != "Maria Garcia" {
		t.Errorf("top match = %q, want Maria Garcia", names[hits[0].index])
	}
}

func TestNameMatcher_NoMatchForUnrelatedName(t *testing.T) {
	t.Parallel()

	m := newNameMatcher()
	hits := m.rank("Zbigniew Kowalczyk", []string{"John Smith", "Maria Garcia"})
	if len(hits) != 0 {
		t.Errorf("unexpected hits: %v", hits)
	}
}

func TestNameMatcher_EmptyQuery(t *testing.T) {
	t.Parallel()

	m := newNameMatcher()
	if hits := m.rank("   ", []string{"John Smith"}); hits != nil {
		t.Errorf("empty query produced hits: %v", hits)
	}
}

func TestNameMatcher_RanksCloserFirst(t *testing.T) {
	t.Parallel()

	m := newNameMatcher()
	names := []string{"John Smythe", "John Smith"}

	hits := m.rank("John Smith", names)
	if len(hits) < 2 {
		t.Fatalf("hits = %d, want 2 (both names sound alike)", len(hits))
	}
	if names[hits[0].index] != "John Smith" {
		t.Errorf("top match = %q, want the exact name first", names[hits[0].index])
	}
	if hits[0].score < hits[1].score {
		t.Errorf("scores out of order: %v", hits)
	}
}
