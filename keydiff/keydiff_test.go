package keydiff

import (
	"reflect"
	"testing"
)

func TestDiff_Classification(t *testing.T) {
	oldTree := map[string]any{
		"a": map[string]any{"b": "hi"},
		"c": "x",
	}
	newTree := map[string]any{
		"a": map[string]any{"b": "hello"},
		"d": "y",
	}

	cs, err := Diff(oldTree, newTree)
	if err != nil {
		t.Fatalf("Diff error: %v", err)
	}

	if !reflect.DeepEqual(cs.Added, []string{"d"}) {
		t.Errorf("Added = %v, want [d]", cs.Added)
	}
	if !reflect.DeepEqual(cs.Modified, []string{"a.b"}) {
		t.Errorf("Modified = %v, want [a.b]", cs.Modified)
	}
	if !reflect.DeepEqual(cs.Deleted, []string{"c"}) {
		t.Errorf("Deleted = %v, want [c]", cs.Deleted)
	}
}

func TestDiff_UnchangedKeysAppearNowhere(t *testing.T) {
	tree := map[string]any{
		"a": "same",
		"nested": map[string]any{
			"list": []any{"x", "y"},
		},
	}

	cs, err := Diff(tree, map[string]any{
		"a": "same",
		"nested": map[string]any{
			"list": []any{"x", "y"}, // equal by content, not identity
		},
	})
	if err != nil {
		t.Fatalf("Diff error: %v", err)
	}

	if !cs.IsEmpty() {
		t.Fatalf("expected empty change set, got %+v", cs)
	}
}

func TestDiff_DeepValueEquality(t *testing.T) {
	oldTree := map[string]any{"opts": []any{"a", "b"}}
	newTree := map[string]any{"opts": []any{"a", "c"}}

	cs, err := Diff(oldTree, newTree)
	if err != nil {
		t.Fatalf("Diff error: %v", err)
	}
	if !reflect.DeepEqual(cs.Modified, []string{"opts"}) {
		t.Fatalf("Modified = %v, want [opts]", cs.Modified)
	}
}

func TestDiff_Disjointness(t *testing.T) {
	oldTree := map[string]any{"a": "1", "b": "2", "c": "3"}
	newTree := map[string]any{"b": "2", "c": "changed", "d": "4"}

	cs, err := Diff(oldTree, newTree)
	if err != nil {
		t.Fatalf("Diff error: %v", err)
	}

	seen := make(map[string]int)
	for _, p := range cs.Added {
		seen[p]++
	}
	for _, p := range cs.Modified {
		seen[p]++
	}
	for _, p := range cs.Deleted {
		seen[p]++
	}
	for p, n := range seen {
		if n > 1 {
			t.Errorf("path %q appears in %d sets", p, n)
		}
	}

	added, modified, deleted := cs.Stats()
	if added != 1 || modified != 1 || deleted != 1 {
		t.Fatalf("Stats = (%d, %d, %d), want (1, 1, 1)", added, modified, deleted)
	}
}

func TestNeedsTranslation(t *testing.T) {
	cs := &ChangeSet{Added: []string{"z"}, Modified: []string{"a"}}
	want := []string{"a", "z"}
	if got := cs.NeedsTranslation(); !reflect.DeepEqual(got, want) {
		t.Fatalf("NeedsTranslation = %v, want %v", got, want)
	}
}
