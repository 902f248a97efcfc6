package merge

import (
	"reflect"
	"testing"
)

func TestDeep_IncomingWins(t *testing.T) {
	existing := map[string]any{"a": "1", "b": "2"}
	incoming := map[string]any{"b": "3"}

	got := Deep(existing, incoming)
	want := map[string]any{"a": "1", "b": "3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Deep = %v, want %v", got, want)
	}
}

func TestDeep_RecursesIntoMappings(t *testing.T) {
	existing := map[string]any{
		"nav": map[string]any{"home": "Accueil", "about": "À propos"},
	}
	incoming := map[string]any{
		"nav": map[string]any{"home": "Accueil!"},
	}

	got := Deep(existing, incoming)
	want := map[string]any{
		"nav": map[string]any{"home": "Accueil!", "about": "À propos"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Deep = %v, want %v", got, want)
	}
}

func TestDeep_ScalarReplacesMapping(t *testing.T) {
	existing := map[string]any{"a": map[string]any{"b": "1"}}
	incoming := map[string]any{"a": "flat now"}

	got := Deep(existing, incoming)
	want := map[string]any{"a": "flat now"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Deep = %v, want %v", got, want)
	}
}

func TestDeep_DoesNotMutateInputs(t *testing.T) {
	existing := map[string]any{"nav": map[string]any{"home": "Home"}}
	incoming := map[string]any{"nav": map[string]any{"home": "Accueil"}}

	Deep(existing, incoming)

	if existing["nav"].(map[string]any)["home"] != "Home" {
		t.Fatal("Deep mutated the existing tree")
	}
}

func TestApplyIncremental_MergeThenPrune(t *testing.T) {
	existing := map[string]any{
		"a": map[string]any{"b": "old-b", "c": "keep"},
		"d": "gone",
	}
	incoming := map[string]any{
		"a": map[string]any{"b": "new-b"},
	}

	got, err := ApplyIncremental(existing, incoming, []string{"d"})
	if err != nil {
		t.Fatalf("ApplyIncremental error: %v", err)
	}

	want := map[string]any{
		"a": map[string]any{"b": "new-b", "c": "keep"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ApplyIncremental = %v, want %v", got, want)
	}
}

func TestApplyIncremental_NilExisting(t *testing.T) {
	incoming := map[string]any{"a": "1"}

	got, err := ApplyIncremental(nil, incoming, nil)
	if err != nil {
		t.Fatalf("ApplyIncremental error: %v", err)
	}
	if !reflect.DeepEqual(got, incoming) {
		t.Fatalf("ApplyIncremental = %v, want %v", got, incoming)
	}
}
