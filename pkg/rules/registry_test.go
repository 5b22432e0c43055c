package rules

import (
	"errors"
	"slices"
	"testing"
)

// permutations returns every ordering of names.
func permutations(names []string) [][]string {
	if len(names) <= 1 {
		return [][]string{slices.Clone(names)}
	}
	var out [][]string
	for i := range names {
		rest := make([]string, 0, len(names)-1)
		rest = append(rest, names[:i]...)
		rest = append(rest, names[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{names[i]}, p...))
		}
	}
	return out
}

func TestRegistryOrderIndependentOfInsertion(t *testing.T) {
	names := []string{"vm", "FS", "ip", "Service", "nfsclient"}
	want := []string{"FS", "ip", "nfsclient", "Service", "vm"}

	for _, perm := range permutations(names) {
		reg := NewRegistry()
		for _, name := range perm {
			if err := reg.Store(NewRuleDefinition(name, "/agents/"+name)); err != nil {
				t.Fatalf("Store(%s) failed: %v", name, err)
			}
		}

		if got := reg.TypeNames(); !slices.Equal(got, want) {
			t.Fatalf("insertion order %v gave %v, want %v", perm, got, want)
		}
	}
}

func TestRegistryRejectsDuplicateIgnoringCase(t *testing.T) {
	reg := NewRegistry()
	first := NewRuleDefinition("fs", "/agents/fs.sh")
	if err := reg.Store(first); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := reg.Store(NewRuleDefinition("ip", "/agents/ip.sh")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	err := reg.Store(NewRuleDefinition("FS", "/agents/other.sh"))
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if !HasCode(err, ErrCodeDuplicateType) {
		t.Errorf("expected %s, got %v", ErrCodeDuplicateType, err)
	}
	if !IsSkippable(err) {
		t.Error("duplicate should be skippable")
	}

	if reg.Len() != 2 {
		t.Errorf("expected 2 rules, got %d", reg.Len())
	}
	got, ok := reg.FindByType("fs")
	if !ok || got != first {
		t.Error("original rule was replaced")
	}
}

func TestRegistryStoreNil(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Store(nil); err == nil {
		t.Error("expected error storing nil rule")
	}
}

func TestRegistryFindByTypeIsCaseSensitive(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Store(NewRuleDefinition("Apache", "/agents/apache.sh")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if _, ok := reg.FindByType("Apache"); !ok {
		t.Error("exact match not found")
	}
	if _, ok := reg.FindByType("apache"); ok {
		t.Error("lookup should not fold case")
	}
	if _, ok := reg.FindByType("nfs"); ok {
		t.Error("unexpected match for unknown type")
	}

	// Ordering still treats the two spellings as the same type.
	if err := reg.Store(NewRuleDefinition("apache", "/agents/other.sh")); !errors.Is(err, NewSkipError(ErrCodeDuplicateType, "", nil)) {
		t.Errorf("expected duplicate error, got %v", err)
	}
}

func TestRegistryDestroyAll(t *testing.T) {
	reg := NewRegistry()
	rule := NewRuleDefinition("fs", "/agents/fs.sh")
	_ = rule.StoreAttribute("device", nil, AttrRequired)
	_, _ = rule.StoreAction(Action{Name: "start", Timeout: 10})
	if err := reg.Store(rule); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	reg.DestroyAll()

	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d rules", reg.Len())
	}
	if rule.Attributes != nil || rule.Actions != nil {
		t.Error("destroyed rule still holds attributes or actions")
	}

	// The registry is reusable.
	if err := reg.Store(NewRuleDefinition("fs", "/agents/fs.sh")); err != nil {
		t.Errorf("Store after DestroyAll failed: %v", err)
	}
	reg.DestroyAll()
	reg.DestroyAll()
}

func TestRegistryAll(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		_ = reg.Store(NewRuleDefinition(name, ""))
	}

	var seen []string
	for rule := range reg.All() {
		seen = append(seen, rule.Type)
		if len(seen) == 2 {
			break
		}
	}
	if !slices.Equal(seen, []string{"a", "b"}) {
		t.Errorf("unexpected iteration %v", seen)
	}
}

func TestCompareFold(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"abc", "ABC", 0},
		{"abc", "abd", -1},
		{"B", "a", 1},
		{"ab", "abc", -1},
		{"abc", "ab", 1},
		{"", "", 0},
		{"_x", "ax", -1},
	}

	for _, tt := range tests {
		if got := compareFold(tt.a, tt.b); got != tt.want {
			t.Errorf("compareFold(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
