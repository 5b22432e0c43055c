package rules

import "testing"

func strPtr(s string) *string {
	return &s
}

func TestStoreAttributePrimaryMovesToFront(t *testing.T) {
	rule := NewRuleDefinition("fs", "")
	_ = rule.StoreAttribute("device", nil, AttrRequired)
	_ = rule.StoreAttribute("fstype", strPtr("ext4"), 0)
	_ = rule.StoreAttribute("name", nil, AttrPrimary|AttrUnique)

	want := []string{"name", "fstype", "device"}
	if len(rule.Attributes) != len(want) {
		t.Fatalf("expected %d attributes, got %d", len(want), len(rule.Attributes))
	}
	for i, name := range want {
		if rule.Attributes[i].Name != name {
			t.Errorf("attribute %d: got %s, want %s", i, rule.Attributes[i].Name, name)
		}
	}

	primary, ok := rule.PrimaryAttribute()
	if !ok || primary.Name != "name" {
		t.Error("primary attribute not found at index 0")
	}
}

func TestStoreAttributeFirstPrimary(t *testing.T) {
	rule := NewRuleDefinition("fs", "")
	_ = rule.StoreAttribute("name", nil, AttrPrimary)
	_ = rule.StoreAttribute("device", nil, 0)

	if rule.Attributes[0].Name != "name" || len(rule.Attributes) != 2 {
		t.Errorf("unexpected attributes %+v", rule.Attributes)
	}
}

func TestStoreAttributeRequiresName(t *testing.T) {
	rule := NewRuleDefinition("fs", "")
	if err := rule.StoreAttribute("", nil, 0); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestAttributeValue(t *testing.T) {
	plain := Attribute{Name: "domain", Value: strPtr("")}
	if v, ok := plain.Default(); !ok || v != "" {
		t.Errorf("Default() = %q, %v", v, ok)
	}
	if _, ok := plain.InheritFrom(); ok {
		t.Error("plain attribute should not inherit")
	}

	inherited := Attribute{Name: "nfs", Value: strPtr("service%nfslock"), Flags: AttrInherit}
	if v, ok := inherited.InheritFrom(); !ok || v != "service%nfslock" {
		t.Errorf("InheritFrom() = %q, %v", v, ok)
	}
	if _, ok := inherited.Default(); ok {
		t.Error("inherited attribute should have no default")
	}

	var none Attribute
	if _, ok := none.Default(); ok {
		t.Error("attribute without value should have no default")
	}
}

func TestStoreAction(t *testing.T) {
	t.Run("appends new action", func(t *testing.T) {
		rule := NewRuleDefinition("vm", "")
		n, err := rule.StoreAction(Action{Name: "start", Timeout: 20})
		if err != nil || n != 0 {
			t.Fatalf("StoreAction() = %d, %v", n, err)
		}
		if len(rule.Actions) != 1 {
			t.Fatalf("expected 1 action, got %d", len(rule.Actions))
		}
	})

	t.Run("same name and depth replaces", func(t *testing.T) {
		rule := NewRuleDefinition("vm", "")
		_, _ = rule.StoreAction(Action{Name: "monitor", Depth: 1, Timeout: 10, Interval: 30})
		n, err := rule.StoreAction(Action{Name: "monitor", Depth: 1, Timeout: 20, Interval: 60})
		if err != nil || n != 1 {
			t.Fatalf("StoreAction() = %d, %v", n, err)
		}
		if len(rule.Actions) != 1 {
			t.Fatalf("expected 1 action, got %d", len(rule.Actions))
		}
		if rule.Actions[0].Timeout != 20 || rule.Actions[0].Interval != 60 {
			t.Errorf("action not replaced: %+v", rule.Actions[0])
		}
	})

	t.Run("different depth appends", func(t *testing.T) {
		rule := NewRuleDefinition("vm", "")
		_, _ = rule.StoreAction(Action{Name: "status", Depth: 0, Interval: 60})
		_, _ = rule.StoreAction(Action{Name: "status", Depth: 10, Interval: 30})
		if len(rule.Actions) != 2 {
			t.Fatalf("expected 2 actions, got %d", len(rule.Actions))
		}
		if _, ok := rule.Action("status", 10); !ok {
			t.Error("depth 10 status not found")
		}
	})

	t.Run("all depths replaces every depth", func(t *testing.T) {
		rule := NewRuleDefinition("vm", "")
		_, _ = rule.StoreAction(Action{Name: "status", Depth: 0, Interval: 60})
		_, _ = rule.StoreAction(Action{Name: "status", Depth: 10, Interval: 30})
		n, err := rule.StoreAction(Action{Name: "status", Depth: AllDepths, Timeout: -1, Interval: 5})
		if err != nil || n != 2 {
			t.Fatalf("StoreAction() = %d, %v", n, err)
		}
		for _, act := range rule.Actions {
			if act.Interval != 5 {
				t.Errorf("interval not replaced: %+v", act)
			}
			if act.Timeout != 0 {
				t.Errorf("negative timeout should leave value unchanged: %+v", act)
			}
		}
	})

	t.Run("stored all depths matches any depth", func(t *testing.T) {
		rule := NewRuleDefinition("vm", "")
		_, _ = rule.StoreAction(Action{Name: "status", Depth: AllDepths, Interval: 60})
		n, _ := rule.StoreAction(Action{Name: "status", Depth: 20, Interval: 10})
		if n != 1 || len(rule.Actions) != 1 {
			t.Errorf("expected merge into all-depths slot, got %d slots replaced and %d actions", n, len(rule.Actions))
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		rule := NewRuleDefinition("vm", "")
		if _, err := rule.StoreAction(Action{Timeout: 1}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("rejects all negative", func(t *testing.T) {
		rule := NewRuleDefinition("vm", "")
		if _, err := rule.StoreAction(Action{Name: "stop", Depth: -1, Timeout: -1, Interval: -1}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("rejects creation with negative values", func(t *testing.T) {
		rule := NewRuleDefinition("vm", "")
		if _, err := rule.StoreAction(Action{Name: "stop", Timeout: -1}); err == nil {
			t.Error("expected error")
		}
		if _, err := rule.StoreAction(Action{Name: "stop", Depth: -2}); err == nil {
			t.Error("expected error")
		}
		if len(rule.Actions) != 0 {
			t.Errorf("expected no actions, got %d", len(rule.Actions))
		}
	})
}

func TestStoreChildType(t *testing.T) {
	rule := NewRuleDefinition("service", "")
	if err := rule.StoreChildType(ChildType{Name: "fs", StartLevel: 1}); err != nil {
		t.Fatalf("StoreChildType failed: %v", err)
	}
	if err := rule.StoreChildType(ChildType{Name: "vm", Forbid: true}); err != nil {
		t.Fatalf("StoreChildType failed: %v", err)
	}
	if err := rule.StoreChildType(ChildType{}); err == nil {
		t.Error("expected error for empty child name")
	}

	if !rule.ForbidsChild("vm") {
		t.Error("vm should be forbidden")
	}
	if rule.ForbidsChild("fs") {
		t.Error("fs should not be forbidden")
	}
}
