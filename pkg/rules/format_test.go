package rules

import (
	"bytes"
	"testing"
)

func TestWriteRule(t *testing.T) {
	rule := NewRuleDefinition("vm", "/usr/share/cluster/vm.sh")
	rule.Version = "1.0"
	rule.MaxInstances = 2
	_ = rule.StoreAttribute("name", nil, AttrPrimary|AttrRequired)
	_ = rule.StoreAttribute("domain", strPtr(""), 0)
	_ = rule.StoreAttribute("path", nil, 0)
	_ = rule.StoreAttribute("nfslock", strPtr("service%nfslock"), AttrInherit)
	_, _ = rule.StoreAction(Action{Name: "monitor", Depth: 1, Interval: 30})
	_, _ = rule.StoreAction(Action{Name: "start", Timeout: 20})
	_ = rule.StoreChildType(ChildType{Name: "service", Forbid: true})
	_ = rule.StoreChildType(ChildType{Name: "fs", StartLevel: 1, StopLevel: 3})

	var buf bytes.Buffer
	if err := WriteRule(&buf, rule); err != nil {
		t.Fatalf("WriteRule failed: %v", err)
	}

	want := `Resource Rules for "vm"
OCF API Version: 1.0
Max instances: 2
Agent: vm.sh
Attributes:
  name [ primary required ]
  domain [ default="" ]
  path
  nfslock [ inherit ]
Actions:
  monitor
    OCF Check Depth (status/monitor): 1
    Check Interval: 30 seconds
  start
    Timeout (hint): 20 seconds
Explicitly defined child resource types:
  service (forbidden)
  fs [ startlevel = 1 stoplevel = 3 ]

`
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteRuleEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRule(&buf, NewRuleDefinition("script", "")); err != nil {
		t.Fatalf("WriteRule failed: %v", err)
	}

	want := `Resource Rules for "script"
Attributes:
  - None -
Actions:
  - None -
Explicitly defined child resource types:
  - None -

`
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteRegistryOrder(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Store(NewRuleDefinition("vm", ""))
	_ = reg.Store(NewRuleDefinition("FS", ""))

	var buf bytes.Buffer
	if err := WriteRegistry(&buf, reg); err != nil {
		t.Fatalf("WriteRegistry failed: %v", err)
	}

	out := buf.String()
	fs := bytes.Index([]byte(out), []byte(`"FS"`))
	vm := bytes.Index([]byte(out), []byte(`"vm"`))
	if fs < 0 || vm < 0 || fs > vm {
		t.Errorf("rules not written in registry order:\n%s", out)
	}
}

func TestAttrFlagsString(t *testing.T) {
	if got := (AttrRequired | AttrPrimary).String(); got != "primary,required" {
		t.Errorf("String() = %q", got)
	}
	if got := AttrFlags(0).String(); got != "" {
		t.Errorf("String() = %q", got)
	}
}
