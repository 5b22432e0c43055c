package rules

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
)

// WriteRule renders a human-readable description of rule to w.
func WriteRule(w io.Writer, rule *RuleDefinition) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Resource Rules for \"%s\"\n", rule.Type)
	if rule.Version != "" {
		fmt.Fprintf(bw, "OCF API Version: %s\n", rule.Version)
	}
	if rule.MaxInstances != 0 {
		fmt.Fprintf(bw, "Max instances: %d\n", rule.MaxInstances)
	}
	if rule.AgentPath != "" {
		fmt.Fprintf(bw, "Agent: %s\n", filepath.Base(rule.AgentPath))
	}

	writeAttributes(bw, rule.Attributes)
	writeActions(bw, rule.Actions)
	writeChildTypes(bw, rule.ChildTypes)

	return bw.Flush()
}

// WriteRegistry renders every rule in registry order.
func WriteRegistry(w io.Writer, reg *Registry) error {
	for rule := range reg.All() {
		if err := WriteRule(w, rule); err != nil {
			return err
		}
	}
	return nil
}

func writeAttributes(w io.Writer, attrs []Attribute) {
	fmt.Fprintln(w, "Attributes:")
	if len(attrs) == 0 {
		fmt.Fprintln(w, "  - None -")
		return
	}

	for _, attr := range attrs {
		fmt.Fprintf(w, "  %s", attr.Name)
		if attr.Flags == 0 && attr.Value == nil {
			fmt.Fprintln(w)
			continue
		}

		fmt.Fprint(w, " [")
		if attr.Flags.Has(AttrPrimary) {
			fmt.Fprint(w, " primary")
		}
		if attr.Flags.Has(AttrUnique) {
			fmt.Fprint(w, " unique")
		}
		if attr.Flags.Has(AttrRequired) {
			fmt.Fprint(w, " required")
		}
		if attr.Flags.Has(AttrInherit) {
			fmt.Fprint(w, " inherit")
		} else if attr.Value != nil {
			fmt.Fprintf(w, " default=\"%s\"", *attr.Value)
		}
		fmt.Fprintln(w, " ]")
	}
}

func writeActions(w io.Writer, acts []Action) {
	fmt.Fprintln(w, "Actions:")
	if len(acts) == 0 {
		fmt.Fprintln(w, "  - None -")
		return
	}

	for _, act := range acts {
		fmt.Fprintf(w, "  %s\n", act.Name)
		if act.Timeout != 0 {
			fmt.Fprintf(w, "    Timeout (hint): %d seconds\n", act.Timeout)
		}
		if act.Depth != 0 {
			fmt.Fprintf(w, "    OCF Check Depth (status/monitor): %d\n", act.Depth)
		}
		if act.Interval != 0 {
			fmt.Fprintf(w, "    Check Interval: %d seconds\n", act.Interval)
		}
	}
}

func writeChildTypes(w io.Writer, children []ChildType) {
	fmt.Fprintln(w, "Explicitly defined child resource types:")
	if len(children) == 0 {
		fmt.Fprint(w, "  - None -\n\n")
		return
	}

	for _, child := range children {
		fmt.Fprintf(w, "  %s", child.Name)
		if child.Forbid {
			fmt.Fprintln(w, " (forbidden)")
			continue
		}
		if child.StartLevel != 0 || child.StopLevel != 0 {
			fmt.Fprint(w, " [")
			if child.StartLevel != 0 {
				fmt.Fprintf(w, " startlevel = %d", child.StartLevel)
			}
			if child.StopLevel != 0 {
				fmt.Fprintf(w, " stoplevel = %d", child.StopLevel)
			}
			fmt.Fprint(w, " ]")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}
