package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openfroyo/resrules/pkg/loader"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "none", "today")

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func agentDir(t *testing.T) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	dir := t.TempDir()
	script := `#!/bin/sh
cat <<'XML'
<resource-agent name="fs" version="1.0">
  <parameters><parameter name="device" primary="1" required="1"/></parameters>
  <actions><action name="start" timeout="1m"/></actions>
</resource-agent>
XML
`
	if err := os.WriteFile(filepath.Join(dir, "fs.sh"), []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write agent: %v", err)
	}
	return dir
}

func TestExpandTimeCommand(t *testing.T) {
	out, err := runCommand(t, "expand-time", "30s", "2m", "abc")
	if err != nil {
		t.Fatalf("expand-time failed: %v", err)
	}

	want := "30s\t30\n2m\t120\nabc\t0\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestScanCommand(t *testing.T) {
	dir := agentDir(t)

	out, err := runCommand(t, "scan", dir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(out, "Rules stored: 1, rejected: 0") || !strings.Contains(out, "  fs\n") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = runCommand(t, "scan", "--json", dir)
	if err != nil {
		t.Fatalf("scan --json failed: %v", err)
	}
	var report loader.ScanReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.RulesStored != 1 || report.Dir != dir {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestScanCommandMissingDirectory(t *testing.T) {
	if _, err := runCommand(t, "scan", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestListAndShowCommands(t *testing.T) {
	dir := agentDir(t)

	out, err := runCommand(t, "list", dir)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, `Resource Rules for "fs"`) || !strings.Contains(out, "device [ primary required ]") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = runCommand(t, "show", "fs", "--dir", dir)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "Timeout (hint): 60 seconds") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := runCommand(t, "show", "FS", "--dir", dir); err == nil {
		t.Error("show should match type names exactly")
	}
}

func TestHistoryCommand(t *testing.T) {
	dir := agentDir(t)
	journal := filepath.Join(t.TempDir(), "journal.db")

	if _, err := runCommand(t, "history"); err == nil {
		t.Error("expected error without a journal")
	}

	if _, err := runCommand(t, "scan", "--journal", journal, dir); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	out, err := runCommand(t, "history", "--journal", journal)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, dir) || !strings.Contains(out, "stored=1") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
