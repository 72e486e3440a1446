package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestTaxonomyOffline(t *testing.T) {
	t.Setenv("EDITAIS_SCANNER_CONFIG", "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"taxonomy", "--offline"})

	if err := root.Execute(); err != nil {
		t.Fatalf("taxonomy --offline failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if lines[0] != "Música" || lines[len(lines)-1] != "Outros" {
		t.Fatalf("unexpected labels: %q", lines)
	}
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"migrate", "sideways"})

	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "unknown direction") {
		t.Fatalf("expected direction error, got %v", err)
	}
}
