package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "quarry") || !strings.Contains(out, AppVersion) {
		t.Errorf("version output = %q", out)
	}
}

func TestIngest_NothingToIngest(t *testing.T) {
	_, err := execute(t, "ingest")
	if err == nil || !strings.Contains(err.Error(), "nothing to ingest") {
		t.Errorf("error = %v, want nothing-to-ingest", err)
	}
}

func TestClear_RequiresConfirmation(t *testing.T) {
	_, err := execute(t, "clear")
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("error = %v, want confirmation refusal", err)
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	_, err := execute(t, "search")
	if err == nil {
		t.Error("search without query accepted")
	}
}
