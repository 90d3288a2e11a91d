package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCommandCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	return cmd.Execute()
}

const customersCSV = "id,name,city\n" +
	"1,Alice Smith,Berlin\n" +
	"2,Ben Hamburg,Hamburg\n" +
	"2,Ben Hamburg,Hamburg\n" +
	"3,Carol Jones,Munich\n"

func TestProfileCmd(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)

	if err := runCommand(t, "profile", src); err != nil {
		t.Fatalf("profile failed: %v", err)
	}
}

func TestProfileCmd_KeysOnly(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)

	if err := runCommand(t, "profile", src, "--keys"); err != nil {
		t.Fatalf("profile --keys failed: %v", err)
	}
}

func TestProfileCmd_MissingFile(t *testing.T) {
	err := runCommand(t, "profile", filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestCleanDuplicatesCmd_Exact(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)

	if err := runCommand(t, "clean", "duplicates", src, "--exact", "--keys", "id,name"); err != nil {
		t.Fatalf("clean duplicates failed: %v", err)
	}
}

func TestCleanDuplicatesCmd_Remove(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)

	err := runCommand(t, "clean", "duplicates", src, "--remove", "--exact", "--keys", "id,name")
	if err != nil {
		t.Fatalf("clean duplicates --remove failed: %v", err)
	}

	uniquePath := strings.TrimSuffix(src, ".csv") + "_unique.csv"
	data, err := os.ReadFile(uniquePath)
	if err != nil {
		t.Fatalf("unique file should exist: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 4 {
		t.Errorf("expected header plus 3 unique rows, got %d lines", got)
	}
}

func TestCleanMissingCmd(t *testing.T) {
	src := writeCommandCSV(t, "gaps.csv", "id,score\n1,10\n2,\n3,30\n")

	if err := runCommand(t, "clean", "missing", src, "--strategy", "mean"); err != nil {
		t.Fatalf("clean missing failed: %v", err)
	}
}

func TestMapTemplateCmd(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)
	out := filepath.Join(t.TempDir(), "field_map.json")

	if err := runCommand(t, "map", "template", src, "--out", out); err != nil {
		t.Fatalf("map template failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("template file should exist: %v", err)
	}
}

func TestMapFieldsCmd_RequiresMap(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)

	if err := runCommand(t, "map", "fields", src); err == nil {
		t.Fatal("expected an error when --map is missing")
	}
}

func TestMigrateCmd(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)

	err := runCommand(t, "migrate", src, "--mode", "skip", "--keys", "id")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	finalPath := strings.TrimSuffix(src, ".csv") + "_final.csv"
	if _, err := os.Stat(finalPath); err != nil {
		t.Fatalf("final file should exist: %v", err)
	}
}

func TestMigrateCmd_CheckOnly(t *testing.T) {
	src := writeCommandCSV(t, "source.csv", customersCSV)
	target := writeCommandCSV(t, "target.csv", "id,name,city\n1,Alice Smith,Berlin\n")

	err := runCommand(t, "migrate", src, "--check", "--target", target, "--keys", "id")
	if err != nil {
		t.Fatalf("migrate --check failed: %v", err)
	}

	// A check never writes the final file.
	finalPath := strings.TrimSuffix(src, ".csv") + "_final.csv"
	if _, err := os.Stat(finalPath); !os.IsNotExist(err) {
		t.Error("check-only run should not write the final file")
	}
}

func TestMigrateCmd_InvalidMode(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)

	if err := runCommand(t, "migrate", src, "--mode", "merge"); err == nil {
		t.Fatal("expected an error for an unknown duplicate mode")
	}
}

func TestMigrateCmd_WithReport(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)
	reportDir := t.TempDir()

	err := runCommand(t, "migrate", src,
		"--mode", "skip", "--keys", "id",
		"--report", "--report-dir", reportDir)
	if err != nil {
		t.Fatalf("migrate --report failed: %v", err)
	}

	entries, err := os.ReadDir(reportDir)
	if err != nil {
		t.Fatalf("read report dir: %v", err)
	}
	if len(entries) == 0 {
		t.Error("expected a rendered report in the report directory")
	}
}

func TestPipelineCmd(t *testing.T) {
	src := writeCommandCSV(t, "customers.csv", customersCSV)
	reportDir := t.TempDir()

	err := runCommand(t, "pipeline", src, "--keys", "id", "--report-dir", reportDir)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
}

func TestAskCmd(t *testing.T) {
	if err := runCommand(t, "ask", "find", "duplicates", "in", "my", "data"); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(buf.String(), "datamigrate") {
		t.Errorf("version output should name the binary, got %q", buf.String())
	}
}

func TestAskCmd_Unrecognized(t *testing.T) {
	if err := runCommand(t, "ask", "hello", "there"); err == nil {
		t.Fatal("expected an error for an unroutable request")
	}
}
