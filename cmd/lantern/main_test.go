package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/lantern/host"
	"github.com/chazu/lantern/journal"
)

// writeScript writes a script into a fresh directory and returns its path.
func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.lan")
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunScript(t *testing.T) {
	code, stdout, stderr := runCLI(t, writeScript(t, "print(1 + 2)"))
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
	if stdout != "3\n" {
		t.Errorf("stdout = %q, want %q", stdout, "3\n")
	}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   int
		stdout string
		stderr string
	}{
		{"compile error", "print(1 +", exitCompileError, "", "error: expected expression at end"},
		{"runtime error", "print(1)\nprint(1 / 0)", exitRuntimeError, "1\n", "runtime error: division by zero\n  --> "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, "-no-color", writeScript(t, tc.source))
			if code != tc.code {
				t.Errorf("exit %d, want %d", code, tc.code)
			}
			if stdout != tc.stdout {
				t.Errorf("stdout = %q, want %q", stdout, tc.stdout)
			}
			if !strings.Contains(stderr, tc.stderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tc.stderr)
			}
		})
	}
}

func TestCheckDoesNotRun(t *testing.T) {
	code, stdout, _ := runCLI(t, "-check", writeScript(t, "print(1 / 0)"))
	if code != exitOK || stdout != "" {
		t.Errorf("exit %d, stdout %q", code, stdout)
	}
}

func TestDump(t *testing.T) {
	code, stdout, _ := runCLI(t, "-dump", writeScript(t, "print(1)"))
	if code != exitOK {
		t.Fatalf("exit %d", code)
	}
	if !strings.HasPrefix(stdout, "== main.lan ==\n") || !strings.Contains(stdout, "CALL") {
		t.Errorf("listing:\n%s", stdout)
	}
}

func TestCBOROutput(t *testing.T) {
	code, stdout, stderr := runCLI(t, "-format", "cbor", writeScript(t, "print(\"before\")\nprint(nil + 1)"))
	if code != exitRuntimeError {
		t.Fatalf("exit %d", code)
	}

	// Script output goes to stderr; stdout is exactly the outcome.
	if stderr != "before\n" {
		t.Errorf("stderr = %q, want %q", stderr, "before\n")
	}
	outcome, err := host.UnmarshalOutcome([]byte(stdout))
	if err != nil {
		t.Fatalf("UnmarshalOutcome: %v", err)
	}
	if outcome.RuntimeLine() != 2 || outcome.RuntimeError() == "" {
		t.Errorf("runtime error = %q at line %d", outcome.RuntimeError(), outcome.RuntimeLine())
	}
}

func TestCBOROutputAfterSuccess(t *testing.T) {
	code, stdout, _ := runCLI(t, "-format", "cbor", writeScript(t, "print(1)\nprint(2)"))
	if code != exitOK {
		t.Fatalf("exit %d", code)
	}
	outcome, err := host.UnmarshalOutcome([]byte(stdout))
	if err != nil {
		t.Fatalf("UnmarshalOutcome: %v", err)
	}
	if !outcome.Success() {
		t.Errorf("outcome = %s", outcome)
	}
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-format", "xml", "a.lan"},
		{"a.lan", "b.lan"},
		{"-no-such-flag"},
	} {
		if code, _, _ := runCLI(t, args...); code != exitUsage {
			t.Errorf("%v: exit %d, want %d", args, code, exitUsage)
		}
	}
}

func TestMissingScript(t *testing.T) {
	code, _, stderr := runCLI(t, filepath.Join(t.TempDir(), "absent.lan"))
	if code != exitFailure || !strings.Contains(stderr, "absent.lan") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}

func TestManifestConstantsAndJournal(t *testing.T) {
	dir := t.TempDir()
	manifest := `
[project]
name = "demo"

[journal]
enabled = true
path = "runs.db"

[constants]
greeting = "hello"
answer = 42
`
	if err := os.WriteFile(filepath.Join(dir, "lantern.toml"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "main.lan")
	if err := os.WriteFile(script, []byte("print(greeting())\nprint(answer() + 1)"), 0644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI(t, script)
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
	if stdout != "hello\n43\n" {
		t.Errorf("stdout = %q", stdout)
	}

	j, err := journal.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	counts, err := j.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if counts["ok"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestJournalFlag(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	runCLI(t, "-journal", dbPath, writeScript(t, "print(1)"))
	runCLI(t, "-journal", dbPath, writeScript(t, "var = 1"))

	j, err := journal.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	recent, err := j.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d entries, want 2", len(recent))
	}
	if recent[0].Source != "var = 1" || recent[0].Outcome.Success() {
		t.Errorf("latest entry = %+v", recent[0])
	}
}

func TestIncomplete(t *testing.T) {
	s := host.New()
	tests := []struct {
		source string
		want   bool
	}{
		{"{ var a = 1", true},
		{"print(1 +", true},
		{"print(1)", false},
		{"var = 1", false},
	}
	for _, tc := range tests {
		if got := incomplete(s.Check(tc.source)); got != tc.want {
			t.Errorf("incomplete(%q) = %v, want %v", tc.source, got, tc.want)
		}
	}
}
