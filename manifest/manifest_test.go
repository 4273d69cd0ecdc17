package manifest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/lantern/host"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "demo"
version = "0.1.0"

[source]
entry = "scripts/start.lan"

[log]
verbosity = 2
file = "lantern.log"

[journal]
enabled = true
path = "/var/lib/lantern/runs.db"

[constants]
greeting = "hello"
answer = 42
ratio = 0.5
debug = false
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.EntryPath() != filepath.Join(m.Dir, "scripts", "start.lan") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
	if f := m.LogFile(); f == nil || *f != filepath.Join(m.Dir, "lantern.log") {
		t.Errorf("log file = %v", f)
	}
	if !m.Journal.Enabled || m.JournalPath() != "/var/lib/lantern/runs.db" {
		t.Errorf("journal = %+v, path %q", m.Journal, m.JournalPath())
	}
	if len(m.Constants) != 4 {
		t.Errorf("constants count = %d, want 4", len(m.Constants))
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[project]\nname = \"minimal\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Source.Entry != "main.lan" {
		t.Errorf("default entry = %q, want main.lan", m.Source.Entry)
	}
	if m.JournalPath() != filepath.Join(m.Dir, ".lantern", "journal.db") {
		t.Errorf("default journal path = %q", m.JournalPath())
	}
	if m.Journal.Enabled {
		t.Error("journal enabled by default")
	}
	if m.LogFile() != nil {
		t.Error("default log file should be nil")
	}
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Error("expected error for missing lantern.toml")
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[project\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[project]\nname = \"found\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil || m.Project.Name != "found" {
		t.Fatalf("manifest = %+v", m)
	}
	if abs, _ := filepath.Abs(root); m.Dir != abs {
		t.Errorf("dir = %q, want %q", m.Dir, abs)
	}
}

func TestNatives(t *testing.T) {
	m, err := Parse([]byte(`
[constants]
name = "lantern"
limit = 3
`))
	if err != nil {
		t.Fatal(err)
	}
	natives, err := m.Natives()
	if err != nil {
		t.Fatalf("Natives: %v", err)
	}
	if len(natives) != 2 || natives[0].Name != "limit" || natives[1].Name != "name" {
		t.Fatalf("natives = %+v", natives)
	}

	var out bytes.Buffer
	s := host.New(host.WithOutput(&out))
	outcome, err := s.Interpret("print(name() + \"!\")\nprint(limit() * 2)", natives)
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Success() {
		t.Fatalf("outcome = %s", outcome)
	}
	if out.String() != "lantern!\n6\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestNativesRejectTables(t *testing.T) {
	m, err := Parse([]byte("[constants]\nlist = [1, 2]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Natives(); !errors.Is(err, host.ErrMarshal) {
		t.Errorf("got %v, want ErrMarshal", err)
	}
}
