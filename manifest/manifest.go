// Package manifest handles lantern.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/lantern/host"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "lantern.toml"

// Manifest represents a lantern.toml project configuration.
type Manifest struct {
	Project   Project        `toml:"project"`
	Source    Source         `toml:"source"`
	Log       Log            `toml:"log"`
	Journal   Journal        `toml:"journal"`
	Constants map[string]any `toml:"constants"`

	// Dir is the directory containing the lantern.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures the script to run.
type Source struct {
	Entry string `toml:"entry"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Journal configures the run history database.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load parses a lantern.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text and applies defaults. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, err
	}

	// Defaults
	if m.Source.Entry == "" {
		m.Source.Entry = "main.lan"
	}
	if m.Journal.Path == "" {
		m.Journal.Path = filepath.Join(".lantern", "journal.db")
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a lantern.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the entry script.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Source.Entry)
}

// JournalPath returns the absolute path of the journal database.
func (m *Manifest) JournalPath() string {
	return m.resolve(m.Journal.Path)
}

// LogFile returns the configured log file for commonlog.Configure, or nil
// for stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.resolve(m.Log.File)
	return &path
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir, path)
}

// Natives exposes [constants] to scripts as zero-arity natives, sorted by
// name. Only strings, numbers and booleans are accepted.
func (m *Manifest) Natives() ([]host.Native, error) {
	names := make([]string, 0, len(m.Constants))
	for name := range m.Constants {
		names = append(names, name)
	}
	sort.Strings(names)

	natives := make([]host.Native, 0, len(names))
	for _, name := range names {
		value, err := host.FromGo(m.Constants[name])
		if err != nil {
			return nil, fmt.Errorf("constant %q: %w", name, err)
		}
		natives = append(natives, host.Native{
			Name:     name,
			Arity:    0,
			Callback: func([]any) (any, error) { return value, nil },
		})
	}
	return natives, nil
}
