//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Workspace is a throwaway source/target/log layout for end-to-end tests
type Workspace struct {
	Root   string
	Source string
	Target string
	Logs   string
}

// NewWorkspace creates the directory layout under t.TempDir()
func NewWorkspace(t *testing.T) Workspace {
	t.Helper()
	root := t.TempDir()
	ws := Workspace{
		Root:   root,
		Source: filepath.Join(root, "source"),
		Target: filepath.Join(root, "target"),
		Logs:   filepath.Join(root, "logs"),
	}
	if err := os.MkdirAll(ws.Source, 0755); err != nil {
		t.Fatalf("Failed to create source dir: %v", err)
	}
	return ws
}

// DBPath returns the database location inside the workspace
func (ws Workspace) DBPath() string {
	return filepath.Join(ws.Logs, "se-arch.db")
}

// WriteFile creates a source file with the given modification time
func (ws Workspace) WriteFile(t *testing.T, rel, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(ws.Source, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Failed to set mtime on %s: %v", rel, err)
	}
	return path
}

// WriteConfig writes a TOML config for the workspace and returns its path
func (ws Workspace) WriteConfig(t *testing.T, mode, action string, patterns ...string) string {
	t.Helper()
	if len(patterns) == 0 {
		patterns = []string{"*.*"}
	}
	quoted := make([]string, len(patterns))
	for i, p := range patterns {
		quoted[i] = `"` + p + `"`
	}

	config := `[settings]
source_dirs = ["` + ws.Source + `"]
target_dir = "` + ws.Target + `"
interval_minutes = 5
file_patterns = [` + strings.Join(quoted, ", ") + `]
mode = "` + mode + `"
action = "` + action + `"
delete_files_older_than_days = 30
log_dir = "` + ws.Logs + `"
database_path = "` + ws.DBPath() + `"

[notifications]
desktop = false

[web]
port = 8090
host = "127.0.0.1"
`

	path := filepath.Join(ws.Root, "se-arch.toml")
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// Exists reports whether path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
