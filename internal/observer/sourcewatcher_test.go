package observer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSourceWatcher_ReportsMatchingFiles(t *testing.T) {
	root := t.TempDir()
	changes := make(chan []string, 4)

	sw, err := NewSourceWatcher(
		func(name string) bool { return strings.HasSuffix(name, ".log") },
		func(files []string) { changes <- files },
	)
	if err != nil {
		t.Fatal(err)
	}
	sw.SetDebounce(50 * time.Millisecond)
	if err := sw.AddRoot(root); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sw.Start(ctx)
	defer sw.Stop()

	os.WriteFile(filepath.Join(root, "ignored.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(root, "a.log"), []byte("x"), 0644)

	select {
	case files := <-changes:
		if len(files) != 1 || filepath.Base(files[0]) != "a.log" {
			t.Errorf("changed files = %v, want [a.log]", files)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestSourceWatcher_WatchesNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	changes := make(chan []string, 4)

	sw, err := NewSourceWatcher(nil, func(files []string) { changes <- files })
	if err != nil {
		t.Fatal(err)
	}
	sw.SetDebounce(50 * time.Millisecond)
	sw.AddRoot(root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sw.Start(ctx)
	defer sw.Stop()

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	os.WriteFile(filepath.Join(sub, "b.log"), []byte("x"), 0644)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case files := <-changes:
			for _, f := range files {
				if filepath.Base(f) == "b.log" {
					return
				}
			}
		case <-deadline:
			t.Fatal("file in new subdirectory was not reported")
		}
	}
}

func TestSourceWatcher_IgnoresMissingRoot(t *testing.T) {
	sw, err := NewSourceWatcher(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sw.Stop()

	if err := sw.AddRoot(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Errorf("AddRoot(missing) = %v, want nil", err)
	}
	if len(sw.Roots()) != 0 {
		t.Errorf("Roots = %v, want none", sw.Roots())
	}
}
