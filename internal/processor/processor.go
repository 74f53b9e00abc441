// Package processor implements the batch run: discover files under the
// source roots, group them by time bucket and materialize each group as
// copied files or as a tar archive.
package processor

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hochfrequenz/se-arch/internal/domain"
	"github.com/hochfrequenz/se-arch/internal/runlog"
)

// RunRecorder persists run lifecycle events
type RunRecorder interface {
	BeginRun(run domain.Run) error
	FinishRun(run domain.Run) error
}

// Options configures a Processor. Values are expected to be validated.
type Options struct {
	SourceRoots []string
	TargetRoot  string
	Patterns    []string
	Mode        domain.Mode
	Action      domain.Action
	// DeleteAge is the minimum source age before archive+move deletes it
	DeleteAge time.Duration

	Sink   runlog.Sink
	Runs   RunRecorder
	Logger *log.Logger
	Now    func() time.Time
}

// Processor executes batch runs. It is not safe for concurrent RunOnce calls.
type Processor struct {
	opts    Options
	matcher Matcher

	lastRun *domain.Run
	mu      sync.RWMutex
}

// New creates a processor
func New(opts Options) *Processor {
	if opts.Sink == nil {
		opts.Sink = runlog.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		opts:    opts,
		matcher: NewMatcher(opts.Patterns),
	}
}

// LastRun returns the most recently finished run
func (p *Processor) LastRun() (domain.Run, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastRun == nil {
		return domain.Run{}, false
	}
	return *p.lastRun, true
}

// RunOnce performs one complete run. Per-file and per-group failures are
// logged and absorbed; the returned error is only ever ctx.Err(), checked
// between files so an in-flight file always completes.
func (p *Processor) RunOnce(ctx context.Context) (domain.Run, error) {
	started := p.opts.Now()
	run := domain.Run{
		ID:        uuid.NewString(),
		StartedAt: started,
		Mode:      p.opts.Mode,
		Action:    p.opts.Action,
	}
	if p.opts.Runs != nil {
		if err := p.opts.Runs.BeginRun(run); err != nil {
			p.logf("WARNING: could not record run start: %v", err)
		}
	}

	p.logf("Starting processing: Mode=%s, Action=%s, Delete Age=%d days (if needed).",
		strings.ToUpper(string(p.opts.Mode)), strings.ToUpper(string(p.opts.Action)),
		int(p.opts.DeleteAge.Hours()/24))

	groups, keys := p.collect(ctx)

	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		var sum domain.Summary
		switch p.opts.Mode {
		case domain.ModeArchive:
			sum = p.archiveGroup(ctx, run, key, groups[key])
		case domain.ModeCopy:
			sum = p.copyGroup(ctx, run, key, groups[key])
		default:
			p.logf("ERROR: unknown mode %q, skipping %d files", p.opts.Mode, len(groups[key]))
		}
		run.Summary.Add(sum)
	}

	finished := p.opts.Now()
	run.FinishedAt = &finished
	if p.opts.Runs != nil {
		if err := p.opts.Runs.FinishRun(run); err != nil {
			p.logf("WARNING: could not record run result: %v", err)
		}
	}

	p.mu.Lock()
	last := run
	p.lastRun = &last
	p.mu.Unlock()

	p.logf("Operation run complete. Total items processed/archived: %d (%s), skipped: %d, failed: %d, deleted: %d",
		run.Processed, humanize.Bytes(uint64(run.Bytes)), run.Skipped, run.Failed, run.Deleted)

	return run, ctx.Err()
}

// collect walks every source root and buckets matching files. Files are
// deduplicated by absolute path; with overlapping roots the first root wins.
func (p *Processor) collect(ctx context.Context) (map[domain.GroupKey][]domain.FileRecord, []domain.GroupKey) {
	groups := make(map[domain.GroupKey][]domain.FileRecord)
	seen := make(map[string]struct{})

	for _, root := range p.opts.SourceRoots {
		if ctx.Err() != nil {
			break
		}

		abs, err := filepath.Abs(root)
		if err != nil {
			p.logf("ERROR: invalid source directory %s: %v", root, err)
			continue
		}
		abs = filepath.Clean(abs)
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			p.logf("ERROR: Source directory not found: %s", abs)
			continue
		}

		filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				p.logf("WARNING: cannot read %s: %v", path, err)
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			if !p.matcher.Match(d.Name()) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				p.logf("WARNING: Could not get modification time or process %s: %v", path, err)
				return nil
			}

			rel, err := filepath.Rel(abs, filepath.Dir(path))
			if err != nil {
				p.logf("WARNING: Could not resolve %s relative to %s: %v", path, abs, err)
				return nil
			}

			rec := domain.FileRecord{
				SourceRoot:      abs,
				SourcePath:      path,
				FileName:        d.Name(),
				ModifiedAt:      info.ModTime(),
				RelativeSubPath: rel,
			}
			key := domain.KeyFor(p.opts.Mode, rec)
			groups[key] = append(groups[key], rec)
			seen[path] = struct{}{}
			return nil
		})
	}

	keys := make([]domain.GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return groups, keys
}

func (p *Processor) newEntry(run domain.Run, sourceFolder, fileName, target string) domain.LogEntry {
	return domain.LogEntry{
		RunID:          run.ID,
		Timestamp:      run.StartedAt,
		SourceFolder:   sourceFolder,
		SourceFileName: fileName,
		Target:         target,
	}
}

// emit writes the entry immediately. Sink failures never abort the run.
func (p *Processor) emit(entry domain.LogEntry) {
	if err := p.opts.Sink.Write(entry); err != nil {
		p.logf("CRITICAL ERROR writing to log: %v", err)
	}
}

// removeSource deletes a materialized source file and appends the deletion
// sub-status to the entry
func (p *Processor) removeSource(entry *domain.LogEntry, path string, sum *domain.Summary) {
	if err := os.Remove(path); err != nil {
		entry.Status += fmt.Sprintf(" (ERROR DELETING SOURCE: %s)", oneLine(err))
		p.logf("  - ERROR deleting source %s: %v", path, err)
		return
	}
	entry.Status += " (MOVED/DELETED)"
	sum.Deleted++
	p.logf("  - Deleted source file: %s", path)
}

func (p *Processor) logf(format string, args ...interface{}) {
	p.opts.Logger.Printf(format, args...)
}

func oneLine(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", " ")
}
