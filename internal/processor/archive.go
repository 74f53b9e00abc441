package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hochfrequenz/se-arch/internal/archive"
	"github.com/hochfrequenz/se-arch/internal/domain"
)

// archiveGroup appends the group's files to
// target/<root name>/<month bucket>/<YYYYMMDD>.tar. Members already present
// are skipped. With the move action a source is deleted only once it is at
// least DeleteAge old.
func (p *Processor) archiveGroup(ctx context.Context, run domain.Run, key domain.GroupKey, files []domain.FileRecord) domain.Summary {
	var sum domain.Summary
	archiveName := key.Discriminator + ".tar"
	archivePath := filepath.Join(p.opts.TargetRoot, key.RootName(), key.TimeBucket, archiveName)

	arc, err := archive.Open(archivePath)
	if err != nil {
		p.critical(run, key, archiveName, archivePath, err)
		sum.Failed++
		return sum
	}

	verb := "Appending"
	if arc.Created() {
		verb = "Creating"
	}
	p.logf("%s archive: %s", verb, archivePath)

	threshold := run.StartedAt.Add(-p.opts.DeleteAge)
	days := int(p.opts.DeleteAge.Hours() / 24)

	for _, rec := range files {
		if ctx.Err() != nil {
			break
		}

		entry := p.newEntry(run, rec.SourcePath, rec.FileName, archivePath)

		name, err := memberName(key.SourceRoot, rec.SourcePath)
		if err != nil {
			entry.Outcome = domain.OutcomeError
			entry.Status = fmt.Sprintf("ERROR (Archiving failed): %s", oneLine(err))
			p.emit(entry)
			sum.Failed++
			continue
		}

		if arc.Has(name) {
			entry.Outcome = domain.OutcomeSkipped
			entry.Status = "SKIPPED (Already in archive)"
			p.emit(entry)
			sum.Skipped++
			continue
		}

		n, err := arc.Add(rec.SourcePath, name, rec.ModifiedAt)
		if err != nil {
			entry.Outcome = domain.OutcomeError
			entry.Status = fmt.Sprintf("ERROR (Archiving failed): %s", oneLine(err))
			p.emit(entry)
			p.logf("  - ERROR archiving %s: %s", rec.FileName, oneLine(err))
			sum.Failed++
			continue
		}

		entry.Outcome = domain.OutcomeSuccess
		entry.Status = "SUCCESS (Archived)"
		sum.Processed++
		sum.Bytes += n

		if p.opts.Action == domain.ActionMove {
			if !rec.ModifiedAt.After(threshold) {
				p.removeSource(&entry, rec.SourcePath, &sum)
			} else {
				entry.Status += fmt.Sprintf(" (Move SKIPPED, not older than %d days)", days)
			}
		}
		p.emit(entry)
	}

	if err := arc.Close(); err != nil {
		p.critical(run, key, archiveName, archivePath, err)
		sum.Failed++
		return sum
	}

	if sum.Processed > 0 {
		p.logf("  - Successfully completed %s %d files to: %s", strings.ToLower(verb), sum.Processed, archivePath)
	}
	return sum
}

// critical logs a group-level archive failure once
func (p *Processor) critical(run domain.Run, key domain.GroupKey, archiveName, archivePath string, err error) {
	entry := p.newEntry(run, key.SourceRoot, archiveName, archivePath)
	entry.Outcome = domain.OutcomeCritical
	entry.Status = fmt.Sprintf("CRITICAL ERROR (Archive Failed): %s", oneLine(err))
	p.emit(entry)
	p.logf("  - CRITICAL ERROR during archiving %s: %s", key.SourceRoot, oneLine(err))
}

// memberName is the slash-separated path of the file relative to its source root
func memberName(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
