package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hochfrequenz/se-arch/internal/domain"
)

// copyGroup copies every file of the group into
// target/<root name>/<hour bucket>/<relative sub path>/. With the move
// action the source is deleted after each successful copy, regardless of age.
func (p *Processor) copyGroup(ctx context.Context, run domain.Run, key domain.GroupKey, files []domain.FileRecord) domain.Summary {
	var sum domain.Summary
	targetDir := filepath.Join(p.opts.TargetRoot, key.RootName(), key.TimeBucket, key.Discriminator)

	for _, rec := range files {
		if ctx.Err() != nil {
			break
		}

		targetPath := filepath.Join(targetDir, rec.FileName)
		entry := p.newEntry(run, rec.SourcePath, rec.FileName, targetPath)

		n, err := copyFile(rec.SourcePath, targetPath)
		if err != nil {
			entry.Outcome = domain.OutcomeError
			entry.Status = fmt.Sprintf("ERROR (%s failed): %s", p.opts.Action.Title(), oneLine(err))
			p.emit(entry)
			p.logf("  - ERROR processing %s: %s", rec.SourcePath, oneLine(err))
			sum.Failed++
			continue
		}

		entry.Outcome = domain.OutcomeSuccess
		entry.Status = "SUCCESS (Copied)"
		sum.Processed++
		sum.Bytes += n

		if p.opts.Action == domain.ActionMove {
			p.removeSource(&entry, rec.SourcePath, &sum)
		}
		p.emit(entry)
		p.logf("  - %s: %s -> %s", p.opts.Action.Title(), displayName(rec), targetPath)
	}
	return sum
}

// copyFile copies content, permission bits and modification time of src to
// dst, creating dst's directory as needed
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	if err := out.Close(); err != nil {
		return n, err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return n, err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return n, err
	}
	return n, nil
}

func displayName(rec domain.FileRecord) string {
	if rec.RelativeSubPath == "." {
		return rec.FileName
	}
	return filepath.Join(rec.RelativeSubPath, rec.FileName)
}
