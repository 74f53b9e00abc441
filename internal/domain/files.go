package domain

import (
	"path/filepath"
	"time"
)

// Layouts used to derive group keys from modification times
const (
	CopyBucketLayout    = "2006/01/02/15"
	ArchiveBucketLayout = "2006/01"
	ArchiveNameLayout   = "20060102"
)

// FileRecord describes one discovered source file within a run
type FileRecord struct {
	SourceRoot      string
	SourcePath      string
	FileName        string
	ModifiedAt      time.Time
	RelativeSubPath string
}

// GroupKey identifies one output unit: a target directory in copy mode,
// a tar archive in archive mode
type GroupKey struct {
	SourceRoot    string
	TimeBucket    string
	Discriminator string
}

// KeyFor computes the group a file belongs to under the given mode.
// Buckets use local time and the OS path separator.
func KeyFor(mode Mode, rec FileRecord) GroupKey {
	mod := rec.ModifiedAt.Local()
	switch mode {
	case ModeArchive:
		return GroupKey{
			SourceRoot:    rec.SourceRoot,
			TimeBucket:    filepath.FromSlash(mod.Format(ArchiveBucketLayout)),
			Discriminator: mod.Format(ArchiveNameLayout),
		}
	default:
		return GroupKey{
			SourceRoot:    rec.SourceRoot,
			TimeBucket:    filepath.FromSlash(mod.Format(CopyBucketLayout)),
			Discriminator: rec.RelativeSubPath,
		}
	}
}

// Less orders keys by source root, then bucket, then discriminator
func (k GroupKey) Less(o GroupKey) bool {
	if k.SourceRoot != o.SourceRoot {
		return k.SourceRoot < o.SourceRoot
	}
	if k.TimeBucket != o.TimeBucket {
		return k.TimeBucket < o.TimeBucket
	}
	return k.Discriminator < o.Discriminator
}

// RootName is the directory name of the source root, used as the first
// path segment below the target root
func (k GroupKey) RootName() string {
	return filepath.Base(k.SourceRoot)
}
