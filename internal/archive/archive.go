package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const blockSize = 512

// Archive is a tar file opened for appending. Existing member names are
// read once on open so callers can skip files that are already present.
type Archive struct {
	path    string
	f       *os.File
	tw      *tar.Writer
	members map[string]struct{}
	created bool
}

// Open opens the tar at path for appending, creating it (and its parent
// directories) when it does not exist yet.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return nil, err
		}
		return &Archive{
			path:    path,
			f:       f,
			tw:      tar.NewWriter(f),
			members: make(map[string]struct{}),
			created: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	members, end, err := scan(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// Drop the end-of-archive marker so new entries follow the last member.
	if err := f.Truncate(end); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(end, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	return &Archive{
		path:    path,
		f:       f,
		tw:      tar.NewWriter(f),
		members: members,
	}, nil
}

// Path returns the archive location
func (a *Archive) Path() string {
	return a.path
}

// Created reports whether Open created a new archive
func (a *Archive) Created() bool {
	return a.created
}

// Has reports whether a member with the given name exists
func (a *Archive) Has(name string) bool {
	_, ok := a.members[name]
	return ok
}

// Members returns the sorted member names
func (a *Archive) Members() []string {
	names := make([]string, 0, len(a.members))
	for name := range a.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add appends the regular file at sourcePath as member name with the given
// modification time and returns the number of content bytes written.
func (a *Archive) Add(sourcePath, name string, modTime time.Time) (int64, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", sourcePath)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return 0, err
	}
	hdr.Name = name
	hdr.ModTime = modTime.Truncate(time.Second)

	return a.add(hdr, f)
}

// add writes one entry. A failure after the header went out truncates the
// file back to where the entry started, so earlier members stay readable
// and later entries can still be appended.
func (a *Archive) add(hdr *tar.Header, r io.Reader) (int64, error) {
	off, err := a.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	n, err := a.write(hdr, r)
	if err != nil {
		if rbErr := a.rollback(off); rbErr != nil {
			return n, errors.Join(err, fmt.Errorf("rolling back %s: %w", a.path, rbErr))
		}
		return n, err
	}

	a.members[hdr.Name] = struct{}{}
	return n, nil
}

func (a *Archive) write(hdr *tar.Header, r io.Reader) (int64, error) {
	if err := a.tw.WriteHeader(hdr); err != nil {
		return 0, err
	}
	n, err := io.CopyN(a.tw, r, hdr.Size)
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", hdr.Name, err)
	}
	return n, a.tw.Flush()
}

func (a *Archive) rollback(off int64) error {
	if err := a.f.Truncate(off); err != nil {
		return err
	}
	if _, err := a.f.Seek(off, io.SeekStart); err != nil {
		return err
	}
	a.tw = tar.NewWriter(a.f)
	return nil
}

// Close writes the end-of-archive marker and closes the file
func (a *Archive) Close() error {
	twErr := a.tw.Close()
	fErr := a.f.Close()
	if twErr != nil {
		return twErr
	}
	return fErr
}

// scan reads all headers and returns the member names together with the
// offset just past the last member's data.
func scan(r io.Reader) (map[string]struct{}, int64, error) {
	cr := &countingReader{r: r}
	tr := tar.NewReader(cr)
	members := make(map[string]struct{})

	var end int64
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return members, end, nil
		}
		if err != nil {
			return nil, 0, err
		}
		members[hdr.Name] = struct{}{}
		end = cr.n + padded(dataSize(hdr))
	}
}

func dataSize(hdr *tar.Header) int64 {
	switch hdr.Typeflag {
	case tar.TypeLink, tar.TypeSymlink, tar.TypeChar, tar.TypeBlock, tar.TypeDir, tar.TypeFifo:
		return 0
	}
	return hdr.Size
}

func padded(n int64) int64 {
	if rem := n % blockSize; rem != 0 {
		return n + blockSize - rem
	}
	return n
}

// countingReader tracks how many bytes the tar reader consumed. It does not
// implement io.Seeker so the reader never skips ahead without counting.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
