package archive

import (
	"archive/tar"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/disiqueira/gotree/v3"
)

// Member describes one entry of a tar archive
type Member struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// List reads the members of the archive at path in stored order
func List(archivePath string) ([]Member, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tr := tar.NewReader(f)
	var members []Member
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return members, nil
		}
		if err != nil {
			return nil, err
		}
		members = append(members, Member{
			Name:    hdr.Name,
			Size:    hdr.Size,
			ModTime: hdr.ModTime,
		})
	}
}

// Tree renders member names as a directory tree rooted at label
func Tree(label string, members []Member) string {
	root := gotree.New(label)
	dirs := make(map[string]gotree.Tree)

	var dirFor func(dir string) gotree.Tree
	dirFor = func(dir string) gotree.Tree {
		if dir == "." || dir == "/" || dir == "" {
			return root
		}
		if t, ok := dirs[dir]; ok {
			return t
		}
		t := dirFor(path.Dir(dir)).Add(path.Base(dir))
		dirs[dir] = t
		return t
	}

	for _, m := range members {
		name := strings.TrimSuffix(m.Name, "/")
		if name != m.Name {
			dirFor(name)
			continue
		}
		dirFor(path.Dir(name)).Add(path.Base(name))
	}
	return root.Print()
}
