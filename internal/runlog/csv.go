package runlog

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hochfrequenz/se-arch/internal/domain"
)

// DefaultPrefix is the file name prefix of daily log files
const DefaultPrefix = "se-arch_log_"

// DailyCSV appends entries to <dir>/<prefix><yyMMdd>.csv, one file per
// calendar day of writing. Every field is quoted and a header row is
// written when the file is created.
type DailyCSV struct {
	dir    string
	prefix string
	now    func() time.Time
	mu     sync.Mutex
}

// NewDailyCSV creates a daily CSV sink in dir
func NewDailyCSV(dir, prefix string) *DailyCSV {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &DailyCSV{dir: dir, prefix: prefix, now: time.Now}
}

// Path returns the log file used for the given day
func (d *DailyCSV) Path(day time.Time) string {
	return filepath.Join(d.dir, d.prefix+day.Format("060102")+".csv")
}

// Write appends one row, creating the file and header when needed
func (d *DailyCSV) Write(entry domain.LogEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return err
	}

	path := d.Path(d.now())
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if isNew {
		writeRow(w, domain.LogHeader)
	}
	writeRow(w, entry.Row())

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeRow writes fields with quoting on every field. encoding/csv only
// quotes when a field requires it.
func writeRow(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteString("\r\n")
}
