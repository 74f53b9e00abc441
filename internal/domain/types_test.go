package domain

import (
	"path/filepath"
	"testing"
	"time"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"copy", ModeCopy, false},
		{"archive", ModeArchive, false},
		{"ARCHIVE", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	if a, err := ParseAction("move"); err != nil || a != ActionMove {
		t.Errorf("ParseAction(move) = %q, %v", a, err)
	}
	if _, err := ParseAction("delete"); err == nil {
		t.Error("ParseAction(delete) should error")
	}
	if ActionMove.Title() != "Move" || ActionCopy.Title() != "Copy" {
		t.Errorf("unexpected titles %q %q", ActionMove.Title(), ActionCopy.Title())
	}
}

func TestKeyFor(t *testing.T) {
	mod := time.Date(2025, 3, 7, 14, 25, 0, 0, time.Local)
	rec := FileRecord{
		SourceRoot:      "/data/in",
		SourcePath:      "/data/in/sub/a.log",
		FileName:        "a.log",
		ModifiedAt:      mod,
		RelativeSubPath: "sub",
	}

	copyKey := KeyFor(ModeCopy, rec)
	if copyKey.TimeBucket != filepath.FromSlash("2025/03/07/14") {
		t.Errorf("copy bucket = %q", copyKey.TimeBucket)
	}
	if copyKey.Discriminator != "sub" {
		t.Errorf("copy discriminator = %q, want sub", copyKey.Discriminator)
	}

	archiveKey := KeyFor(ModeArchive, rec)
	if archiveKey.TimeBucket != filepath.FromSlash("2025/03") {
		t.Errorf("archive bucket = %q", archiveKey.TimeBucket)
	}
	if archiveKey.Discriminator != "20250307" {
		t.Errorf("archive discriminator = %q, want 20250307", archiveKey.Discriminator)
	}
	if archiveKey.RootName() != "in" {
		t.Errorf("RootName = %q, want in", archiveKey.RootName())
	}
}

func TestGroupKey_Less(t *testing.T) {
	a := GroupKey{SourceRoot: "/a", TimeBucket: "2025/01", Discriminator: "20250101"}
	b := GroupKey{SourceRoot: "/a", TimeBucket: "2025/01", Discriminator: "20250102"}
	c := GroupKey{SourceRoot: "/b", TimeBucket: "2024/12", Discriminator: "20241201"}

	if !a.Less(b) || b.Less(a) {
		t.Error("discriminator ordering broken")
	}
	if !b.Less(c) {
		t.Error("source root should order first")
	}
}

func TestLogEntry_Row(t *testing.T) {
	e := LogEntry{
		Timestamp:      time.Date(2025, 9, 26, 15, 52, 21, 0, time.Local),
		SourceFolder:   "/src/a.log",
		SourceFileName: "a.log",
		Target:         "/dst/a.log",
		Status:         "SUCCESS (Copied)",
	}
	row := e.Row()
	if len(row) != len(LogHeader) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(LogHeader))
	}
	if row[0] != "2025-09-26 15:52:21" {
		t.Errorf("timestamp column = %q", row[0])
	}
}

func TestSummary_Add(t *testing.T) {
	s := Summary{Processed: 1, Bytes: 10}
	s.Add(Summary{Processed: 2, Failed: 1, Bytes: 5})
	if s.Processed != 3 || s.Failed != 1 || s.Bytes != 15 {
		t.Errorf("unexpected summary %+v", s)
	}
}
