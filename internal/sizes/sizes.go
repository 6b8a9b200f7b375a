package sizes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/olekukonko/tablewriter"
)

// measured lists the file extensions included in a [Snapshot].
var measured = map[string]bool{
	".js":   true,
	".css":  true,
	".html": true,
	".json": true,
}

// Snapshot maps slash-separated paths relative to the measured root to their
// gzipped size in bytes.
type Snapshot map[string]int64

// Measure walks root and records the gzipped size of every measured file.
// A missing root yields an empty snapshot.
func Measure(root string) (Snapshot, error) {
	snap := make(Snapshot)

	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return snap, nil
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !measured[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		size, err := GzipSize(content)
		if err != nil {
			return fmt.Errorf("failed to gzip %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		snap[filepath.ToSlash(rel)] = size
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to measure %s: %w", root, err)
	}
	return snap, nil
}

// GzipSize returns the size of content after gzip at best compression.
func GzipSize(content []byte) (int64, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return 0, err
	}
	if _, err := zw.Write(content); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}

// Entry is one row of a size comparison.
type Entry struct {
	File string
	Size int64
	Diff int64
	New  bool
}

// Compare lists every file in after with its change relative to before,
// largest first.
func Compare(after, before Snapshot) []Entry {
	entries := make([]Entry, 0, len(after))
	for file, size := range after {
		prev, existed := before[file]
		entries = append(entries, Entry{
			File: file,
			Size: size,
			Diff: size - prev,
			New:  !existed,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Size != entries[j].Size {
			return entries[i].Size > entries[j].Size
		}
		return entries[i].File < entries[j].File
	})
	return entries
}

// Print writes a table of sizes in after, with changes against before.
// Files are shown joined to displayRoot.
func Print(w io.Writer, after, before Snapshot, displayRoot string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Size", "Change", "File"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, e := range Compare(after, before) {
		table.Append([]string{
			humanize.Bytes(uint64(e.Size)),
			formatDiff(e),
			filepath.ToSlash(filepath.Join(displayRoot, e.File)),
		})
	}
	table.Render()
}

func formatDiff(e Entry) string {
	switch {
	case e.New:
		return "new"
	case e.Diff > 0:
		return "+" + humanize.Bytes(uint64(e.Diff))
	case e.Diff < 0:
		return "-" + humanize.Bytes(uint64(-e.Diff))
	default:
		return ""
	}
}
