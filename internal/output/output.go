package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// HTMLFile is the name of the page file written for each route.
	HTMLFile = "index.html"

	// DataFile is the name of the page data file written next to HTMLFile.
	DataFile = "page-data.json"

	dirPerm  = 0o755
	filePerm = 0o644
)

// WritePage writes html to dir/index.html and, if data is present, its JSON
// encoding to dir/page-data.json. dir is created if missing.
//
// Data counts as present unless it encodes to null, false, a zero number or
// "". An existing page-data.json is left alone when data is absent.
func WritePage(dir, html string, data any) (htmlFile string, hasData bool, err error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", false, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	htmlFile = filepath.Join(dir, HTMLFile)
	if err := os.WriteFile(htmlFile, []byte(html), filePerm); err != nil {
		return "", false, fmt.Errorf("failed to write %s: %w", htmlFile, err)
	}

	payload, err := EncodeData(data)
	if err != nil {
		return "", false, err
	}
	if payload == nil {
		return htmlFile, false, nil
	}

	dataFile := filepath.Join(dir, DataFile)
	if err := os.WriteFile(dataFile, payload, filePerm); err != nil {
		return "", false, fmt.Errorf("failed to write %s: %w", dataFile, err)
	}
	return htmlFile, true, nil
}

// RemoveData deletes dir/page-data.json. A missing file is not an error.
func RemoveData(dir string) error {
	dataFile := filepath.Join(dir, DataFile)
	if err := os.Remove(dataFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale %s: %w", dataFile, err)
	}
	return nil
}

// EncodeData returns the JSON encoding of data, or nil if data is absent.
//
// json.RawMessage values are validated and compacted rather than re-encoded,
// so key order chosen by the producer survives.
func EncodeData(data any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}

	var encoded []byte
	switch v := data.(type) {
	case json.RawMessage:
		if len(bytes.TrimSpace(v)) == 0 {
			return nil, nil
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, fmt.Errorf("invalid page data: %w", err)
		}
		encoded = buf.Bytes()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode page data: %w", err)
		}
		encoded = b
	}

	if isFalsy(encoded) {
		return nil, nil
	}
	return encoded, nil
}

// isFalsy reports whether a compact JSON document is one of the values a
// browser script would treat as "no data".
func isFalsy(b []byte) bool {
	switch string(b) {
	case "null", "false", `""`:
		return true
	}
	if len(b) == 0 || (b[0] != '-' && (b[0] < '0' || b[0] > '9')) {
		return false
	}
	f, err := strconv.ParseFloat(string(b), 64)
	return err == nil && f == 0
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// PatchFile rewrites path with the result of fn applied to its contents.
// A missing file is skipped and reported with patched == false.
func PatchFile(path string, fn func(content string) string) (patched bool, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(fn(string(content))), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
