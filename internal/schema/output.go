package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSuffix is appended to the table name to form the output file name.
const FileSuffix = ".schema.json"

// Marshal encodes doc with two-space indentation. Non-ASCII and HTML
// characters are written literally and there is no trailing newline, so
// identical documents always produce identical bytes.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// FileName returns the output file name for table.
func FileName(table string) string {
	return table + FileSuffix
}

// WriteFile writes doc for table into dir and returns the file path.
func WriteFile(dir, table string, doc *Document) (string, error) {
	data, err := Marshal(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(table))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// LoadFile reads a document written by WriteFile.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return doc, nil
}
