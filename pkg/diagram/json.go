package diagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Marshal encodes d as indented JSON.
func Marshal(d Diagram) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes d as indented JSON to w.
func Write(d Diagram, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes d as JSON to path.
func WriteFile(d Diagram, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(d, f)
}

// Read decodes a JSON diagram from r. Tables are re-sorted by name so
// lookups work on hand-edited files.
func Read(r io.Reader) (Diagram, error) {
	var d Diagram
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Diagram{}, fmt.Errorf("decode: %w", err)
	}
	slices.SortFunc(d.Tables, func(a, b Table) int { return strings.Compare(a.Name, b.Name) })
	sortRelations(d.Relations)
	return d, nil
}

// Unmarshal decodes a JSON diagram from data.
func Unmarshal(data []byte) (Diagram, error) {
	return Read(bytes.NewReader(data))
}

// ReadFile reads a JSON diagram from path.
func ReadFile(path string) (Diagram, error) {
	f, err := os.Open(path)
	if err != nil {
		return Diagram{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
