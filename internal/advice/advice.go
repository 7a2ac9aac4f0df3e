// Package advice holds the static remedies and cautions shown next to a
// prediction.
package advice

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Entry struct {
	Remedies []string `json:"remedies" yaml:"remedies"`
	Cautions []string `json:"cautions" yaml:"cautions"`
}

func (e Entry) Empty() bool {
	return len(e.Remedies) == 0 && len(e.Cautions) == 0
}

func (e Entry) clone() Entry {
	return Entry{
		Remedies: append([]string{}, e.Remedies...),
		Cautions: append([]string{}, e.Cautions...),
	}
}

// Table is read-only once built and safe for concurrent use.
type Table struct {
	entries map[string]Entry
}

// New builds a table from entries. The map is copied.
func New(entries map[string]Entry) *Table {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for label, e := range entries {
		t.entries[label] = e.clone()
	}
	return t
}

func Default() *Table {
	return New(builtin)
}

// Lookup is total: a label without content yields an Entry whose Remedies and
// Cautions are empty, non-nil slices. A gap in the table must never keep the
// prediction itself from being shown.
func (t *Table) Lookup(label string) Entry {
	if t == nil {
		return Entry{}.clone()
	}
	return t.entries[label].clone()
}

// Missing returns the labels from classes that have no content.
func (t *Table) Missing(classes []string) []string {
	var missing []string
	for _, label := range classes {
		if t.Lookup(label).Empty() {
			missing = append(missing, label)
		}
	}
	return missing
}

// Merge returns a new table where entries from other replace entries of t
// with the same label.
func (t *Table) Merge(other map[string]Entry) *Table {
	merged := make(map[string]Entry, len(t.entries)+len(other))
	for label, e := range t.entries {
		merged[label] = e
	}
	for label, e := range other {
		merged[label] = e
	}
	return New(merged)
}

// LoadFile reads a YAML document of the form
//
//	Psoriasis:
//	  remedies: [...]
//	  cautions: [...]
//
// and merges it over the built-in table.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read advice file: %w", err)
	}

	var entries map[string]Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse advice file: %w", err)
	}
	return Default().Merge(entries), nil
}
