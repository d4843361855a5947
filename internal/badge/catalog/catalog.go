// Package catalog maps opaque key codes to the human-readable descriptions
// printed on badges. A Catalog is built once at startup and never changes.
package catalog

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	id "badgeworks/pkg/domain"
)

// Catalog is an immutable key code → description mapping. The zero value is
// an empty catalog.
type Catalog struct {
	entries map[id.KeyCode]string
}

// Entry is one catalog row, used when listing.
type Entry struct {
	Code        id.KeyCode `json:"code"`
	Description string     `json:"description"`
}

// New builds a catalog from a copy of entries. Codes and descriptions are
// trimmed; blank codes are rejected.
func New(entries map[string]string) (*Catalog, error) {
	c := &Catalog{entries: make(map[id.KeyCode]string, len(entries))}
	for code, desc := range entries {
		code = strings.TrimSpace(code)
		if code == "" {
			return nil, fmt.Errorf("catalog: blank key code")
		}
		c.entries[id.KeyCode(code)] = strings.TrimSpace(desc)
	}
	return c, nil
}

// Load reads a flat key-value document from path. YAML and JSON are both
// accepted since JSON is a subset of YAML.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a flat key-value document.
func Parse(raw []byte) (*Catalog, error) {
	var entries map[string]string
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog: no entries")
	}
	return New(entries)
}

// Describe returns the description for code, or code itself when unknown.
func (c *Catalog) Describe(code id.KeyCode) string {
	if c != nil {
		if desc, ok := c.entries[code]; ok {
			return desc
		}
	}
	return string(code)
}

// Contains reports whether code is a known key code.
func (c *Catalog) Contains(code id.KeyCode) bool {
	if c == nil {
		return false
	}
	_, ok := c.entries[code]
	return ok
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns all entries sorted by code.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, len(c.entries))
	for code, desc := range c.entries {
		out = append(out, Entry{Code: code, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
