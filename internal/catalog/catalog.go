// Package catalog loads the item catalog that maps numeric item identifiers to
// display names.
//
// The catalog resource is plain text, one entry per line, fields separated by
// a pipe:
//
//	12|Chess
//	7|Guitar
//	31
//
// Field 0 must be a base-10 integer; lines where it is empty or non-numeric are
// skipped. Field 1 is the display name and defaults to the literal text of
// field 0 when absent, so an unnamed entry prints as its identifier.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const fieldSeparator = "|"

// Catalog is an immutable identifier to display-name mapping.
// The zero value is an empty catalog.
type Catalog struct {
	names map[int]string
}

// Entry is a single catalog row.
type Entry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Parse reads catalog text from r. Malformed lines are skipped; an error is
// returned only when r itself fails.
func Parse(r io.Reader) (Catalog, error) {
	names := make(map[int]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		id, name, ok := parseLine(line)
		if !ok {
			continue
		}
		names[id] = name
	}
	if err := scanner.Err(); err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	return Catalog{names: names}, nil
}

// ParseString parses catalog text held in memory.
func ParseString(text string) Catalog {
	// strings.Reader never fails, so neither does Parse.
	c, _ := Parse(strings.NewReader(text))
	return c
}

// parseLine splits one catalog line into its identifier and name.
func parseLine(line string) (int, string, bool) {
	parts := strings.Split(strings.TrimSpace(line), fieldSeparator)
	raw := parts[0]
	if raw == "" {
		return 0, "", false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, "", false
	}

	name := raw
	if len(parts) > 1 && parts[1] != "" {
		name = parts[1]
	}
	return id, name, true
}

// Lookup returns the display name for id.
func (c Catalog) Lookup(id int) (string, bool) {
	name, ok := c.names[id]
	return name, ok
}

// Resolve maps an identifier as it appears in a save document to a display
// name. Text that is not an integer, or an integer missing from the catalog,
// is returned verbatim.
func (c Catalog) Resolve(raw string) string {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if name, ok := c.Lookup(id); ok {
		return name
	}
	return raw
}

// Len returns the number of entries.
func (c Catalog) Len() int {
	return len(c.names)
}

// Entries returns all entries ordered by identifier.
func (c Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.names))
	for id, name := range c.names {
		out = append(out, Entry{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
