// Package labels loads and queries the class-id to gesture-name table.
package labels

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Map is an injective mapping from class ids to gesture names. It is loaded
// once at startup and read-only afterwards, so it is safe to share.
type Map struct {
	names map[int]string
	ids   []int // ascending, fixes the scan order for Find
}

// Load reads a label map JSON file of the form {"0": "wave", "1": "pinch"}.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label map: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse label map %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("label map %s is empty", path)
	}

	m := &Map{names: make(map[int]string, len(raw))}
	for k, name := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("label map %s: class id %q is not an integer", path, k)
		}
		if id < 0 {
			return nil, fmt.Errorf("label map %s: class id %d is negative", path, id)
		}
		m.names[id] = name
		m.ids = append(m.ids, id)
	}
	sort.Ints(m.ids)

	return m, nil
}

// FromNames builds a Map directly from an id-to-name table. Used by tests
// and callers that obtain labels from elsewhere than a JSON file.
func FromNames(names map[int]string) *Map {
	m := &Map{names: make(map[int]string, len(names))}
	for id, name := range names {
		m.names[id] = name
		m.ids = append(m.ids, id)
	}
	sort.Ints(m.ids)
	return m
}

// Len returns the number of classes.
func (m *Map) Len() int {
	return len(m.ids)
}

// Name resolves a class id to its gesture name, falling back to the
// stringified id for unmapped classes.
func (m *Map) Name(id int) string {
	if name, ok := m.names[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

// Find scans for a gesture by name, case-insensitively, in ascending class-id
// order. The first match wins; there is no tie-breaking beyond scan order.
func (m *Map) Find(name string) (int, bool) {
	for _, id := range m.ids {
		if strings.EqualFold(m.names[id], name) {
			return id, true
		}
	}
	return 0, false
}
