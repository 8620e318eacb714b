package hydrate

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
)

// nameVariants returns name as declared, in snake_case, camelCase and
// StudlyCase, without duplicates.
func nameVariants(name string) []string {
	candidates := []string{name, strcase.ToSnake(name), strcase.ToLowerCamel(name), strcase.ToCamel(name)}
	out := candidates[:0]
	for _, c := range candidates {
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// lookupDirect tries each variant as an exact key and then as a dotted path
// against the unflattened payload. Null values count as absent.
func lookupDirect(payload map[string]any, variants []string) (any, bool) {
	for _, key := range variants {
		if v, ok := payload[key]; ok && v != nil {
			return v, true
		}
		if v, ok := lookupPath(payload, key); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// lookupPath walks a dotted path through nested mappings and sequences.
func lookupPath(root map[string]any, path string) (any, bool) {
	if !strings.Contains(path, ".") {
		return nil, false
	}
	var current any = root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

type flatEntry struct {
	key   string
	last  string
	depth int
	value any
}

// flatten lists every leaf of the payload under its dotted path. Empty
// mappings and sequences are leaves. Entries are ordered shallowest first,
// then by key, so lookups are deterministic.
func flatten(payload map[string]any) []flatEntry {
	var entries []flatEntry
	var walk func(prefix string, depth int, node any)
	walk = func(prefix string, depth int, node any) {
		switch v := node.(type) {
		case map[string]any:
			if len(v) > 0 {
				for k, child := range v {
					walk(joinKey(prefix, k), depth+1, child)
				}
				return
			}
		case []any:
			if len(v) > 0 {
				for i, child := range v {
					walk(joinKey(prefix, strconv.Itoa(i)), depth+1, child)
				}
				return
			}
		}
		if prefix == "" {
			return
		}
		last := prefix
		if i := strings.LastIndexByte(prefix, '.'); i >= 0 {
			last = prefix[i+1:]
		}
		entries = append(entries, flatEntry{key: prefix, last: last, depth: depth, value: node})
	}
	walk("", 0, payload)

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].depth != entries[j].depth {
			return entries[i].depth < entries[j].depth
		}
		return entries[i].key < entries[j].key
	})
	return entries
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// lookupFlat returns the first non-null leaf whose last path segment is one
// of the variants.
func lookupFlat(entries []flatEntry, variants []string) (any, bool) {
	for _, e := range entries {
		if e.value != nil && slices.Contains(variants, e.last) {
			return e.value, true
		}
	}
	return nil, false
}
