package textutil

import (
	"regexp"
	"sort"
	"strings"
)

var attrTokenRx = regexp.MustCompile(`(\S+)="([^"]*)"`)

// AttrMap is a case-insensitive attribute mapping for #EXTINF headers.
// Keys are stored lowercased; Get on a missing key returns "" so callers
// never have to distinguish "empty" from "not present".
type AttrMap struct {
	keys   []string // lowercased, first-seen order
	values map[string]string
}

// NewAttrMap returns an empty AttrMap ready for Set.
func NewAttrMap() AttrMap {
	return AttrMap{values: make(map[string]string)}
}

// ParseAttrs scans s for key="value" tokens (values may contain spaces but
// not unescaped double quotes) and returns them as an AttrMap.
func ParseAttrs(s string) AttrMap {
	m := NewAttrMap()
	for _, match := range attrTokenRx.FindAllStringSubmatch(s, -1) {
		m.Set(match[1], match[2])
	}
	return m
}

// Get returns the value for key (case-insensitive), "" when absent.
func (m AttrMap) Get(key string) string {
	if m.values == nil {
		return ""
	}
	return m.values[strings.ToLower(key)]
}

// Set stores value under the lowercased key, preserving first-seen order.
func (m *AttrMap) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	k := strings.ToLower(key)
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = value
}

// Has reports whether key is present, even with an empty value.
func (m AttrMap) Has(key string) bool {
	if m.values == nil {
		return false
	}
	_, ok := m.values[strings.ToLower(key)]
	return ok
}

// Len returns the number of stored keys.
func (m AttrMap) Len() int { return len(m.keys) }

// Clone returns an independent copy.
func (m AttrMap) Clone() AttrMap {
	out := AttrMap{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]string, len(m.values)),
	}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Map returns the attributes as a plain map (lowercased keys). The result is
// a copy; mutating it does not affect the AttrMap.
func (m AttrMap) Map() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Format serializes the attributes as space-joined key="value" tokens with
// keys in sorted order. Keys with empty values are omitted; embedded double
// quotes are backslash-escaped.
func (m AttrMap) Format() string {
	return FormatAttrs(m.values)
}

// FormatAttrs is Format for a plain map, used when attributes arrive from a
// deserialized fix operation rather than an AttrMap.
func FormatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.TrimSpace(attrs[k])
		if v == "" {
			continue
		}
		v = strings.ReplaceAll(v, `"`, `\"`)
		parts = append(parts, k+`="`+v+`"`)
	}
	return strings.Join(parts, " ")
}
