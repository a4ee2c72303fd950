package graph

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Override is one entry of the curated alias override list. Overrides are
// consulted before learned aliases and fuzzy matching, and every entry
// carries a reason string for observability.
type Override struct {
	Alias  string `yaml:"alias" json:"alias"`
	Table  string `yaml:"table" json:"table"`
	Reason string `yaml:"reason" json:"reason"`
}

type aliasEntry struct {
	canonical string
	seq       int // insertion order; higher means more recently learned
}

// AliasEntry is the exported view of one learned alias, used by fuzzy matching.
type AliasEntry struct {
	Alias     string
	Canonical string
	Seq       int
}

// AliasMap maps lower-cased alias strings to canonical table identifiers.
// It is populated during knowledge-graph construction and consulted
// read-only during query handling; aliases are never learned at resolution
// time and never silently overwritten.
type AliasMap struct {
	entries   map[string]aliasEntry
	overrides map[string]Override
	nextSeq   int
}

// NewAliasMap creates an empty alias map.
func NewAliasMap() *AliasMap {
	return &AliasMap{
		entries:   make(map[string]aliasEntry),
		overrides: make(map[string]Override),
	}
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func normalizeAlias(s string) string {
	return whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Learn adds an alias -> canonical mapping. If the alias already maps to a
// different canonical identifier, the existing mapping is kept and Learn
// returns false; changing an existing mapping requires an Override.
func (m *AliasMap) Learn(alias, canonical string) bool {
	key := normalizeAlias(alias)
	if key == "" {
		return false
	}
	if existing, ok := m.entries[key]; ok {
		return strings.EqualFold(existing.canonical, canonical)
	}
	m.entries[key] = aliasEntry{canonical: canonical, seq: m.nextSeq}
	m.nextSeq++
	return true
}

// SetOverrides installs the curated override list.
func (m *AliasMap) SetOverrides(overrides []Override) {
	for _, o := range overrides {
		m.overrides[normalizeAlias(o.Alias)] = o
	}
}

// Lookup resolves a term exactly: overrides first, then learned aliases.
// Matching is case-insensitive and whitespace-insensitive.
func (m *AliasMap) Lookup(term string) (string, bool) {
	key := normalizeAlias(term)
	if o, ok := m.overrides[key]; ok {
		return o.Table, true
	}
	if e, ok := m.entries[key]; ok {
		return e.canonical, true
	}
	return "", false
}

// OverrideFor returns the override entry matched by a term, if any.
// Callers use the Reason field for observability.
func (m *AliasMap) OverrideFor(term string) (Override, bool) {
	o, ok := m.overrides[normalizeAlias(term)]
	return o, ok
}

// Entries returns all learned aliases. Order is unspecified; callers that
// need determinism sort by Alias.
func (m *AliasMap) Entries() []AliasEntry {
	out := make([]AliasEntry, 0, len(m.entries))
	for alias, e := range m.entries {
		out = append(out, AliasEntry{Alias: alias, Canonical: e.canonical, Seq: e.seq})
	}
	return out
}

// Len returns the number of learned aliases.
func (m *AliasMap) Len() int {
	return len(m.entries)
}

type overridesFile struct {
	Overrides []Override `yaml:"overrides"`
}

// LoadOverrides reads the curated alias override list from a YAML file.
func LoadOverrides(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse overrides file: %w", err)
	}

	for i, o := range file.Overrides {
		if o.Alias == "" || o.Table == "" {
			return nil, fmt.Errorf("override %d: alias and table are required", i)
		}
	}
	return file.Overrides, nil
}
