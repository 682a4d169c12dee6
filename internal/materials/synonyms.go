package materials

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed synonyms.yaml
var defaultSynonymsYAML []byte

type tableEntry struct {
	Canonical string   `yaml:"canonical"`
	Synonyms  []string `yaml:"synonyms"`
}

type compiledEntry struct {
	canonical string
	patterns  []*regexp.Regexp
}

// SynonymTable maps raw material spellings to canonical names. Entries
// are ordered; lookup returns the first entry with a matching synonym so
// results stay deterministic across runs and table revisions.
type SynonymTable struct {
	entries []compiledEntry
}

// DefaultSynonyms loads the embedded table.
func DefaultSynonyms() (*SynonymTable, error) {
	return parseSynonyms(defaultSynonymsYAML)
}

// LoadSynonymsFile loads a table from an operator-provided YAML file,
// falling back to the embedded table when path is empty.
func LoadSynonymsFile(path string) (*SynonymTable, error) {
	if path == "" {
		return DefaultSynonyms()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms file: %w", err)
	}
	return parseSynonyms(raw)
}

func parseSynonyms(raw []byte) (*SynonymTable, error) {
	var entries []tableEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("synonym table is empty")
	}
	table := &SynonymTable{entries: make([]compiledEntry, 0, len(entries))}
	for _, e := range entries {
		if e.Canonical == "" || len(e.Synonyms) == 0 {
			return nil, fmt.Errorf("synonym entry %q must have a canonical name and synonyms", e.Canonical)
		}
		ce := compiledEntry{canonical: e.Canonical}
		for _, s := range e.Synonyms {
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(s) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("compile synonym %q: %w", s, err)
			}
			ce.patterns = append(ce.patterns, re)
		}
		table.entries = append(table.entries, ce)
	}
	return table, nil
}

// Canonical returns the canonical name for a cleaned, lower-cased
// phrase, or false when no synonym matches.
func (t *SynonymTable) Canonical(cleaned string) (string, bool) {
	for _, e := range t.entries {
		for _, re := range e.patterns {
			if re.MatchString(cleaned) {
				return e.canonical, true
			}
		}
	}
	return "", false
}
