package skills

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// VocabularyTerm is one entry of the fixed skills vocabulary
type VocabularyTerm struct {
	Term  string `yaml:"term"`
	Label string `yaml:"label,omitempty"`
}

type vocabularyFile struct {
	Terms []VocabularyTerm `yaml:"terms"`
}

// Vocabulary is a compiled set of known skill terms
type Vocabulary struct {
	pattern *regexp.Regexp
	labels  map[string]string
}

// DefaultVocabulary returns the vocabulary shipped with the binary
func DefaultVocabulary() (*Vocabulary, error) {
	return ParseVocabulary(defaultVocabulary)
}

// LoadVocabulary reads a YAML vocabulary from path, or the built-in one when path is empty
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file %s: %w", path, err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary compiles a YAML vocabulary document
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	return NewVocabulary(file.Terms)
}

// NewVocabulary compiles terms into a single case-insensitive, word-anchored pattern.
// Longer terms are tried first so "power bi" wins over a shorter overlapping term.
func NewVocabulary(terms []VocabularyTerm) (*Vocabulary, error) {
	titler := cases.Title(language.English)
	labels := make(map[string]string, len(terms))
	keys := make([]string, 0, len(terms))

	for _, t := range terms {
		key := strings.ToLower(strings.TrimSpace(t.Term))
		if key == "" {
			continue
		}
		if _, dup := labels[key]; dup {
			continue
		}
		label := strings.TrimSpace(t.Label)
		if label == "" {
			label = titler.String(key)
		}
		labels[key] = label
		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("vocabulary has no terms")
	}

	sort.SliceStable(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}

	pattern, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile vocabulary pattern: %w", err)
	}

	return &Vocabulary{pattern: pattern, labels: labels}, nil
}

// Len returns the number of distinct terms
func (v *Vocabulary) Len() int {
	return len(v.labels)
}

// Label returns the display form for a matched term
func (v *Vocabulary) Label(term string) string {
	if label, ok := v.labels[strings.ToLower(term)]; ok {
		return label
	}
	return term
}
