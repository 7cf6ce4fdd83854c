package skills

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"skillgap/internal/errors"
	"skillgap/internal/types"
)

// EvidenceRadius is how many characters of context are kept on each side of a match
const EvidenceRadius = 30

// DefaultThreshold is the minimum tagger score a mention needs
const DefaultThreshold = 0.3

// DefaultLabels are the entity labels requested from the tagger
var DefaultLabels = []string{
	"skill", "technology", "tool", "software",
	"programming language", "framework", "platform",
	"certification", "competency", "methodology",
}

// baseStopwords are never reported as skills
var baseStopwords = []string{
	"experience", "years", "strong", "skills", "knowledge",
	"proficient", "expert", "good", "excellent", "required",
	"must", "have", "should", "nice", "team", "work",
	"ability", "understanding", "background", "looking",
	"developer", "engineer", "and", "with", "using",
	"pursue", "excellence", "creation", "products",
}

// ExtractorOptions configures an Extractor
type ExtractorOptions struct {
	// Tagger is optional; without it only the vocabulary pass runs
	Tagger         Tagger
	Labels         []string
	Threshold      float64
	Vocabulary     *Vocabulary
	ExtraStopwords []string
	Logger         *errors.Logger
}

// Extractor finds raw skill mentions in free text.
// It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	tagger    Tagger
	labels    []string
	threshold float64
	vocab     *Vocabulary
	stopwords map[string]struct{}
	logger    *errors.Logger
}

// NewExtractor builds an Extractor, falling back to the built-in vocabulary
func NewExtractor(opts ExtractorOptions) (*Extractor, error) {
	vocab := opts.Vocabulary
	if vocab == nil {
		var err error
		if vocab, err = DefaultVocabulary(); err != nil {
			return nil, err
		}
	}

	labels := opts.Labels
	if len(labels) == 0 {
		labels = DefaultLabels
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	stopwords := make(map[string]struct{}, len(baseStopwords)+len(opts.ExtraStopwords))
	for _, w := range baseStopwords {
		stopwords[w] = struct{}{}
	}
	for _, w := range opts.ExtraStopwords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			stopwords[w] = struct{}{}
		}
	}

	return &Extractor{
		tagger:    opts.Tagger,
		labels:    labels,
		threshold: threshold,
		vocab:     vocab,
		stopwords: stopwords,
		logger:    opts.Logger,
	}, nil
}

// Extract returns de-duplicated mentions in discovery order: tagger hits first, then vocabulary hits
func (e *Extractor) Extract(ctx context.Context, text string) []types.Mention {
	if strings.TrimSpace(text) == "" {
		return []types.Mention{}
	}

	runes := []rune(text)
	seen := make(map[string]struct{})
	mentions := make([]types.Mention, 0)

	add := func(m types.Mention) {
		key := strings.ToLower(strings.TrimSpace(m.Text))
		if utf8.RuneCountInString(key) <= 1 {
			return
		}
		if _, stop := e.stopwords[key]; stop {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		m.Text = strings.TrimSpace(m.Text)
		mentions = append(mentions, m)
	}

	for _, m := range e.modelPass(ctx, text, runes) {
		add(m)
	}
	for _, m := range e.vocabularyPass(text, runes) {
		add(m)
	}

	return mentions
}

func (e *Extractor) modelPass(ctx context.Context, text string, runes []rune) []types.Mention {
	if e.tagger == nil {
		return nil
	}

	entities, err := e.tagger.Predict(ctx, text, e.labels, e.threshold)
	if err != nil {
		if e.logger != nil {
			e.logger.LogError(err, "Skill tagger failed, continuing with vocabulary only")
		}
		return nil
	}

	out := make([]types.Mention, 0, len(entities))
	for _, ent := range entities {
		if ent.Score < e.threshold || !e.requestedLabel(ent.Label) {
			continue
		}
		start, end := entitySpan(runes, ent)
		out = append(out, types.Mention{
			Text:     ent.Text,
			Source:   types.SourceModel,
			Score:    ent.Score,
			Evidence: evidenceWindow(runes, start, end),
		})
	}
	return out
}

// requestedLabel reports whether label is one the tagger was asked for.
// Entities without a label are kept.
func (e *Extractor) requestedLabel(label string) bool {
	if label == "" {
		return true
	}
	return slices.ContainsFunc(e.labels, func(l string) bool { return strings.EqualFold(l, label) })
}

func (e *Extractor) vocabularyPass(text string, runes []rune) []types.Mention {
	matches := e.vocab.pattern.FindAllStringIndex(text, -1)
	out := make([]types.Mention, 0, len(matches))

	// matches are ordered, so rune offsets are counted incrementally
	bytePos, runePos := 0, 0
	for _, loc := range matches {
		runePos += utf8.RuneCountInString(text[bytePos:loc[0]])
		start := runePos
		end := start + utf8.RuneCountInString(text[loc[0]:loc[1]])
		runePos, bytePos = end, loc[1]

		out = append(out, types.Mention{
			Text:     e.vocab.Label(text[loc[0]:loc[1]]),
			Source:   types.SourcePattern,
			Evidence: evidenceWindow(runes, start, end),
		})
	}
	return out
}

// entitySpan returns the rune span of an entity, locating its text when the offsets are unusable
func entitySpan(runes []rune, ent Entity) (int, int) {
	if ent.Start >= 0 && ent.End > ent.Start && ent.End <= len(runes) {
		return ent.Start, ent.End
	}

	haystack := strings.ToLower(string(runes))
	needle := strings.ToLower(strings.TrimSpace(ent.Text))
	idx := strings.Index(haystack, needle)
	if needle == "" || idx < 0 {
		return 0, 0
	}
	start := utf8.RuneCountInString(haystack[:idx])
	return start, start + utf8.RuneCountInString(needle)
}

// evidenceWindow returns the text around [start, end) clipped to the text bounds
func evidenceWindow(runes []rune, start, end int) string {
	from := max(0, start-EvidenceRadius)
	to := min(len(runes), end+EvidenceRadius)
	if from >= to {
		return ""
	}
	return string(runes[from:to])
}
