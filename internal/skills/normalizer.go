package skills

import (
	"strings"

	"skillgap/internal/types"
)

// Taxonomy is the lookup the normalizer needs from the market store
type Taxonomy interface {
	TaxonomyMatch(skill string) (types.TaxonomyEntry, bool)
}

// baseDenylist rejects taxonomy labels that look like generic verbs or unrelated concepts
var baseDenylist = []string{
	"pursue excellence", "food products", "creation",
	"manage", "perform", "ensure", "coordinate",
}

// Normalizer maps mentions onto canonical taxonomy labels
type Normalizer struct {
	taxonomy Taxonomy
	denylist []string
}

// NewNormalizer creates a Normalizer; extra denylist entries are matched as substrings
func NewNormalizer(taxonomy Taxonomy, extraDenylist []string) *Normalizer {
	deny := make([]string, 0, len(baseDenylist)+len(extraDenylist))
	deny = append(deny, baseDenylist...)
	for _, d := range extraDenylist {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			deny = append(deny, d)
		}
	}
	return &Normalizer{taxonomy: taxonomy, denylist: deny}
}

// Normalize returns one NormalizedSkill per mention, in the same order
func (n *Normalizer) Normalize(mentions []types.Mention) []types.NormalizedSkill {
	out := make([]types.NormalizedSkill, 0, len(mentions))
	for _, m := range mentions {
		out = append(out, n.normalizeOne(m))
	}
	return out
}

func (n *Normalizer) normalizeOne(m types.Mention) types.NormalizedSkill {
	if entry, ok := n.taxonomy.TaxonomyMatch(m.Text); ok && !n.denied(entry.CanonicalLabel) {
		uri := entry.ConceptURI
		return types.NormalizedSkill{
			Original:   m.Text,
			Normalized: entry.CanonicalLabel,
			URI:        &uri,
			SkillType:  entry.SkillType,
			MatchType:  types.MatchExact,
			Evidence:   m.Evidence,
			Source:     m.Source,
		}
	}

	return types.NormalizedSkill{
		Original:   m.Text,
		Normalized: m.Text,
		SkillType:  "unknown",
		MatchType:  types.MatchNone,
		Evidence:   m.Evidence,
		Source:     m.Source,
	}
}

func (n *Normalizer) denied(label string) bool {
	lower := strings.ToLower(label)
	for _, d := range n.denylist {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}
