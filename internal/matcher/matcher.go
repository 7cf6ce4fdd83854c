package matcher

import (
	"context"
	"math"
	"sort"
	"strings"

	"skillgap/internal/types"

	"golang.org/x/sync/errgroup"
)

// EmptyJobScore is reported when the job text yields no skills at all
const EmptyJobScore = 50.0

// Extractor finds raw mentions in text
type Extractor interface {
	Extract(ctx context.Context, text string) []types.Mention
}

// Normalizer maps mentions onto the taxonomy
type Normalizer interface {
	Normalize(mentions []types.Mention) []types.NormalizedSkill
}

// DemandSource provides market demand per skill
type DemandSource interface {
	MarketDemand(skill string) types.DemandRecord
}

// Matcher compares the skills of a CV against those of a job description
type Matcher struct {
	extractor  Extractor
	normalizer Normalizer
	demand     DemandSource
}

// New creates a Matcher
func New(extractor Extractor, normalizer Normalizer, demand DemandSource) *Matcher {
	return &Matcher{extractor: extractor, normalizer: normalizer, demand: demand}
}

// Skills extracts and normalizes the skills of a single text
func (m *Matcher) Skills(ctx context.Context, text string) []types.NormalizedSkill {
	return m.normalizer.Normalize(m.extractor.Extract(ctx, text))
}

// Compute builds the quantitative report. Both texts are processed concurrently.
func (m *Matcher) Compute(ctx context.Context, cvText, jobText string) (types.QuantitativeReport, error) {
	var cvSkills, jobSkills []types.NormalizedSkill

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cvSkills = m.Skills(gctx, cvText)
		return gctx.Err()
	})
	g.Go(func() error {
		jobSkills = m.Skills(gctx, jobText)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return types.QuantitativeReport{}, err
	}

	return m.Compare(cvSkills, jobSkills), nil
}

// Compare builds the report from already normalized skill lists
func (m *Matcher) Compare(cvSkills, jobSkills []types.NormalizedSkill) types.QuantitativeReport {
	cvFirst, cvOrder := firstByName(cvSkills)
	jobFirst, jobOrder := firstByName(jobSkills)

	matched := make([]types.NormalizedSkill, 0)
	for _, name := range cvOrder {
		if _, ok := jobFirst[name]; ok {
			matched = append(matched, cvFirst[name])
		}
	}

	type missingSkill struct {
		key    string
		record types.DemandRecord
	}
	missing := make([]missingSkill, 0)
	for _, name := range jobOrder {
		if _, ok := cvFirst[name]; ok {
			continue
		}
		missing = append(missing, missingSkill{key: name, record: m.demand.MarketDemand(jobFirst[name].Normalized)})
	}

	sort.SliceStable(missing, func(i, j int) bool {
		if missing[i].record.TotalDemand != missing[j].record.TotalDemand {
			return missing[i].record.TotalDemand > missing[j].record.TotalDemand
		}
		return missing[i].key < missing[j].key
	})

	prioritized := make([]types.DemandRecord, len(missing))
	for i, ms := range missing {
		prioritized[i] = ms.record
	}

	return types.QuantitativeReport{
		OverallScore: coverage(len(matched), len(jobOrder)),
		SkillsBreakdown: types.SkillsBreakdown{
			CVSkillsCount:  len(cvOrder),
			JobSkillsCount: len(jobOrder),
			MatchedCount:   len(matched),
			MissingCount:   len(missing),
		},
		MatchedSkills:            matched,
		MissingSkillsPrioritized: prioritized,
		CVSkills:                 nonNil(cvSkills),
		JobSkills:                nonNil(jobSkills),
	}
}

// firstByName indexes skills by lowercased normalized name, keeping the first occurrence
func firstByName(skills []types.NormalizedSkill) (map[string]types.NormalizedSkill, []string) {
	first := make(map[string]types.NormalizedSkill, len(skills))
	order := make([]string, 0, len(skills))
	for _, s := range skills {
		key := strings.ToLower(strings.TrimSpace(s.Normalized))
		if key == "" {
			continue
		}
		if _, ok := first[key]; ok {
			continue
		}
		first[key] = s
		order = append(order, key)
	}
	return first, order
}

func coverage(matched, job int) float64 {
	if job == 0 {
		return EmptyJobScore
	}
	return round2(100 * float64(matched) / float64(job))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nonNil(skills []types.NormalizedSkill) []types.NormalizedSkill {
	if skills == nil {
		return []types.NormalizedSkill{}
	}
	return skills
}
