package matcher

import (
	"context"
	"testing"

	"skillgap/internal/market"
	"skillgap/internal/skills"
	"skillgap/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()

	store, err := market.NewStore(
		market.Table{
			Header: []string{"Skill Keyword", "Job Posting Title", "Count"},
			Rows: [][]string{
				{"Docker", "DevOps Engineer", "2500"},
				{"Kubernetes", "Platform Engineer", "2500"},
				{"AWS", "Cloud Engineer", "6000"},
				{"Python", "Data Engineer", "9000"},
			},
		},
		market.Table{
			Header: []string{"preferredLabel", "conceptUri", "skillType"},
			Rows: [][]string{
				{"Python", "uri:python", "skill/competence"},
				{"SQL", "uri:sql", "skill/competence"},
			},
		},
	)
	require.NoError(t, err)

	extractor, err := skills.NewExtractor(skills.ExtractorOptions{})
	require.NoError(t, err)

	return New(extractor, skills.NewNormalizer(store, nil), store)
}

func names(skills []types.NormalizedSkill) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = s.Normalized
	}
	return out
}

func TestComputeDockerScenario(t *testing.T) {
	m := newTestMatcher(t)

	report, err := m.Compute(context.Background(), "3 years Python, SQL", "Requires Python, SQL, Docker")
	require.NoError(t, err)

	assert.InDelta(t, 66.67, report.OverallScore, 1e-9)
	assert.Equal(t, []string{"Python", "SQL"}, names(report.MatchedSkills))
	require.Len(t, report.MissingSkillsPrioritized, 1)
	assert.Equal(t, "Docker", report.MissingSkillsPrioritized[0].Skill)
	assert.EqualValues(t, 2500, report.MissingSkillsPrioritized[0].TotalDemand)
	assert.Equal(t, types.PriorityHigh, report.MissingSkillsPrioritized[0].Priority)
	assert.Equal(t, types.SkillsBreakdown{CVSkillsCount: 2, JobSkillsCount: 3, MatchedCount: 2, MissingCount: 1}, report.SkillsBreakdown)
}

func TestComputeEmptyJob(t *testing.T) {
	m := newTestMatcher(t)

	report, err := m.Compute(context.Background(), "Python and SQL", "We value punctuality")
	require.NoError(t, err)

	assert.Equal(t, EmptyJobScore, report.OverallScore)
	assert.Empty(t, report.MatchedSkills)
	assert.NotNil(t, report.MissingSkillsPrioritized)
	assert.Empty(t, report.MissingSkillsPrioritized)
	assert.NotNil(t, report.JobSkills)
}

func TestComputeMissingOrder(t *testing.T) {
	m := newTestMatcher(t)

	report, err := m.Compute(context.Background(), "Excel", "Kubernetes, Docker, AWS, Terraform, Tableau and Python")
	require.NoError(t, err)

	got := make([]string, len(report.MissingSkillsPrioritized))
	for i, rec := range report.MissingSkillsPrioritized {
		got[i] = rec.Skill
	}
	// demand descending, ties by name ascending
	assert.Equal(t, []string{"Python", "AWS", "Docker", "Kubernetes", "Tableau", "Terraform"}, got)
	assert.Zero(t, report.OverallScore)
}

func TestComputeDeterministic(t *testing.T) {
	m := newTestMatcher(t)
	cv := "Python, SQL, Docker, Excel and Leadership"
	job := "Python, Kubernetes, AWS, Leadership, Communication, Docker"

	first, err := m.Compute(context.Background(), cv, job)
	require.NoError(t, err)
	for range 10 {
		again, err := m.Compute(context.Background(), cv, job)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompareSetAlgebra(t *testing.T) {
	m := newTestMatcher(t)
	skill := func(name, evidence string) types.NormalizedSkill {
		return types.NormalizedSkill{Original: name, Normalized: name, Evidence: evidence, MatchType: types.MatchNone, SkillType: "unknown"}
	}

	cv := []types.NormalizedSkill{skill("Go", "first"), skill("GO", "second"), skill("Rust", "")}
	job := []types.NormalizedSkill{skill("go", ""), skill("Haskell", ""), skill("haskell", "")}

	report := m.Compare(cv, job)

	require.Len(t, report.MatchedSkills, 1)
	assert.Equal(t, "first", report.MatchedSkills[0].Evidence)
	require.Len(t, report.MissingSkillsPrioritized, 1)
	assert.Equal(t, "Haskell", report.MissingSkillsPrioritized[0].Skill)
	assert.Equal(t, types.SkillsBreakdown{CVSkillsCount: 2, JobSkillsCount: 2, MatchedCount: 1, MissingCount: 1}, report.SkillsBreakdown)
	assert.Equal(t, 50.0, report.OverallScore)

	assert.Len(t, report.CVSkills, 3, "raw lists are returned as extracted")
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 33.33, coverage(1, 3))
	assert.Equal(t, 66.67, coverage(2, 3))
	assert.Equal(t, 100.0, coverage(4, 4))
	assert.Equal(t, 14.29, coverage(1, 7))
}

func TestComputeCancelled(t *testing.T) {
	m := newTestMatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Compute(ctx, "Python", "Python")
	assert.ErrorIs(t, err, context.Canceled)
}
