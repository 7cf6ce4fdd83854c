package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"skillgap/internal/ai"
	"skillgap/internal/config"
	"skillgap/internal/errors"
	"skillgap/internal/market"
	"skillgap/internal/matcher"
	"skillgap/internal/skills"
	"skillgap/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	refine      []ai.Outcome[types.RefinedProfile]
	coach       []ai.Outcome[types.CoachingPlan]
	refineCalls []types.RefineInput
	coachCalls  []types.CoachInput
}

func (f *fakeProvider) RefineSkills(_ context.Context, input types.RefineInput) ai.Outcome[types.RefinedProfile] {
	f.refineCalls = append(f.refineCalls, input)
	return f.refine[min(len(f.refineCalls), len(f.refine))-1]
}

func (f *fakeProvider) Coach(_ context.Context, input types.CoachInput) ai.Outcome[types.CoachingPlan] {
	f.coachCalls = append(f.coachCalls, input)
	return f.coach[min(len(f.coachCalls), len(f.coach))-1]
}

func (f *fakeProvider) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "fake", Available: true}
}

func (f *fakeProvider) Close() error { return nil }

func testLogger() *errors.Logger {
	return errors.NewLoggerTo(io.Discard, slog.LevelError)
}

func testStore(t *testing.T) *market.Store {
	t.Helper()
	store, err := market.NewStore(
		market.Table{
			Header: []string{"Skill Keyword", "Job Posting Title", "Count"},
			Rows: [][]string{
				{"Kubernetes", "Platform Engineer", "6000"},
				{"Docker", "DevOps Engineer", "2500"},
				{"Python", "Data Engineer", "4000"},
				{"AWS", "Cloud Engineer", "900"},
			},
		},
		market.Table{
			Header: []string{"preferredLabel", "conceptUri", "skillType"},
			Rows:   [][]string{{"Python", "http://example.org/python", "knowledge"}},
		},
	)
	require.NoError(t, err)
	return store
}

func newTestEngine(t *testing.T, provider *fakeProvider) *Engine {
	t.Helper()
	store := testStore(t)
	extractor, err := skills.NewExtractor(skills.ExtractorOptions{Logger: testLogger()})
	require.NoError(t, err)

	svc := ai.NewServiceWithProvider(provider, &config.OperationAIConfig{Provider: "fake"}, testLogger())
	return New(Deps{
		Store:   store,
		Matcher: matcher.New(extractor, skills.NewNormalizer(store, nil), store),
		Refine:  svc,
		Coach:   svc,
		Logger:  testLogger(),
	})
}

func okRefine(p types.RefinedProfile) ai.Outcome[types.RefinedProfile] {
	return ai.Outcome[types.RefinedProfile]{Status: ai.StatusOK, Value: p}
}

func okCoach(p types.CoachingPlan) ai.Outcome[types.CoachingPlan] {
	return ai.Outcome[types.CoachingPlan]{Status: ai.StatusOK, Value: p}
}

func blockedRefine() ai.Outcome[types.RefinedProfile] {
	return ai.Outcome[types.RefinedProfile]{Status: ai.StatusSafetyBlocked,
		Err: errors.NewAIError(errors.ErrCodeAISafetyBlocked, "blocked", nil)}
}

var sampleProfile = types.RefinedProfile{
	CVProfile: []types.SkillProfile{
		{Skill: "Python", ProficiencyYou: 4, Evidence: "5 years of Python"},
		{Skill: "docker", ProficiencyYou: 2, Evidence: "used Docker"},
	},
	JobProfile: []types.JobRequirement{
		{Skill: "AWS", ProficiencyReq: 3, IsMustHave: false},
		{Skill: "Python", ProficiencyReq: 4, IsMustHave: true},
		{Skill: "Kubernetes", ProficiencyReq: 5, IsMustHave: false},
		{Skill: "Docker", ProficiencyReq: 4, IsMustHave: true},
	},
	OverallScores:  types.OverallScores{Coverage: 60, Depth: 55, Recency: 70},
	LowValueSkills: []string{"Cobol"},
}

var samplePlan = types.CoachingPlan{
	Summary:         "Solid Python base.",
	PriorityActions: []types.PriorityAction{{Action: "Learn Kubernetes"}},
	LearningPaths:   []types.LearningPath{{Skill: "Kubernetes", PathTitle: "K8s Basics", Platform: "Coursera"}},
	ResumeEdits:     []types.ResumeEdit{{Before: "Used Docker.", After: "Containerised 12 services with Docker."}},
}

const (
	sampleCV  = "Jane Doe, jane@example.com. 5 years of Python, used Docker for local builds."
	sampleJob = "Platform role: Python, Docker, Kubernetes and AWS required."
)

func TestRankGapsMustHaveFirst(t *testing.T) {
	gaps := []types.GapItem{
		{Skill: "B", Gap: 5, IsMustHave: false},
		{Skill: "A", Gap: 3, IsMustHave: true},
	}
	RankGaps(gaps)
	assert.Equal(t, "A", gaps[0].Skill, "a must-have gap of 3 outranks an optional gap of 5")
}

func TestRankGapsTieBreaks(t *testing.T) {
	demand := func(n int64) types.DemandRecord { return types.DemandRecord{TotalDemand: n} }
	gaps := []types.GapItem{
		{Skill: "low-demand", Gap: 2, MarketDemand: demand(10)},
		{Skill: "bigger-gap", Gap: 3, MarketDemand: demand(1)},
		{Skill: "high-demand", Gap: 2, MarketDemand: demand(900)},
		{Skill: "first-equal", Gap: 1, MarketDemand: demand(5)},
		{Skill: "second-equal", Gap: 1, MarketDemand: demand(5)},
	}
	RankGaps(gaps)

	names := make([]string, len(gaps))
	for i, g := range gaps {
		names[i] = g.Skill
	}
	assert.Equal(t, []string{"bigger-gap", "high-demand", "low-demand", "first-equal", "second-equal"}, names)
}

func TestMergeGaps(t *testing.T) {
	gaps := MergeGaps(sampleProfile, testStore(t))
	require.Len(t, gaps, 4)

	assert.Equal(t, "Docker", gaps[0].Skill)
	assert.Equal(t, 2, gaps[0].ProficiencyYou, "cv profile lookup is case-insensitive")
	assert.Equal(t, 2, gaps[0].Gap)
	assert.Equal(t, "Python", gaps[1].Skill)
	assert.Equal(t, 0, gaps[1].Gap)
	assert.Equal(t, "Kubernetes", gaps[2].Skill)
	assert.Equal(t, 0, gaps[2].ProficiencyYou, "absent skills count as level 0")
	assert.Equal(t, 5, gaps[2].Gap)
	assert.Equal(t, int64(6000), gaps[2].MarketDemand.TotalDemand)
	assert.Equal(t, "AWS", gaps[3].Skill)
}

func TestCriticalGaps(t *testing.T) {
	ranked := []types.GapItem{{Skill: "a", Gap: 2}, {Skill: "b", Gap: 0}, {Skill: "c", Gap: -1}, {Skill: "d", Gap: 1}}
	got := CriticalGaps(ranked, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Skill)
	assert.Equal(t, "d", got[1].Skill)

	assert.Len(t, CriticalGaps(ranked, 1), 1)
}

func TestAnalyze(t *testing.T) {
	provider := &fakeProvider{
		refine: []ai.Outcome[types.RefinedProfile]{okRefine(sampleProfile)},
		coach:  []ai.Outcome[types.CoachingPlan]{okCoach(samplePlan)},
	}
	engine := newTestEngine(t, provider)

	resp, err := engine.Analyze(context.Background(), types.AnalysisRequest{CVText: sampleCV, JobDescription: sampleJob})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AnalysisID)
	assert.Equal(t, DefaultJobTitle, resp.JobTitle)
	assert.Equal(t, 1, resp.SanitizeAttempts)
	assert.Equal(t, 60, resp.AIScores.Coverage)
	assert.Equal(t, "Solid Python base.", resp.AISummary)
	assert.Equal(t, []string{"Cobol"}, resp.LowValueSkills)
	require.Len(t, resp.JobSkillProfile, 4)
	assert.Equal(t, "Docker", resp.JobSkillProfile[0].Skill)
	assert.Equal(t, 2, resp.QuantitativeSummary.SkillsBreakdown.MatchedCount)

	require.Len(t, provider.coachCalls, 1)
	coachInput := provider.coachCalls[0]
	assert.Equal(t, DefaultJobTitle, coachInput.JobTitle)
	for _, g := range coachInput.CriticalGaps {
		assert.Positive(t, g.Gap)
	}
	assert.Len(t, coachInput.CriticalGaps, 3)
}

func TestAnalyzeRetriesWithRedactedText(t *testing.T) {
	provider := &fakeProvider{
		refine: []ai.Outcome[types.RefinedProfile]{blockedRefine(), okRefine(sampleProfile)},
		coach:  []ai.Outcome[types.CoachingPlan]{okCoach(samplePlan)},
	}
	engine := newTestEngine(t, provider)

	resp, err := engine.Analyze(context.Background(), types.AnalysisRequest{
		CVText: sampleCV, JobDescription: sampleJob, JobTitle: "Platform Engineer",
	})
	require.NoError(t, err)

	assert.Equal(t, "Platform Engineer", resp.JobTitle)
	assert.Equal(t, 2, resp.SanitizeAttempts)
	require.Len(t, provider.refineCalls, 2)
	assert.Contains(t, provider.refineCalls[0].CVText, "jane@example.com")
	assert.NotContains(t, provider.refineCalls[1].CVText, "jane@example.com")
	for _, s := range provider.refineCalls[1].CVSkills {
		assert.NotContains(t, s.Evidence, "jane@example.com")
	}
	assert.Contains(t, provider.coachCalls[0].CVText, "jane@example.com", "coach starts again from the raw CV")
}

func TestAnalyzeFailsAfterThreeSafetyBlocks(t *testing.T) {
	provider := &fakeProvider{refine: []ai.Outcome[types.RefinedProfile]{blockedRefine()}}
	engine := newTestEngine(t, provider)

	_, err := engine.Analyze(context.Background(), types.AnalysisRequest{CVText: sampleCV, JobDescription: sampleJob})

	assert.True(t, errors.HasCode(err, errors.ErrCodeAISafetyBlocked))
	assert.Len(t, provider.refineCalls, ai.MaxSanitizeAttempts)
	assert.Empty(t, provider.coachCalls)
}

func TestAnalyzeShapeErrorIsNotRetried(t *testing.T) {
	provider := &fakeProvider{refine: []ai.Outcome[types.RefinedProfile]{{
		Status: ai.StatusShapeError,
		Err:    fmt.Errorf("missing job_profile"),
	}}}
	engine := newTestEngine(t, provider)

	_, err := engine.Analyze(context.Background(), types.AnalysisRequest{CVText: sampleCV, JobDescription: sampleJob})

	assert.True(t, errors.HasCode(err, errors.ErrCodeAIResponseInvalid))
	assert.Len(t, provider.refineCalls, 1)
}

func TestAnalyzeValidatesInput(t *testing.T) {
	engine := newTestEngine(t, &fakeProvider{})

	_, err := engine.Analyze(context.Background(), types.AnalysisRequest{CVText: "  ", JobDescription: sampleJob})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	_, err = engine.Analyze(context.Background(), types.AnalysisRequest{CVText: sampleCV})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
}

func TestQuantitativeEmptyJobScoresFifty(t *testing.T) {
	engine := newTestEngine(t, &fakeProvider{})

	report, err := engine.Quantitative(context.Background(), types.AnalysisRequest{CVText: sampleCV})
	require.NoError(t, err)
	assert.Equal(t, matcher.EmptyJobScore, report.OverallScore)
	assert.Equal(t, 0, report.SkillsBreakdown.JobSkillsCount)
	assert.Empty(t, report.MatchedSkills)
	assert.Empty(t, report.MissingSkillsPrioritized)
	assert.NotZero(t, report.SkillsBreakdown.CVSkillsCount)

	report, err = engine.Quantitative(context.Background(), types.AnalysisRequest{})
	require.NoError(t, err)
	assert.Equal(t, 50.0, report.OverallScore)
}

func TestQuantitativeExtractAndDemand(t *testing.T) {
	engine := newTestEngine(t, &fakeProvider{})
	ctx := context.Background()

	report, err := engine.Quantitative(ctx, types.AnalysisRequest{CVText: sampleCV, JobDescription: sampleJob})
	require.NoError(t, err)
	assert.Equal(t, 50.0, report.OverallScore)
	require.NotEmpty(t, report.MissingSkillsPrioritized)
	assert.Equal(t, "Kubernetes", report.MissingSkillsPrioritized[0].Skill)

	extracted, err := engine.Extract(ctx, types.ExtractRequest{Text: "Python and Kubernetes"})
	require.NoError(t, err)
	names := make([]string, 0, len(extracted.Skills))
	for _, s := range extracted.Skills {
		names = append(names, strings.ToLower(s.Normalized))
	}
	assert.ElementsMatch(t, []string{"python", "kubernetes"}, names)

	_, err = engine.Extract(ctx, types.ExtractRequest{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	record, err := engine.Demand(ctx, " kubernetes ")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), record.TotalDemand)
	assert.Equal(t, types.PriorityCritical, record.Priority)

	_, err = engine.Demand(ctx, "")
	assert.Error(t, err)
}
