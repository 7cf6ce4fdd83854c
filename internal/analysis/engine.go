// Package analysis wires the skills-gap pipeline together and owns the
// process-wide resources it needs.
package analysis

import (
	"context"
	"strings"
	"time"

	"skillgap/internal/ai"
	"skillgap/internal/config"
	"skillgap/internal/errors"
	"skillgap/internal/market"
	"skillgap/internal/matcher"
	"skillgap/internal/observability"
	"skillgap/internal/skills"
	"skillgap/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultJobTitle is used when a request names no role
const DefaultJobTitle = "Target Role"

// Engine holds the read-only store, the extraction pipeline and the AI services.
// It is built once per process and shared by all requests.
type Engine struct {
	store   *market.Store
	matcher *matcher.Matcher
	refine  *ai.Service
	coach   *ai.Service
	retry   *ai.SanitizeRetry
	obs     *observability.ObservabilityManager
	logger  *errors.Logger
}

// Deps are the parts an Engine is assembled from
type Deps struct {
	Store         *market.Store
	Matcher       *matcher.Matcher
	Refine        *ai.Service
	Coach         *ai.Service
	MaxChars      int
	Observability *observability.ObservabilityManager
	Logger        *errors.Logger
}

// New assembles an Engine from already built parts
func New(deps Deps) *Engine {
	obs := deps.Observability
	if obs == nil {
		obs = observability.Disabled()
	}
	return &Engine{
		store:   deps.Store,
		matcher: deps.Matcher,
		refine:  deps.Refine,
		coach:   deps.Coach,
		retry:   ai.NewSanitizeRetry(deps.MaxChars, deps.Logger, obs),
		obs:     obs,
		logger:  deps.Logger,
	}
}

// Build loads the data files, the extraction pipeline and both AI services from cfg.
// A data load failure is fatal: the caller must not serve without a store.
func Build(cfg *config.Config, om *observability.ObservabilityManager, logger *errors.Logger) (*Engine, error) {
	if err := cfg.ValidateAI(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "AI services are not configured", err)
	}

	deps, err := buildLocal(cfg, om, logger)
	if err != nil {
		return nil, err
	}

	refineCfg := cfg.GetRefineConfig()
	if deps.Refine, err = ai.NewService(&refineCfg, config.OperationRefine, cfg.Prompts(), logger); err != nil {
		return nil, err
	}

	coachCfg := cfg.GetCoachConfig()
	if deps.Coach, err = ai.NewService(&coachCfg, config.OperationCoach, cfg.Prompts(), logger); err != nil {
		_ = deps.Refine.Close()
		return nil, err
	}

	return New(deps), nil
}

// BuildWithoutAI loads only the data files and the extraction pipeline.
// Quantitative, Extract and Demand work on the result; Analyze reports a config error.
func BuildWithoutAI(cfg *config.Config, om *observability.ObservabilityManager, logger *errors.Logger) (*Engine, error) {
	deps, err := buildLocal(cfg, om, logger)
	if err != nil {
		return nil, err
	}
	return New(deps), nil
}

func buildLocal(cfg *config.Config, om *observability.ObservabilityManager, logger *errors.Logger) (Deps, error) {
	start := time.Now()

	store, err := market.Load(cfg.Data.PostingsFile, cfg.Data.TaxonomyFile, logger)
	if err != nil {
		return Deps{}, err
	}

	m, err := buildMatcher(cfg, store, logger)
	if err != nil {
		return Deps{}, err
	}

	stats := store.Stats()
	logger.Info("Analysis data ready",
		"demand_skills", stats.DemandSkills,
		"taxonomy_entries", stats.TaxonomyEntries,
		"posting_rows", stats.PostingRows,
		"tagger_enabled", cfg.Extraction.Tagger.Enabled,
		"duration", time.Since(start).String())

	return Deps{
		Store:         store,
		Matcher:       m,
		MaxChars:      cfg.AI.Sanitize.MaxChars,
		Observability: om,
		Logger:        logger,
	}, nil
}

func buildMatcher(cfg *config.Config, store *market.Store, logger *errors.Logger) (*matcher.Matcher, error) {
	ext := cfg.Extraction

	var vocab *skills.Vocabulary
	if ext.VocabularyFile != "" {
		var err error
		if vocab, err = skills.LoadVocabulary(ext.VocabularyFile); err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Failed to load skill vocabulary", err).
				WithContext("path", ext.VocabularyFile)
		}
	}

	opts := skills.ExtractorOptions{
		Labels:         ext.Tagger.Labels,
		Threshold:      ext.Tagger.Threshold,
		Vocabulary:     vocab,
		ExtraStopwords: ext.ExtraStopwords,
		Logger:         logger,
	}
	if ext.Tagger.Enabled {
		tagger, err := skills.NewRemoteTagger(&ext.Tagger, logger)
		if err != nil {
			return nil, err
		}
		opts.Tagger = tagger
	}

	extractor, err := skills.NewExtractor(opts)
	if err != nil {
		return nil, err
	}

	return matcher.New(extractor, skills.NewNormalizer(store, ext.ExtraDenylist), store), nil
}

// Store returns the taxonomy and demand store
func (e *Engine) Store() *market.Store {
	return e.store
}

// Services returns the AI services by operation name
func (e *Engine) Services() map[string]*ai.Service {
	return map[string]*ai.Service{
		config.OperationRefine: e.refine,
		config.OperationCoach:  e.coach,
	}
}

// Close releases the AI providers
func (e *Engine) Close() error {
	for _, svc := range e.Services() {
		if svc != nil {
			if err := svc.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateTexts(cvText, jobText string) error {
	if strings.TrimSpace(cvText) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "cv_text is required", nil)
	}
	if strings.TrimSpace(jobText) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "job_description is required", nil)
	}
	return nil
}

// Quantitative runs the deterministic, LLM-free comparison.
// Empty texts are valid input: a job with no skills scores matcher.EmptyJobScore.
func (e *Engine) Quantitative(ctx context.Context, req types.AnalysisRequest) (types.QuantitativeReport, error) {
	ctx, span := e.obs.Tracer("skillgap.analysis").Start(ctx, "analysis.quantitative")
	defer span.End()

	report, err := e.quantitative(ctx, req)
	metrics := e.obs.GetMetrics()
	metrics.RecordBusinessMetric(ctx, observability.MetricQuantitativeCompleted, err == nil, e.obs)
	if err != nil {
		span.RecordError(err)
		return types.QuantitativeReport{}, err
	}

	span.SetAttributes(
		attribute.Float64("match.overall_score", report.OverallScore),
		attribute.Int("match.missing", report.SkillsBreakdown.MissingCount),
	)
	return report, nil
}

func (e *Engine) quantitative(ctx context.Context, req types.AnalysisRequest) (types.QuantitativeReport, error) {
	metrics := e.obs.GetMetrics()
	metrics.RecordDocumentSize(ctx, "cv", len(req.CVText), e.obs)
	metrics.RecordDocumentSize(ctx, "job", len(req.JobDescription), e.obs)

	report, err := e.matcher.Compute(ctx, req.CVText, req.JobDescription)
	if err != nil {
		return types.QuantitativeReport{}, err
	}

	metrics.RecordSkillCount(ctx, "cv", report.SkillsBreakdown.CVSkillsCount, e.obs)
	metrics.RecordSkillCount(ctx, "job", report.SkillsBreakdown.JobSkillsCount, e.obs)
	return report, nil
}

// Analyze runs the full pipeline: quantitative match, AI refinement, gap ranking and coaching
func (e *Engine) Analyze(ctx context.Context, req types.AnalysisRequest) (*types.FullAnalysisResponse, error) {
	ctx, span := e.obs.Tracer("skillgap.analysis").Start(ctx, "analysis.full")
	defer span.End()

	resp, err := e.analyze(ctx, req)
	e.obs.GetMetrics().RecordBusinessMetric(ctx, observability.MetricAnalysisCompleted, err == nil, e.obs)
	if err != nil {
		span.RecordError(err)
		if appErr, ok := errors.AsAppError(err); ok {
			span.SetAttributes(attribute.String("error.code", appErr.Code))
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("analysis.id", resp.AnalysisID),
		attribute.Int("analysis.gaps", len(resp.JobSkillProfile)),
		attribute.Int("analysis.sanitize_attempts", resp.SanitizeAttempts),
	)
	return resp, nil
}

func (e *Engine) analyze(ctx context.Context, req types.AnalysisRequest) (*types.FullAnalysisResponse, error) {
	if err := validateTexts(req.CVText, req.JobDescription); err != nil {
		return nil, err
	}
	if e.refine == nil || e.coach == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "AI services are not configured", nil)
	}

	jobTitle := strings.TrimSpace(req.JobTitle)
	if jobTitle == "" {
		jobTitle = DefaultJobTitle
	}
	analysisID := uuid.NewString()

	report, err := e.quantitative(ctx, req)
	if err != nil {
		return nil, err
	}

	profile, refineAttempts, err := e.refineProfile(ctx, req, report)
	if err != nil {
		return nil, err
	}

	gaps := MergeGaps(profile, e.store)

	plan, coachAttempts, err := e.coachPlan(ctx, types.CoachInput{
		JobTitle:       jobTitle,
		CriticalGaps:   CriticalGaps(gaps, CoachGapLimit),
		LowValueSkills: profile.LowValueSkills,
		CVText:         req.CVText,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Analysis completed",
		"analysis_id", analysisID,
		"overall_score", report.OverallScore,
		"gaps", len(gaps),
		"refine_attempts", refineAttempts,
		"coach_attempts", coachAttempts)

	return &types.FullAnalysisResponse{
		AnalysisID:          analysisID,
		JobTitle:            jobTitle,
		QuantitativeSummary: report,
		AIScores:            profile.OverallScores,
		AISummary:           plan.Summary,
		CVSkillProfile:      profile.CVProfile,
		JobSkillProfile:     gaps,
		PriorityActions:     plan.PriorityActions,
		LearningPaths:       plan.LearningPaths,
		ResumeEdits:         plan.ResumeEdits,
		LowValueSkills:      profile.LowValueSkills,
		SanitizeAttempts:    max(refineAttempts, coachAttempts),
	}, nil
}

// refineProfile asks the refiner for proficiency levels. The CV evidence snippets are
// redacted together with the two documents.
func (e *Engine) refineProfile(ctx context.Context, req types.AnalysisRequest, report types.QuantitativeReport) (types.RefinedProfile, int, error) {
	texts := make([]string, 0, 2+len(report.CVSkills))
	texts = append(texts, req.CVText, req.JobDescription)
	for _, s := range report.CVSkills {
		texts = append(texts, s.Evidence)
	}

	return ai.Run(ctx, e.retry, config.OperationRefine, texts, func(ctx context.Context, in []string) ai.Outcome[types.RefinedProfile] {
		cvSkills := make([]types.NormalizedSkill, len(report.CVSkills))
		copy(cvSkills, report.CVSkills)
		for i := range cvSkills {
			cvSkills[i].Evidence = in[2+i]
		}

		input := types.RefineInput{
			CVText:    in[0],
			JobText:   in[1],
			CVSkills:  cvSkills,
			JobSkills: report.JobSkills,
		}
		return track(ctx, e, config.OperationRefine, func(ctx context.Context) ai.Outcome[types.RefinedProfile] {
			return e.refine.Provider.RefineSkills(ctx, input)
		})
	})
}

func (e *Engine) coachPlan(ctx context.Context, input types.CoachInput) (types.CoachingPlan, int, error) {
	return ai.Run(ctx, e.retry, config.OperationCoach, []string{input.CVText}, func(ctx context.Context, in []string) ai.Outcome[types.CoachingPlan] {
		attempt := input
		attempt.CVText = in[0]
		return track(ctx, e, config.OperationCoach, func(ctx context.Context) ai.Outcome[types.CoachingPlan] {
			return e.coach.Provider.Coach(ctx, attempt)
		})
	})
}

// track records duration, token usage and outcome of one provider call
func track[T any](ctx context.Context, e *Engine, operation string, call func(context.Context) ai.Outcome[T]) ai.Outcome[T] {
	var out ai.Outcome[T]
	_ = e.obs.GetMetrics().TrackAIOperationWithTokens(ctx, operation, func(ctx context.Context) *observability.AIOperationResult {
		out = call(ctx)
		return &observability.AIOperationResult{
			Error:      out.Err,
			TokenUsage: (*observability.TokenUsage)(out.Usage),
			Outcome:    out.Status.String(),
		}
	}, e.obs)
	return out
}

// Extract returns the normalized skills of one text
func (e *Engine) Extract(ctx context.Context, req types.ExtractRequest) (types.ExtractResponse, error) {
	ctx, span := e.obs.Tracer("skillgap.analysis").Start(ctx, "analysis.extract")
	defer span.End()

	if strings.TrimSpace(req.Text) == "" {
		err := errors.NewValidationError(errors.ErrCodeInvalidRequest, "text is required", nil)
		e.obs.GetMetrics().RecordBusinessMetric(ctx, observability.MetricSkillsExtracted, false, e.obs)
		return types.ExtractResponse{}, err
	}

	found := e.matcher.Skills(ctx, req.Text)
	if found == nil {
		found = []types.NormalizedSkill{}
	}

	metrics := e.obs.GetMetrics()
	metrics.RecordBusinessMetric(ctx, observability.MetricSkillsExtracted, true, e.obs)
	metrics.RecordSkillCount(ctx, "text", len(found), e.obs)
	span.SetAttributes(attribute.Int("skills.count", len(found)))

	return types.ExtractResponse{Skills: found}, nil
}

// Demand looks up the market demand of one skill
func (e *Engine) Demand(ctx context.Context, skill string) (types.DemandRecord, error) {
	if strings.TrimSpace(skill) == "" {
		e.obs.GetMetrics().RecordBusinessMetric(ctx, observability.MetricDemandLookup, false, e.obs)
		return types.DemandRecord{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "skill is required", nil)
	}
	record := e.store.MarketDemand(strings.TrimSpace(skill))
	e.obs.GetMetrics().RecordBusinessMetric(ctx, observability.MetricDemandLookup, true, e.obs,
		attribute.String("priority", string(record.Priority)))
	return record, nil
}
