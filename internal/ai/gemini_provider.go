package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"skillgap/internal/config"
	appErrors "skillgap/internal/errors"
	"skillgap/internal/sanitize"
	"skillgap/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// PromptCharLimit caps each document inserted into a prompt
const PromptCharLimit = 4000

// generator is the part of the Gemini client the provider uses
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// PromptSource returns prompt content loaded from files, or "" when none was loaded
type PromptSource interface {
	Get(operation, kind string) string
}

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	models            generator
	config            *config.OperationAIConfig
	operation         string
	prompts           PromptSource
	circuitBreaker    *AICircuitBreaker
	modelBreaker      *ModelCircuitBreaker
	modelCheckTimeout time.Duration
	logger            *appErrors.Logger
}

// Ensure GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operation string, prompts PromptSource, logger *appErrors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: *cfg.Timeout},
	})
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}
	return newGeminiProvider(client.Models, cfg, operation, prompts, logger), nil
}

func newGeminiProvider(models generator, cfg *config.OperationAIConfig, operation string, prompts PromptSource, logger *appErrors.Logger) *GeminiProvider {
	return &GeminiProvider{
		models:            models,
		config:            cfg,
		operation:         operation,
		prompts:           prompts,
		circuitBreaker:    NewAICircuitBreaker(operation, cfg, logger),
		modelBreaker:      NewModelCircuitBreaker(operation, cfg, logger),
		modelCheckTimeout: 10 * time.Second,
		logger:            logger,
	}
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// SetModelCheckTimeout overrides the timeout used by GetModelInfo
func (g *GeminiProvider) SetModelCheckTimeout(timeout time.Duration) {
	if timeout > 0 {
		g.modelCheckTimeout = timeout
	}
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error
	maxRetries := *g.config.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			// Exponential backoff with jitter, capped at 30 seconds
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			backoff := min(baseDelay+time.Duration(jitterBig.Int64()), 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// isRetryableError determines if a transport error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code == http.StatusTooManyRequests || genaiErr.Code >= http.StatusInternalServerError
	}

	return false
}

// blockedFinishReasons are candidate finish reasons that mean the reply was withheld
var blockedFinishReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonBlocklist:         true,
	genai.FinishReasonSPII:              true,
}

// safetyBlockReason reports whether the response was withheld by safety filters
func safetyBlockReason(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return string(fb.BlockReason), true
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		if reason := resp.Candidates[0].FinishReason; blockedFinishReasons[reason] {
			return string(reason), true
		}
	}
	return "", false
}

// safetySettings blocks medium and higher probability harm in every category
func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, len(categories))
	for i, c := range categories {
		settings[i] = &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove}
	}
	return settings
}

// generate runs one traced, breaker-protected call and tags the result.
// parse turns the reply text into the typed value; its errors become shape errors.
func generate[Out any](
	ctx context.Context,
	g *GeminiProvider,
	operationName string,
	systemPrompt string,
	userPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	parse func(string) (Out, error),
	spanAttributes ...attribute.KeyValue,
) Outcome[Out] {
	tracer := otel.Tracer("skillgap.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	} else if systemPrompt != "" {
		userPrompt = systemPrompt + "\n\n" + userPrompt
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("ai.outcome", StatusServiceError.String()))
		return failed[Out](StatusServiceError, nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+operationName, err))
	}

	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	if reason, blocked := safetyBlockReason(result); blocked {
		span.SetAttributes(
			attribute.String("ai.outcome", StatusSafetyBlocked.String()),
			attribute.String("ai.block_reason", reason),
		)
		g.logger.Warn("AI reply blocked by safety filters", "operation", operationName, "reason", reason)
		return failed[Out](StatusSafetyBlocked, usage, appErrors.NewAIError(appErrors.ErrCodeAISafetyBlocked,
			"AI reply blocked by safety filters", nil).WithContext("reason", reason))
	}

	if len(result.Candidates) == 0 {
		span.SetAttributes(attribute.String("ai.outcome", StatusShapeError.String()))
		return failed[Out](StatusShapeError, usage, appErrors.NewAIError(appErrors.ErrCodeAIResponseInvalid,
			"AI reply had no candidates", nil))
	}

	value, err := parse(result.Text())
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("ai.outcome", StatusShapeError.String()))
		g.logger.Warn("AI reply failed validation", "operation", operationName, "error", err.Error())
		return failed[Out](StatusShapeError, usage, appErrors.NewAIError(appErrors.ErrCodeAIResponseInvalid,
			"AI reply failed validation for "+operationName, err))
	}

	span.SetAttributes(attribute.String("ai.outcome", StatusOK.String()))
	return ok(value, usage)
}

// RefineSkills asks the model for proficiency levels and rubric scores
func (g *GeminiProvider) RefineSkills(ctx context.Context, input types.RefineInput) Outcome[types.RefinedProfile] {
	userPrompt, err := g.refinePrompt(input)
	if err != nil {
		return failed[types.RefinedProfile](StatusServiceError, nil, err)
	}

	return generate(ctx, g, "refine_skills",
		g.systemPrompt(config.OperationRefine, DefaultSystemPrompts.RefineSkills, g.config.CustomPrompts.SystemPrompts.RefineSkills),
		userPrompt,
		g.buildRefineSchema(),
		parseRefinedProfile,
		attribute.Int("input.cv_length", len(input.CVText)),
		attribute.Int("input.job_length", len(input.JobText)),
		attribute.Int("input.cv_skills", len(input.CVSkills)),
		attribute.Int("input.job_skills", len(input.JobSkills)),
	)
}

// Coach asks the model for a coaching plan
func (g *GeminiProvider) Coach(ctx context.Context, input types.CoachInput) Outcome[types.CoachingPlan] {
	userPrompt, err := g.coachPrompt(input)
	if err != nil {
		return failed[types.CoachingPlan](StatusServiceError, nil, err)
	}

	return generate(ctx, g, "coach_career",
		g.systemPrompt(config.OperationCoach, DefaultSystemPrompts.CoachCareer, g.config.CustomPrompts.SystemPrompts.CoachCareer),
		userPrompt,
		g.buildCoachSchema(),
		parseCoachingPlan,
		attribute.Int("input.gaps", len(input.CriticalGaps)),
		attribute.Int("input.cv_length", len(input.CVText)),
	)
}

func (g *GeminiProvider) refinePrompt(input types.RefineInput) (string, error) {
	type cvSkill struct {
		Skill    string `json:"skill"`
		Evidence string `json:"evidence"`
	}
	cvSkills := make([]cvSkill, len(input.CVSkills))
	for i, s := range input.CVSkills {
		cvSkills[i] = cvSkill{Skill: s.Normalized, Evidence: s.Evidence}
	}
	jobSkills := make([]string, len(input.JobSkills))
	for i, s := range input.JobSkills {
		jobSkills[i] = s.Normalized
	}

	cvJSON, err := json.MarshalIndent(cvSkills, "", "  ")
	if err != nil {
		return "", appErrors.NewInternalError("PROMPT_BUILD_FAILED", "Failed to encode CV skills", err)
	}
	jobJSON, err := json.MarshalIndent(jobSkills, "", "  ")
	if err != nil {
		return "", appErrors.NewInternalError("PROMPT_BUILD_FAILED", "Failed to encode job skills", err)
	}

	template := g.userPrompt(config.OperationRefine, DefaultUserPrompts.RefineSkills, g.config.CustomPrompts.UserPrompts.RefineSkills)
	return fmt.Sprintf(template,
		sanitize.Truncate(input.CVText, PromptCharLimit),
		sanitize.Truncate(input.JobText, PromptCharLimit),
		cvJSON, jobJSON), nil
}

func (g *GeminiProvider) coachPrompt(input types.CoachInput) (string, error) {
	type gap struct {
		Skill          string `json:"skill"`
		ProficiencyReq int    `json:"proficiency_req"`
		ProficiencyYou int    `json:"proficiency_you"`
		Gap            int    `json:"gap"`
		IsMustHave     bool   `json:"is_must_have"`
		MarketDemand   int64  `json:"market_demand"`
	}
	gaps := make([]gap, len(input.CriticalGaps))
	for i, item := range input.CriticalGaps {
		gaps[i] = gap{item.Skill, item.ProficiencyReq, item.ProficiencyYou, item.Gap, item.IsMustHave, item.MarketDemand.TotalDemand}
	}
	lowValue := input.LowValueSkills
	if lowValue == nil {
		lowValue = []string{}
	}

	gapsJSON, err := json.MarshalIndent(gaps, "", "  ")
	if err != nil {
		return "", appErrors.NewInternalError("PROMPT_BUILD_FAILED", "Failed to encode gaps", err)
	}
	lowJSON, err := json.MarshalIndent(lowValue, "", "  ")
	if err != nil {
		return "", appErrors.NewInternalError("PROMPT_BUILD_FAILED", "Failed to encode low value skills", err)
	}

	template := g.userPrompt(config.OperationCoach, DefaultUserPrompts.CoachCareer, g.config.CustomPrompts.UserPrompts.CoachCareer)
	return fmt.Sprintf(template, input.JobTitle, gapsJSON, lowJSON, sanitize.Truncate(input.CVText, PromptCharLimit)), nil
}

func (g *GeminiProvider) systemPrompt(operation, fromDefault, fromConfig string) string {
	return resolvePrompt(g.loaded(operation, config.PromptSystem), fromConfig, fromDefault)
}

func (g *GeminiProvider) userPrompt(operation, fromDefault, fromConfig string) string {
	return resolvePrompt(g.loaded(operation, config.PromptUser), fromConfig, fromDefault)
}

func (g *GeminiProvider) loaded(operation, kind string) string {
	if g.prompts == nil {
		return ""
	}
	return g.prompts.Get(operation, kind)
}

// resolvePrompt picks a prompt in priority order: loaded from file, set in config, built-in default
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close implements Provider
func (g *GeminiProvider) Close() error {
	return nil
}

func (g *GeminiProvider) newContentConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		SafetySettings:   safetySettings(),
	}
	if *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}
	return cfg
}

// buildRefineSchema creates the schema for refine requests
func (g *GeminiProvider) buildRefineSchema() *genai.GenerateContentConfig {
	return g.newContentConfig(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"cv_profile": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"skill":           {Type: genai.TypeString},
						"proficiency_you": {Type: genai.TypeInteger},
						"evidence":        {Type: genai.TypeString},
					},
					Required: []string{"skill", "proficiency_you", "evidence"},
				},
			},
			"job_profile": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"skill":           {Type: genai.TypeString},
						"proficiency_req": {Type: genai.TypeInteger},
						"is_must_have":    {Type: genai.TypeBoolean},
					},
					Required: []string{"skill", "proficiency_req", "is_must_have"},
				},
			},
			"overall_scores": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"coverage": {Type: genai.TypeInteger},
					"depth":    {Type: genai.TypeInteger},
					"recency":  {Type: genai.TypeInteger},
				},
				Required: []string{"coverage", "depth", "recency"},
			},
			"low_value_skills": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"cv_profile", "job_profile", "overall_scores", "low_value_skills"},
	})
}

// buildCoachSchema creates the schema for coach requests
func (g *GeminiProvider) buildCoachSchema() *genai.GenerateContentConfig {
	return g.newContentConfig(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {Type: genai.TypeString},
			"priority_actions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"action":        {Type: genai.TypeString},
						"difficulty":    {Type: genai.TypeString},
						"time_estimate": {Type: genai.TypeString},
						"why":           {Type: genai.TypeString},
					},
					Required: []string{"action", "difficulty", "time_estimate", "why"},
				},
			},
			"learning_paths": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"skill":      {Type: genai.TypeString},
						"path_title": {Type: genai.TypeString},
						"platform":   {Type: genai.TypeString},
					},
					Required: []string{"skill", "path_title", "platform"},
				},
			},
			"resume_edits": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"before": {Type: genai.TypeString},
						"after":  {Type: genai.TypeString},
					},
					Required: []string{"before", "after"},
				},
			},
		},
		Required: []string{"summary", "priority_actions", "learning_paths", "resume_edits"},
	})
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
