package observability

import (
	"context"
	"fmt"
	"time"

	"skillgap/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Business metric types accepted by RecordBusinessMetric
const (
	MetricAnalysisCompleted     = "analysis_completed"
	MetricQuantitativeCompleted = "quantitative_completed"
	MetricSkillsExtracted       = "skills_extracted"
	MetricDemandLookup          = "demand_lookup"
	MetricRateLimitHit          = "rate_limit_hit"
)

// Metrics holds all custom metrics for skillgap.
// Every instrument may be nil, in which case recording is skipped.
type Metrics struct {
	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram
	SanitizeAttempts metric.Int64Counter
	ModelAvailable   metric.Int64Gauge

	// Business metrics
	Analyses        metric.Int64Counter
	Quantitative    metric.Int64Counter
	Extractions     metric.Int64Counter
	DemandLookups   metric.Int64Counter
	SkillsExtracted metric.Int64Histogram
	DocumentSize    metric.Int64Histogram

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

type instrumentDef struct {
	name        string
	description string
	unit        string
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	counters := []struct {
		dst *metric.Int64Counter
		def instrumentDef
	}{
		{&m.AIRequestCount, instrumentDef{"skillgap_ai_requests_total", "Total number of AI requests", ""}},
		{&m.AIErrorCount, instrumentDef{"skillgap_ai_errors_total", "Total number of AI request errors", ""}},
		{&m.SanitizeAttempts, instrumentDef{"skillgap_safety_retries_total", "AI attempts made by the sanitize-and-retry controller, by attempt number and outcome", ""}},
		{&m.Analyses, instrumentDef{"skillgap_analyses_total", "Total number of full skills-gap analyses", ""}},
		{&m.Quantitative, instrumentDef{"skillgap_quantitative_analyses_total", "Total number of quantitative-only analyses", ""}},
		{&m.Extractions, instrumentDef{"skillgap_extractions_total", "Total number of skill extraction requests", ""}},
		{&m.DemandLookups, instrumentDef{"skillgap_demand_lookups_total", "Total number of market demand lookups", ""}},
		{&m.RateLimitHits, instrumentDef{"skillgap_rate_limit_hits_total", "Total number of rate limit hits", ""}},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.def.name, metric.WithDescription(c.def.description)); err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.def.name, err)
		}
	}

	histograms := []struct {
		dst *metric.Int64Histogram
		def instrumentDef
	}{
		{&m.AITokenUsage, instrumentDef{"skillgap_ai_token_usage_total", "Token usage for AI requests (input, output, total)", "tokens"}},
		{&m.SkillsExtracted, instrumentDef{"skillgap_skills_extracted", "Normalized skills found per document", "{skill}"}},
		{&m.DocumentSize, instrumentDef{"skillgap_document_chars", "Size of analyzed documents", "{char}"}},
	}
	for _, h := range histograms {
		opts := []metric.Int64HistogramOption{metric.WithDescription(h.def.description)}
		if h.def.unit != "" {
			opts = append(opts, metric.WithUnit(h.def.unit))
		}
		if *h.dst, err = meter.Int64Histogram(h.def.name, opts...); err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", h.def.name, err)
		}
	}

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"skillgap_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	if m.ModelAvailable, err = meter.Int64Gauge(
		"skillgap_ai_model_available",
		metric.WithDescription("1 when the last model availability check succeeded"),
	); err != nil {
		return nil, fmt.Errorf("failed to create model availability metric: %w", err)
	}

	return m, nil
}

// customMetrics returns the fine-grained metric switches, or nil when every switch is on
func (om *ObservabilityManager) customMetrics() *config.CustomMetricsConfig {
	if om == nil || om.fullConfig == nil {
		return nil
	}
	return &om.fullConfig.Observability.CustomMetrics
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
	// Outcome is the provider's classification of the reply, e.g. "ok" or "safety_blocked"
	Outcome string
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics, and token usage
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, om *ObservabilityManager) error {
	if m.AIProcessingTime == nil {
		// Metrics not initialized, just run the function
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := om.Tracer("skillgap.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if cm := om.customMetrics(); cm == nil || cm.AIOperations.Enabled {
		m.recordAIMetrics(ctx, operation, duration, result, om, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

func (m *Metrics) recordAIMetrics(ctx context.Context, operation string, duration float64, result *AIOperationResult, om *ObservabilityManager, span oteltrace.Span) {
	var err error
	outcome := "ok"
	if result != nil {
		err = result.Error
		if result.Outcome != "" {
			outcome = result.Outcome
		}
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
		attribute.String("outcome", outcome),
	}

	cm := om.customMetrics()
	if cm == nil || cm.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	if result != nil && result.TokenUsage != nil {
		if cm == nil || cm.AIOperations.TrackTokenUsage {
			m.recordTokenMetrics(ctx, result.TokenUsage, operation)
		}
		// Token counts always go on the span for debugging
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", result.TokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", result.TokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", result.TokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attrs...)
}

func (m *Metrics) recordTokenMetrics(ctx context.Context, usage *TokenUsage, operation string) {
	if m.AITokenUsage == nil {
		return
	}
	for tokenType, value := range map[string]int64{
		"input":  usage.InputTokens,
		"output": usage.OutputTokens,
		"total":  usage.TotalTokens,
	} {
		m.AITokenUsage.Record(ctx, value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tokenType),
		))
	}
}

// RecordSanitizeAttempt counts one attempt of the sanitize-and-retry controller
func (om *ObservabilityManager) RecordSanitizeAttempt(ctx context.Context, operation string, attempt int, status string) {
	if cm := om.customMetrics(); cm != nil && (!cm.AIOperations.Enabled || !cm.AIOperations.TrackSafety) {
		return
	}
	m := om.GetMetrics()
	if m.SanitizeAttempts == nil {
		return
	}
	m.SanitizeAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("attempt", attempt),
		attribute.String("status", status),
	))
}

// RecordModelAvailability reports the result of a model health check
func (m *Metrics) RecordModelAvailability(ctx context.Context, operation, model string, available bool, om *ObservabilityManager) {
	if cm := om.customMetrics(); cm != nil && !cm.AIOperations.TrackModelInfo {
		return
	}
	if m.ModelAvailable == nil {
		return
	}
	var v int64
	if available {
		v = 1
	}
	m.ModelAvailable.Record(ctx, v, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("model", model),
	))
}

// RecordSkillCount records how many normalized skills one document produced
func (m *Metrics) RecordSkillCount(ctx context.Context, document string, count int, om *ObservabilityManager) {
	if cm := om.customMetrics(); cm != nil && (!cm.BusinessMetrics.Enabled || !cm.BusinessMetrics.TrackSkillCounts) {
		return
	}
	if m.SkillsExtracted != nil {
		m.SkillsExtracted.Record(ctx, int64(count), metric.WithAttributes(attribute.String("document", document)))
	}
}

// RecordDocumentSize records the size of an analyzed document in characters
func (m *Metrics) RecordDocumentSize(ctx context.Context, document string, chars int, om *ObservabilityManager) {
	if cm := om.customMetrics(); cm != nil && (!cm.BusinessMetrics.Enabled || !cm.BusinessMetrics.TrackContentSizes) {
		return
	}
	if m.DocumentSize != nil {
		m.DocumentSize.Record(ctx, int64(chars), metric.WithAttributes(attribute.String("document", document)))
	}
}

// RecordBusinessMetric records business-specific metrics
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	cm := om.customMetrics()
	if metricType == MetricRateLimitHit {
		// Rate limiting is an infrastructure metric
		if cm != nil && !cm.Infrastructure.TrackRateLimits {
			return
		}
	} else if cm != nil && !cm.BusinessMetrics.Enabled {
		return
	}

	attrs := attributes
	if cm == nil || cm.BusinessMetrics.TrackSuccessRates {
		attrs = append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	}

	var counter metric.Int64Counter
	switch metricType {
	case MetricAnalysisCompleted:
		counter = m.Analyses
	case MetricQuantitativeCompleted:
		counter = m.Quantitative
	case MetricSkillsExtracted:
		counter = m.Extractions
	case MetricDemandLookup:
		counter = m.DemandLookups
	case MetricRateLimitHit:
		counter = m.RateLimitHits
	}
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
