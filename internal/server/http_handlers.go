package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"skillgap/internal/observability"

	"go.opentelemetry.io/otel/trace"
)

const defaultHealthCheckTimeout = 10 * time.Second

func (s *Server) getHealthCheckTimeout() time.Duration {
	if s.AppConfig == nil || s.AppConfig.Observability.HealthCheck.Timeout <= 0 {
		return defaultHealthCheckTimeout
	}
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// healthHandler reports model availability, breaker state and loaded market data
func (s *Server) healthHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"status":  "healthy",
			"service": "skillgap",
			"version": s.Version,
		}

		if s.Engine == nil {
			response["status"] = "unavailable"
			writeJSONStatus(w, nil, response, http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
		defer cancel()

		healthy := true
		models := make(map[string]any)
		breakers := make(map[string]any)
		for operation, svc := range s.Engine.Services() {
			if svc == nil {
				continue
			}
			info := svc.GetModelInfo(ctx)
			om.GetMetrics().RecordModelAvailability(ctx, operation, info.Name, info.Available, om)
			models[operation] = info
			if !info.Available {
				healthy = false
			}
			if stats := svc.CircuitBreakerStats(); stats != nil {
				breakers[operation] = stats
			}
		}
		response["ai_models"] = models
		response["circuit_breakers"] = breakers
		response["data"] = s.Engine.Store().Stats()

		status := http.StatusOK
		if !healthy {
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
		writeJSONStatus(w, nil, response, status)
	}
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "skillgap",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_file_size_bytes":    s.MaxFileSize,
			"prompt_reload":          s.PromptWatcher != nil && s.PromptWatcher.IsRunning(),
		},
	}

	if s.Engine != nil {
		response["data"] = s.Engine.Store().Stats()
		breakers := make(map[string]any)
		for operation, svc := range s.Engine.Services() {
			if svc == nil {
				continue
			}
			if stats := svc.CircuitBreakerStats(); stats != nil {
				breakers[operation] = stats
			}
		}
		response["circuit_breakers"] = breakers
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, nil, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() { _ = r.Body.Close() }()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, span trace.Span, v any) {
	writeJSONStatus(w, span, v, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, span trace.Span, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && span != nil {
		span.RecordError(err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeError(w, ErrorResponse{Error: error, Message: message}, statusCode)
}

func writeError(w http.ResponseWriter, resp ErrorResponse, statusCode int) {
	writeJSONStatus(w, nil, resp, statusCode)
}
