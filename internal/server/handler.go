package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"skillgap/internal/document"
	"skillgap/internal/errors"
	"skillgap/internal/observability"
	"skillgap/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "skillgap.api"

// multipartOverhead is the room left for form fields next to the uploaded file
const multipartOverhead = 1 << 20

// createAnalyzeHandler runs the full pipeline on a JSON request
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.analyze")
		defer span.End()

		var req types.AnalysisRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		s.runAnalysis(ctx, w, span, req)
	}
}

// createUploadHandler accepts a CV file (PDF, DOCX or text) as multipart field cv_file
func (s *Server) createUploadHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.analyze_upload")
		defer span.End()

		if s.MaxFileSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxFileSize+multipartOverhead)
		}
		if err := r.ParseMultipartForm(multipartOverhead); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid multipart form", err.Error(), http.StatusBadRequest)
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile("cv_file")
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Missing CV file", "cv_file form field is required", http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()

		data, err := document.ReadLimited(file, s.MaxFileSize)
		if err != nil {
			s.writeAppError(w, span, "Failed to read CV file", err)
			return
		}

		cvText, err := document.Extract(header.Filename, data)
		if err != nil {
			s.writeAppError(w, span, "Failed to read CV file", err)
			return
		}

		format, _ := document.DetectFormat(header.Filename)
		span.SetAttributes(
			attribute.String("document.format", string(format)),
			attribute.Int("document.bytes", len(data)),
		)

		s.runAnalysis(ctx, w, span, types.AnalysisRequest{
			CVText:         cvText,
			JobDescription: r.FormValue("job_description"),
			JobTitle:       r.FormValue("job_title"),
		})
	}
}

func (s *Server) runAnalysis(ctx context.Context, w http.ResponseWriter, span trace.Span, req types.AnalysisRequest) {
	span.SetAttributes(
		attribute.Int("request.cv_length", len(req.CVText)),
		attribute.Int("request.job_length", len(req.JobDescription)),
	)

	result, err := s.Engine.Analyze(ctx, req)
	if err != nil {
		s.writeAppError(w, span, "Failed to analyze skills gap", err)
		return
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.String("analysis.id", result.AnalysisID),
	)
	writeJSON(w, span, result)
}

// createQuantitativeHandler runs the deterministic comparison only
func (s *Server) createQuantitativeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.quantitative")
		defer span.End()

		var req types.AnalysisRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		report, err := s.Engine.Quantitative(ctx, req)
		if err != nil {
			s.writeAppError(w, span, "Failed to compare skills", err)
			return
		}

		span.SetAttributes(attribute.Float64("match.overall_score", report.OverallScore))
		writeJSON(w, span, report)
	}
}

// createExtractHandler lists the normalized skills of one text
func (s *Server) createExtractHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.extract")
		defer span.End()

		var req types.ExtractRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		result, err := s.Engine.Extract(ctx, req)
		if err != nil {
			s.writeAppError(w, span, "Failed to extract skills", err)
			return
		}
		writeJSON(w, span, result)
	}
}

// createDemandHandler reports the market demand of ?skill=
func (s *Server) createDemandHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(tracerName).Start(r.Context(), "api.demand")
		defer span.End()

		skill := strings.TrimSpace(r.URL.Query().Get("skill"))
		span.SetAttributes(attribute.String("skill", skill))

		record, err := s.Engine.Demand(ctx, skill)
		if err != nil {
			s.writeAppError(w, span, "Failed to look up demand", err)
			return
		}
		writeJSON(w, span, record)
	}
}

// statusFor maps an application error onto an HTTP status
func statusFor(err error) int {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case appErr.Code == errors.ErrCodeAISafetyBlocked:
		return http.StatusUnprocessableEntity
	case appErr.Code == errors.ErrCodeAIResponseInvalid:
		return http.StatusBadGateway
	case appErr.Code == errors.ErrCodeAIServiceFailed, appErr.Type == errors.ErrorTypeNetwork:
		return http.StatusServiceUnavailable
	case appErr.Type == errors.ErrorTypeValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeAppError(w http.ResponseWriter, span trace.Span, message string, err error) {
	status := statusFor(err)
	span.RecordError(err)
	span.SetAttributes(attribute.Int("http.status_code", status))

	resp := ErrorResponse{Error: message, Message: err.Error()}
	if appErr, ok := errors.AsAppError(err); ok {
		resp.Code = appErr.Code
		span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
	}

	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, message, "status", status)
	} else {
		s.Logger.Debug(message, "status", status, "error", err.Error())
	}
	writeError(w, resp, status)
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	limit := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		limited := limit(next)
		return func(w http.ResponseWriter, r *http.Request) {
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			limited(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		}
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
