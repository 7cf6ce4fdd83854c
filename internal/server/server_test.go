package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"skillgap/internal/ai"
	"skillgap/internal/analysis"
	"skillgap/internal/config"
	"skillgap/internal/errors"
	"skillgap/internal/market"
	"skillgap/internal/matcher"
	"skillgap/internal/observability"
	"skillgap/internal/skills"
	"skillgap/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCV  = "Jane Doe. Backend developer with 5 years of Python and some Docker."
	testJob = "We need Kubernetes, Docker, Python and AWS experience."
)

type stubProvider struct {
	refine    ai.Outcome[types.RefinedProfile]
	coach     ai.Outcome[types.CoachingPlan]
	available bool
}

func (p *stubProvider) RefineSkills(context.Context, types.RefineInput) ai.Outcome[types.RefinedProfile] {
	return p.refine
}

func (p *stubProvider) Coach(context.Context, types.CoachInput) ai.Outcome[types.CoachingPlan] {
	return p.coach
}

func (p *stubProvider) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "stub-model", Available: p.available}
}

func (p *stubProvider) Close() error { return nil }

func healthyProvider() *stubProvider {
	return &stubProvider{
		refine: ai.Outcome[types.RefinedProfile]{Status: ai.StatusOK, Value: types.RefinedProfile{
			CVProfile: []types.SkillProfile{{Skill: "Python", ProficiencyYou: 4}},
			JobProfile: []types.JobRequirement{
				{Skill: "Python", ProficiencyReq: 4, IsMustHave: true},
				{Skill: "Kubernetes", ProficiencyReq: 3},
			},
			OverallScores: types.OverallScores{Coverage: 50, Depth: 60, Recency: 70},
		}},
		coach: ai.Outcome[types.CoachingPlan]{Status: ai.StatusOK, Value: types.CoachingPlan{
			Summary: "Learn Kubernetes next.",
		}},
		available: true,
	}
}

func quietLogger() *errors.Logger {
	return errors.NewLoggerTo(io.Discard, slog.LevelError)
}

func newTestServer(t *testing.T, provider *stubProvider, cfg ServerConfig) (*Server, http.Handler) {
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

	extractor, err := skills.NewExtractor(skills.ExtractorOptions{Logger: quietLogger()})
	require.NoError(t, err)

	svc := ai.NewServiceWithProvider(provider, &config.OperationAIConfig{Provider: "stub"}, quietLogger())
	engine := analysis.New(analysis.Deps{
		Store:   store,
		Matcher: matcher.New(extractor, skills.NewNormalizer(store, nil), store),
		Refine:  svc,
		Coach:   svc,
		Logger:  quietLogger(),
	})

	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 1 << 20
	}
	s := NewServer(nil, cfg, quietLogger())
	s.Engine = engine
	t.Cleanup(func() {
		if s.RateLimiter != nil {
			s.RateLimiter.Close()
		}
	})
	return s, s.setupRoutes(observability.Disabled())
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAnalyzeEndpoint(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{})

	rec := postJSON(t, h, "/analyze", types.AnalysisRequest{CVText: testCV, JobDescription: testJob})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.FullAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AnalysisID)
	assert.Equal(t, analysis.DefaultJobTitle, resp.JobTitle)
	assert.Equal(t, "Learn Kubernetes next.", resp.AISummary)
	assert.Equal(t, 1, resp.SanitizeAttempts)
	require.Len(t, resp.JobSkillProfile, 2)
	assert.Equal(t, "Python", resp.JobSkillProfile[0].Skill)
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	blocked := healthyProvider()
	blocked.refine = ai.Outcome[types.RefinedProfile]{Status: ai.StatusSafetyBlocked,
		Err: errors.NewAIError(errors.ErrCodeAISafetyBlocked, "blocked", nil)}

	invalid := healthyProvider()
	invalid.refine = ai.Outcome[types.RefinedProfile]{Status: ai.StatusShapeError,
		Err: errors.NewAIError(errors.ErrCodeAIResponseInvalid, "bad shape", nil)}

	down := healthyProvider()
	down.coach = ai.Outcome[types.CoachingPlan]{Status: ai.StatusServiceError,
		Err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "unavailable", nil)}

	tests := []struct {
		name     string
		provider *stubProvider
		body     types.AnalysisRequest
		status   int
		code     string
	}{
		{"missing cv", healthyProvider(), types.AnalysisRequest{JobDescription: testJob}, http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"missing job", healthyProvider(), types.AnalysisRequest{CVText: testCV}, http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"safety blocked", blocked, types.AnalysisRequest{CVText: testCV, JobDescription: testJob}, http.StatusUnprocessableEntity, errors.ErrCodeAISafetyBlocked},
		{"invalid reply", invalid, types.AnalysisRequest{CVText: testCV, JobDescription: testJob}, http.StatusBadGateway, errors.ErrCodeAIResponseInvalid},
		{"service down", down, types.AnalysisRequest{CVText: testCV, JobDescription: testJob}, http.StatusServiceUnavailable, errors.ErrCodeAIServiceFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestServer(t, tt.provider, ServerConfig{})
			rec := postJSON(t, h, "/analyze", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestAnalyzeRejectsNonJSON(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("cv_text=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "application/json")
}

func TestAnalyzeMethodNotAllowed(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestSizeLimit(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{MaxRequestSize: 64})

	rec := postJSON(t, h, "/analyze", types.AnalysisRequest{CVText: strings.Repeat("python ", 50), JobDescription: testJob})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "too large")
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("cv_file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadEndpoint(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "cv.txt", testCV, map[string]string{
		"job_description": testJob,
		"job_title":       "Platform Engineer",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.FullAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Platform Engineer", resp.JobTitle)
	assert.Equal(t, 4, resp.QuantitativeSummary.SkillsBreakdown.JobSkillsCount)
}

func TestUploadEndpointWithoutFileLimit(t *testing.T) {
	s, h := newTestServer(t, healthyProvider(), ServerConfig{})
	s.MaxFileSize = 0

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "cv.txt", testCV, map[string]string{"job_description": testJob}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUploadEndpointErrors(t *testing.T) {
	t.Run("unsupported type", func(t *testing.T) {
		_, h := newTestServer(t, healthyProvider(), ServerConfig{})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, uploadRequest(t, "cv.exe", testCV, map[string]string{"job_description": testJob}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.ErrCodeUnsupportedDocument, decodeError(t, rec).Code)
	})

	t.Run("file too large", func(t *testing.T) {
		_, h := newTestServer(t, healthyProvider(), ServerConfig{MaxFileSize: 16})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, uploadRequest(t, "cv.txt", testCV, map[string]string{"job_description": testJob}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.ErrCodeInvalidRequest, decodeError(t, rec).Code)
	})

	t.Run("missing file", func(t *testing.T) {
		_, h := newTestServer(t, healthyProvider(), ServerConfig{})
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("job_description", testJob))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/analyze/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing CV file", decodeError(t, rec).Error)
	})
}

func TestQuantitativeEndpoint(t *testing.T) {
	provider := healthyProvider()
	provider.refine = ai.Outcome[types.RefinedProfile]{Status: ai.StatusServiceError,
		Err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "must not be called", nil)}
	_, h := newTestServer(t, provider, ServerConfig{})

	rec := postJSON(t, h, "/analyze/quantitative", types.AnalysisRequest{CVText: testCV, JobDescription: testJob})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report types.QuantitativeReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.SkillsBreakdown.MatchedCount)
	assert.InDelta(t, 50.0, report.OverallScore, 0.001)
	require.NotEmpty(t, report.MissingSkillsPrioritized)
	assert.Equal(t, "Kubernetes", report.MissingSkillsPrioritized[0].Skill)
}

func TestQuantitativeEndpointEmptyJob(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{})

	rec := postJSON(t, h, "/analyze/quantitative", types.AnalysisRequest{CVText: testCV, JobDescription: ""})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report types.QuantitativeReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 50.0, report.OverallScore)
	assert.Equal(t, 0, report.SkillsBreakdown.JobSkillsCount)
	assert.Empty(t, report.MissingSkillsPrioritized)
}

func TestExtractEndpoint(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{})

	rec := postJSON(t, h, "/extract", types.ExtractRequest{Text: "Python and Kubernetes"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ExtractResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	names := make([]string, 0, len(resp.Skills))
	for _, s := range resp.Skills {
		names = append(names, s.Normalized)
	}
	assert.ElementsMatch(t, []string{"Python", "Kubernetes"}, names)

	rec = postJSON(t, h, "/extract", types.ExtractRequest{Text: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDemandEndpoint(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/demand?skill=Kubernetes", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var record types.DemandRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, int64(6000), record.TotalDemand)
	assert.Equal(t, types.PriorityCritical, record.Priority)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/demand", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{APIKeys: []string{"secret-key-123456"}})

	tests := []struct {
		name   string
		header func(*http.Request)
		status int
	}{
		{"missing key", func(*http.Request) {}, http.StatusUnauthorized},
		{"wrong key", func(r *http.Request) { r.Header.Set("X-API-Key", "nope") }, http.StatusUnauthorized},
		{"header key", func(r *http.Request) { r.Header.Set("X-API-Key", "secret-key-123456") }, http.StatusOK},
		{"bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-key-123456") }, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/demand?skill=python", nil)
			tt.header(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health is public")
}

func TestAuthAcceptsEveryConfiguredKey(t *testing.T) {
	s, h := newTestServer(t, healthyProvider(), ServerConfig{APIKeys: []string{"key-one-000001", "", "key-two-000002", "key-one-000001"}})
	assert.Equal(t, []string{"key-one-000001", "key-two-000002"}, s.APIKeys)

	for key, status := range map[string]int{
		"key-one-000001":  http.StatusOK,
		"key-two-000002":  http.StatusOK,
		"key-one-00000":   http.StatusUnauthorized,
		"key-two-0000021": http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/demand?skill=python", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, key)
	}
}

func TestRateLimit(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{
		RateLimit: &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 2, ByIP: true},
	})

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/demand?skill=python", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))

	req := httptest.NewRequest(http.MethodGet, "/demand?skill=python", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per client")
}

func TestRateLimitRetryAfterFollowsRefillRate(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{
		RateLimit: &config.RateLimitConfig{Enabled: true, RequestsPerMin: 120, BurstCapacity: 1, ByAPIKey: true},
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/demand?skill=python", nil)
		req.Header.Set("Authorization", "Bearer caller-key-0001")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	limited := send()
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(60, 1, quietLogger())
	t.Cleanup(rl.Close)

	allowed, _ := rl.Allow("ip:10.0.0.1")
	assert.True(t, allowed)
	allowed, wait := rl.Allow("ip:10.0.0.1")
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
	allowed, _ = rl.Allow("ip:10.0.0.2")
	assert.True(t, allowed)

	stats := rl.GetStats()
	assert.Equal(t, 2, stats["active_limiters"])
	assert.Equal(t, int64(1), stats["rejected_requests"])

	assert.Zero(t, rl.evictIdle(time.Now()))
	assert.Equal(t, 2, rl.evictIdle(time.Now().Add(limiterEvictionAge+time.Second)))
	assert.Equal(t, 0, rl.GetStats()["active_limiters"])

	rl.Close()
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, 2, retryAfterSeconds(1100*time.Millisecond))
	assert.Equal(t, 60, retryAfterSeconds(59990*time.Millisecond))
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		_, h := newTestServer(t, healthyProvider(), ServerConfig{Version: "1.2.3"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
		models, ok := body["ai_models"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, models, config.OperationRefine)
		assert.Contains(t, models, config.OperationCoach)
	})

	t.Run("degraded", func(t *testing.T) {
		provider := healthyProvider()
		provider.available = false
		_, h := newTestServer(t, provider, ServerConfig{})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"degraded"`)
	})
}

func TestStatsEndpoint(t *testing.T) {
	_, h := newTestServer(t, healthyProvider(), ServerConfig{MaxRequestSize: 2048})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Server struct {
			MaxRequestSize int64 `json:"max_request_size_bytes"`
		} `json:"server"`
		Data         market.Stats   `json:"data"`
		RateLimiting map[string]any `json:"rate_limiting"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2048), body.Server.MaxRequestSize)
	assert.Equal(t, 4, body.Data.DemandSkills)
	assert.Equal(t, false, body.RateLimiting["enabled"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad", nil), http.StatusBadRequest},
		{errors.NewAIError(errors.ErrCodeAISafetyBlocked, "blocked", nil), http.StatusUnprocessableEntity},
		{errors.NewAIError(errors.ErrCodeAIResponseInvalid, "shape", nil), http.StatusBadGateway},
		{errors.NewAIError(errors.ErrCodeAIServiceFailed, "down", nil), http.StatusServiceUnavailable},
		{errors.NewNetworkError(errors.ErrCodeTaggerFailed, "tagger", nil), http.StatusServiceUnavailable},
		{errors.NewConfigError(errors.ErrCodeInvalidConfig, "cfg", nil), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:5555"
	assert.Equal(t, "192.168.1.5", getClientIP(req))

	req.Header.Set("X-Real-IP", "10.1.1.1")
	assert.Equal(t, "10.1.1.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage, 172.16.0.9, 10.0.0.1")
	assert.Equal(t, "172.16.0.9", getClientIP(req))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	s, h := newTestServer(t, healthyProvider(), ServerConfig{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, &http.Server{Handler: h, ReadHeaderTimeout: time.Second}, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestWriteServerInfo(t *testing.T) {
	s, _ := newTestServer(t, healthyProvider(), ServerConfig{
		APIKeys:   []string{"secret-key-123456"},
		RateLimit: &config.RateLimitConfig{Enabled: true, RequestsPerMin: 30, BurstCapacity: 5, ByIP: true},
	})

	var buf bytes.Buffer
	s.writeServerInfo(&buf)
	out := buf.String()

	for _, rt := range s.routeTable() {
		assert.Contains(t, out, rt.pattern)
	}
	assert.Contains(t, out, "ENABLED (1 keys configured)")
	assert.Contains(t, out, "30 requests/min, burst 5")
	assert.NotContains(t, out, "secret-key-123456")
}
