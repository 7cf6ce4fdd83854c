package server

import (
	"crypto/subtle"
	"net/http"

	"skillgap/internal/observability"
)

// access says which middleware guards a route
type access int

const (
	public   access = iota
	guarded         // rate limit and API key
	capped          // guarded plus the request body cap
)

type route struct {
	pattern     string
	description string
	access      access
	handler     func(om *observability.ObservabilityManager) http.HandlerFunc
}

// routeTable lists the API in display order
func (s *Server) routeTable() []route {
	return []route{
		{"GET /health", "Health check", public, s.healthHandler},
		{"GET /stats", "Server statistics", public, func(*observability.ObservabilityManager) http.HandlerFunc { return s.statsHandler }},
		{"POST /analyze", "Full skills-gap analysis", capped, s.createAnalyzeHandler},
		{"POST /analyze/upload", "Full analysis from an uploaded CV file", guarded, s.createUploadHandler},
		{"POST /analyze/quantitative", "Deterministic skill match only", capped, s.createQuantitativeHandler},
		{"POST /extract", "Extract normalized skills from text", capped, s.createExtractHandler},
		{"GET /demand", "Market demand for one skill (?skill=<name>)", capped, s.createDemandHandler},
	}
}

// setupRoutes registers the route table. Uploads are guarded without the JSON
// body cap because the upload handler limits multipart bodies itself.
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	limit := s.createRateLimitMiddleware(om)

	mux := http.NewServeMux()
	for _, rt := range s.routeTable() {
		h := rt.handler(om)
		switch rt.access {
		case capped:
			h = limit(s.authMiddleware(s.limitBody(h)))
		case guarded:
			h = limit(s.authMiddleware(h))
		}
		mux.HandleFunc(rt.pattern, h)
	}
	return mux
}

// authMiddleware accepts the X-API-Key header or an Authorization bearer token
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		switch {
		case apiKey == "":
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
		case !s.knownAPIKey(apiKey):
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
		default:
			next(w, r)
		}
	}
}

// knownAPIKey compares against every configured key in constant time
func (s *Server) knownAPIKey(candidate string) bool {
	found := 0
	for _, key := range s.APIKeys {
		found |= subtle.ConstantTimeCompare([]byte(candidate), []byte(key))
	}
	return found == 1
}

func (s *Server) limitBody(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next(w, r)
	}
}

// maskAPIKey keeps the first eight characters for log correlation
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
