package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/export"
	"github.com/sells-group/crime-etl/internal/model"
)

// IncidentSource returns the persisted incidents fact table.
type IncidentSource interface {
	LoadIncidents(ctx context.Context) ([]model.IncidentFact, error)
}

// DefaultCacheTTL is how long a loaded incidents table is reused across requests.
const DefaultCacheTTL = 5 * time.Minute

// Server answers dashboard queries over a cached copy of the incidents table.
type Server struct {
	source  IncidentSource
	ttl     time.Duration
	origins []string
	now     func() time.Time

	mu       sync.Mutex
	rows     []model.IncidentFact
	loadedAt time.Time
}

// NewServer creates a Server. ttl <= 0 reloads on every request.
func NewServer(source IncidentSource, ttl time.Duration, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{source: source, ttl: ttl, origins: allowedOrigins, now: time.Now}
}

// Router returns the HTTP handler for the dashboard API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/timeseries", s.handleTimeseries)
		r.Get("/severity", s.handleSeverity)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/incidents.csv", s.handleCSV)
	})
	return r
}

// Invalidate drops the cached table so the next request reloads it.
func (s *Server) Invalidate() {
	s.mu.Lock()
	s.rows = nil
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Server) incidents(ctx context.Context) ([]model.IncidentFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rows != nil && s.ttl > 0 && s.now().Sub(s.loadedAt) < s.ttl {
		return s.rows, nil
	}
	rows, err := s.source.LoadIncidents(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: load incidents")
	}
	if rows == nil {
		rows = []model.IncidentFact{}
	}
	s.rows, s.loadedAt = rows, s.now()
	zap.L().Debug("dashboard: incidents loaded", zap.Int("rows", len(rows)))
	return rows, nil
}

// filtered parses the request filter and applies it, writing an error response on failure.
func (s *Server) filtered(w http.ResponseWriter, r *http.Request) ([]model.IncidentFact, bool) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	rows, err := s.incidents(r.Context())
	if err != nil {
		zap.L().Error("dashboard: incidents unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err)
		return nil, false
	}
	return f.Apply(rows), true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Summarize(rows))
}

func (s *Server) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period": p,
		"series": GroupByPeriod(rows, p),
	})
}

func (s *Server) handleSeverity(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SeverityByType(rows))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, eris.Errorf("dashboard: invalid limit %q", v))
			return
		}
		limit = n
	}
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Leaderboard(rows, limit))
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered_crime_data.csv"`)
	w.WriteHeader(http.StatusOK)

	if _, err := export.WriteIncidentsCSV(w, rows); err != nil {
		zap.L().Warn("dashboard: write csv", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("dashboard: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
