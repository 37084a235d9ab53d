package admin

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/models"
	"lonewolfcast/ingestion/internal/outcome"
	"lonewolfcast/ingestion/internal/sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// LeagueSyncer runs a league sync
type LeagueSyncer interface {
	SyncLeagues(ctx context.Context) (*sync.LeagueResult, error)
}

// MatchSyncer runs a match sync
type MatchSyncer interface {
	SyncMatches(ctx context.Context) (*sync.MatchSyncResult, error)
}

// PredictionSyncer runs prediction syncs and reports their progress
type PredictionSyncer interface {
	SyncPredictions(ctx context.Context) (*sync.PredictionSyncResult, error)
	SyncMatch(ctx context.Context, matchID int) (*sync.PredictionSyncResult, error)
	Status(ctx context.Context) (*models.PredictionSyncStatus, error)
}

// StatsSyncer runs a match statistics sync
type StatsSyncer interface {
	SyncStats(ctx context.Context) (*sync.StatsSyncResult, error)
}

// OddsSyncer runs an odds sync
type OddsSyncer interface {
	SyncOdds(ctx context.Context) (*sync.OddsSyncResult, error)
}

// Evaluator scores predictions against results
type Evaluator interface {
	EvaluateAll(ctx context.Context) (*outcome.Stats, error)
	AdviceCategories(ctx context.Context) ([]models.AdviceCategoryCount, error)
}

// Dashboard serves the cached dashboard summary. cache.DashboardCache satisfies it.
type Dashboard interface {
	Get(ctx context.Context) (*models.DashboardStats, error)
	Invalidate(ctx context.Context)
}

// Deps are the services behind the admin routes
type Deps struct {
	Leagues     LeagueSyncer
	Matches     MatchSyncer
	Predictions PredictionSyncer
	Stats       StatsSyncer
	Odds        OddsSyncer
	Evaluator   Evaluator
	Dashboard   Dashboard
	Usage       sync.UsageReporter
	Health      func(ctx context.Context) error
	// PoolStats is optional; when set /health reports the connection pool
	PoolStats   func() map[string]interface{}
}

// Server is the admin HTTP surface
type Server struct {
	deps       Deps
	dashboard  *template.Template
	router     *mux.Router
	httpServer *http.Server
}

// NewServer builds the router and the underlying http.Server
func NewServer(port int, deps Deps) *Server {
	s := &Server{
		deps: deps,
		dashboard: template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
			"when": formatTime,
		}).ParseFS(templateFS, "templates/dashboard.html")),
	}
	s.router = s.routes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      c.Handler(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(instrument)

	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/admin", s.handleDashboard).Methods(http.MethodGet)
	router.HandleFunc("/admin/", s.handleDashboard).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/usage-stats", s.handleUsageStats).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sync/leagues", s.handleSyncLeagues).Methods(http.MethodPost)
	api.HandleFunc("/sync/matches", s.handleSyncMatches).Methods(http.MethodPost)
	api.HandleFunc("/sync/predictions", s.handleSyncPredictions).Methods(http.MethodPost)
	api.HandleFunc("/sync/predictions/status", s.handlePredictionStatus).Methods(http.MethodGet)
	api.HandleFunc("/sync/predictions/{match_id:[0-9]+}", s.handleSyncMatchPredictions).Methods(http.MethodPost)
	api.HandleFunc("/sync/stats", s.handleSyncStats).Methods(http.MethodPost)
	api.HandleFunc("/sync/odds", s.handleSyncOdds).Methods(http.MethodPost)
	api.HandleFunc("/evaluate/predictions", s.handleEvaluate).Methods(http.MethodPost)
	api.HandleFunc("/predictions/advice-categories", s.handleAdviceCategories).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	})

	return router
}

// Handler returns the routed handler without CORS, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting admin server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics labelled by the matched route template
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		duration := time.Since(start)
		metrics.RecordHTTPRequest(route, r.Method, strconv.Itoa(rec.status), duration.Seconds())
		log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("duration", duration).
			Msg("Admin request")
	})
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "Never"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
