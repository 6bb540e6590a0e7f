package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.HandleFunc("POST /admin/reload", s.apiHandlers.HandleReload)

	// JSON API, all accepting ?start=YYYY-MM-DD&end=YYYY-MM-DD
	s.mux.HandleFunc("GET /api/report", s.apiHandlers.HandleReport)
	s.mux.HandleFunc("GET /api/daily-trend", s.apiHandlers.HandleDailyTrend)
	s.mux.HandleFunc("GET /api/variants", s.apiHandlers.HandleVariants)
	s.mux.HandleFunc("GET /api/payments", s.apiHandlers.HandlePayments)
	s.mux.HandleFunc("GET /api/records", s.apiHandlers.HandleRecords)
	s.mux.HandleFunc("GET /api/bounds", s.apiHandlers.HandleBounds)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/view", s.sseHandlers.HandleView)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
