package server

import "net/http"

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/link", s.handleLink)
	mux.HandleFunc("GET /api/entities", s.handleListEntities)
	mux.HandleFunc("GET /api/entities/{id}", s.handleGetEntity)
	mux.HandleFunc("POST /api/entities", s.handlePutEntity)
	mux.HandleFunc("DELETE /api/entities/{id}", s.handleDeleteEntity)
	mux.HandleFunc("POST /api/index/rebuild", s.handleRebuild)
	mux.HandleFunc("GET /api/review", s.handleReviewQueue)
	mux.HandleFunc("POST /api/review/{id}", s.handleApplyReview)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/info", s.handleInfo)

	return corsMiddleware(mux)
}
