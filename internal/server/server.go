// Package server exposes the linking engine over HTTP. One POST /api/link
// request is one document session: mentions are linked in order against a
// fresh session context.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/josephgoksu/LinkWing/internal/knowledge"
	"github.com/josephgoksu/LinkWing/internal/linking"
)

// RecordStore is the persistence surface for linking outcomes and the
// review workflow. The sqlite backend implements it; the file backend
// does not, which disables the review endpoints.
type RecordStore interface {
	SaveLinkRecords(ctx context.Context, records []knowledge.LinkRecord) error
	ListReviewQueue(ctx context.Context, limit int) ([]knowledge.LinkRecord, error)
	ApplyReview(ctx context.Context, recordID, entityID string) error
	CountPendingReview(ctx context.Context) (int, error)
}

// Deps carries the wired engine components.
type Deps struct {
	Store      knowledge.EntityStore
	Records    RecordStore // may be nil
	Index      *linking.Index
	Session    *linking.Session
	NewContext func() (*linking.Context, error)
	Version    string
}

type Server struct {
	deps   Deps
	port   int
	server *http.Server
}

// New builds the HTTP server around the given components.
func New(port int, deps Deps) *Server {
	s := &Server{deps: deps, port: port}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.registerRoutes(),
	}
	return s
}

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
