package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/josephgoksu/LinkWing/internal/knowledge"
	"github.com/josephgoksu/LinkWing/internal/linking"
)

// handleLink runs one document session.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Mentions) == 0 {
		http.Error(w, "mentions are required", http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" {
		req.DocumentID = "doc-adhoc"
	}

	lctx, err := s.deps.NewContext()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	results, stats, err := s.deps.Session.LinkDocument(r.Context(), req.DocumentID, req.Mentions, lctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if req.Persist {
		if s.deps.Records == nil {
			http.Error(w, "record persistence requires the sqlite backend", http.StatusConflict)
			return
		}
		records := make([]knowledge.LinkRecord, 0, len(results))
		for _, le := range results {
			records = append(records, linking.ToRecord(le))
		}
		if err := s.deps.Records.SaveLinkRecords(r.Context(), records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	writeAPIJSON(w, LinkResponse{
		DocumentID: req.DocumentID,
		Results:    results,
		Stats:      stats,
	})
}

// handleListEntities lists stored entities, optionally filtered by type.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	typeFilter := r.URL.Query().Get("type")

	entities, err := s.deps.Store.ListAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if typeFilter != "" {
		filtered := entities[:0]
		for _, e := range entities {
			if e.Type == typeFilter {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}
	if entities == nil {
		entities = []knowledge.KnownEntity{}
	}

	writeAPIJSON(w, entities)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	entity, err := s.deps.Store.GetByID(r.Context(), id)
	if errors.Is(err, knowledge.ErrNotFound) {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeAPIJSON(w, entity)
}

// handlePutEntity upserts an entity and refreshes the index so the next
// linking request sees it.
func (s *Server) handlePutEntity(w http.ResponseWriter, r *http.Request) {
	var entity knowledge.KnownEntity
	if err := json.NewDecoder(r.Body).Decode(&entity); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if entity.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	saved, err := s.deps.Store.Put(r.Context(), entity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var delta knowledge.EntityDelta
	if _, exists := s.deps.Index.GetByID(saved.ID); exists {
		delta.Updated = []knowledge.KnownEntity{saved}
	} else {
		delta.Added = []knowledge.KnownEntity{saved}
	}
	s.deps.Index.ApplyDelta(delta)
	writeAPIJSON(w, saved)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	err := s.deps.Store.Delete(r.Context(), id)
	if errors.Is(err, knowledge.ErrNotFound) {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.deps.Index.ApplyDelta(knowledge.EntityDelta{DeletedIDs: []string{id}})
	w.WriteHeader(http.StatusNoContent)
}

// handleRebuild reloads the full snapshot into the index.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	entities, err := s.deps.Store.ListAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	n := s.deps.Index.Rebuild(entities)
	writeAPIJSON(w, RebuildResponse{Indexed: n})
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		http.Error(w, "review queue requires the sqlite backend", http.StatusConflict)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	queue, err := s.deps.Records.ListReviewQueue(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if queue == nil {
		queue = []knowledge.LinkRecord{}
	}
	writeAPIJSON(w, queue)
}

func (s *Server) handleApplyReview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		http.Error(w, "review queue requires the sqlite backend", http.StatusConflict)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := s.deps.Records.ApplyReview(r.Context(), id, req.EntityID)
	if errors.Is(err, knowledge.ErrNotFound) {
		http.Error(w, "pending record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeAPIJSON(w, map[string]any{"success": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"index": s.deps.Index.Stats(),
	}
	if s.deps.Records != nil {
		if pending, err := s.deps.Records.CountPendingReview(r.Context()); err == nil {
			stats["pendingReview"] = pending
		}
	}
	writeAPIJSON(w, stats)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, map[string]string{
		"name":    "linkwing",
		"version": s.deps.Version,
	})
}
