package linking

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/josephgoksu/LinkWing/internal/knowledge"
)

// Session drives a document's mention list through candidate generation,
// scoring, and the decision engine. Candidate generation fans out across
// a worker pool ahead of time; linking itself runs strictly in mention
// order because co-occurrence scoring for mention k depends on the
// resolved outcomes of mentions 1..k-1. Parallelism belongs across
// documents, never within one document's mention sequence.
type Session struct {
	generator *Generator
	engine    *Engine
	store     knowledge.EntityStore // optional; materializes resolved entities
	opts      GeneratorOptions
}

// NewSession wires the pipeline. store may be nil, in which case results
// carry ids but no materialized entity.
func NewSession(generator *Generator, engine *Engine, store knowledge.EntityStore, opts GeneratorOptions) *Session {
	return &Session{
		generator: generator,
		engine:    engine,
		store:     store,
		opts:      opts.normalized(),
	}
}

// DocumentRequest is one document's linking workload.
type DocumentRequest struct {
	DocumentID string          `json:"documentId"`
	Mentions   []EntityMention `json:"mentions"`
}

// LinkDocument links all mentions of one document in order. On
// cancellation it returns partial results for mentions already decided
// plus a cancellation marker for the rest, together with the context
// error; the accumulated session state stays consistent.
func (s *Session) LinkDocument(ctx context.Context, documentID string, mentions []EntityMention, lctx *Context) ([]LinkedEntity, SessionStats, error) {
	prepared := prepareMentions(documentID, mentions)

	// Generation is read-only against the index and safe to parallelize.
	candidateSets := s.generator.GenerateBatch(ctx, prepared, s.opts)

	results := make([]LinkedEntity, 0, len(prepared))
	for i, m := range prepared {
		if ctx.Err() != nil {
			// Mark the remainder; already-decided results stand.
			for _, rest := range prepared[i:] {
				results = append(results, LinkedEntity{
					Mention: rest,
					Method:  MethodUnlinked,
					Reason:  reasonCancelled,
				})
			}
			return results, computeStats(results), ctx.Err()
		}

		cs, ok := candidateSets[m.ID]
		if !ok {
			// Generation was cut short by cancellation; retrieve inline.
			cs = s.generator.Generate(m, s.opts)
		}

		le := s.engine.Link(ctx, cs, lctx)
		s.materialize(ctx, &le)
		lctx.RecordLink(le)
		results = append(results, le)
	}

	return results, computeStats(results), nil
}

// LinkDocuments runs independent document sessions concurrently, one
// fresh Context per document. Results keyed by document id.
func (s *Session) LinkDocuments(ctx context.Context, docs []DocumentRequest, newContext func() (*Context, error)) (map[string][]LinkedEntity, error) {
	results := make(map[string][]LinkedEntity, len(docs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for _, doc := range docs {
		wg.Add(1)
		go func(d DocumentRequest) {
			defer wg.Done()

			lctx, err := newContext()
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			linked, _, err := s.LinkDocument(ctx, d.DocumentID, d.Mentions, lctx)
			mu.Lock()
			defer mu.Unlock()
			results[d.DocumentID] = linked
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(doc)
	}
	wg.Wait()

	return results, firstErr
}

// materialize resolves the linked entity id against the store,
// best-effort. A store miss downgrades nothing; the id stands alone.
func (s *Session) materialize(ctx context.Context, le *LinkedEntity) {
	if s.store == nil || !le.Resolved() || le.ResolvedEntityID == "" {
		return
	}
	entity, err := s.store.GetByID(ctx, le.ResolvedEntityID)
	if err != nil {
		slog.Debug("could not materialize resolved entity", "id", le.ResolvedEntityID, "err", err)
		return
	}
	le.ResolvedEntity = entity
}

// prepareMentions stamps document id and assigns ids to mentions that
// arrived without one, preserving order.
func prepareMentions(documentID string, mentions []EntityMention) []EntityMention {
	prepared := make([]EntityMention, len(mentions))
	copy(prepared, mentions)
	for i := range prepared {
		if prepared[i].ID == "" {
			prepared[i].ID = "m-" + uuid.NewString()[:8]
		}
		if prepared[i].DocumentID == "" {
			prepared[i].DocumentID = documentID
		}
	}
	return prepared
}

// ToRecord converts one outcome into its persisted form for the sqlite
// backend's link history and review queue.
func ToRecord(le LinkedEntity) knowledge.LinkRecord {
	return knowledge.LinkRecord{
		DocumentID:       le.Mention.DocumentID,
		MentionValue:     le.Mention.Value,
		ResolvedEntityID: le.ResolvedEntityID,
		Method:           string(le.Method),
		Confidence:       le.Confidence,
		Reason:           le.Reason,
		NeedsReview:      le.NeedsReview,
	}
}

// computeStats aggregates counts by method and average confidence over
// resolved results.
func computeStats(results []LinkedEntity) SessionStats {
	stats := SessionStats{
		Total:    len(results),
		ByMethod: make(map[Method]int),
	}

	confidenceSum := 0.0
	resolved := 0
	for _, le := range results {
		stats.ByMethod[le.Method]++
		if le.NeedsReview {
			stats.NeedsReview++
		}
		if le.Resolved() {
			confidenceSum += le.Confidence
			resolved++
		}
	}
	if resolved > 0 {
		stats.AverageConfidence = confidenceSum / float64(resolved)
	}
	return stats
}
