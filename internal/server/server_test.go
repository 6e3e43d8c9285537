package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/LinkWing/internal/knowledge"
	"github.com/josephgoksu/LinkWing/internal/linking"
)

func seedEntities(t *testing.T, store knowledge.EntityStore) {
	t.Helper()
	ctx := context.Background()
	entities := []knowledge.KnownEntity{
		{
			ID:              "ent-users",
			Name:            "GET /users",
			Type:            "Endpoint",
			Aliases:         []string{"users endpoint"},
			PopularityScore: 0.9,
		},
		{
			ID:               "ent-limit",
			Name:             "limit",
			Type:             "Parameter",
			RelatedEntityIDs: []string{"ent-users"},
			PopularityScore:  0.6,
		},
	}
	for _, e := range entities {
		_, err := store.Put(ctx, e)
		require.NoError(t, err)
	}
}

func newTestServer(t *testing.T, withRecords bool) (*Server, *knowledge.SQLiteStore) {
	t.Helper()

	store, err := knowledge.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	seedEntities(t, store)

	idx := linking.NewIndex()
	entities, err := store.ListAll(context.Background())
	require.NoError(t, err)
	idx.Rebuild(entities)

	session := linking.NewSession(
		linking.NewGenerator(idx),
		linking.NewEngine(linking.NewScorer(), nil, 0),
		store,
		linking.DefaultGeneratorOptions(),
	)

	deps := Deps{
		Store:   store,
		Index:   idx,
		Session: session,
		NewContext: func() (*linking.Context, error) {
			return linking.DefaultContext(false), nil
		},
		Version: "test",
	}
	if withRecords {
		deps.Records = store
	}
	return New(0, deps), store
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.registerRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHandleLink(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := doRequest(t, s, http.MethodPost, "/api/link", LinkRequest{
		DocumentID: "doc-1",
		Mentions: []linking.EntityMention{
			{Value: "GET /users", EntityType: "Endpoint"},
			{Value: "limit", EntityType: "Parameter"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "doc-1", resp.DocumentID)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "ent-users", resp.Results[0].ResolvedEntityID)
	assert.Equal(t, "ent-limit", resp.Results[1].ResolvedEntityID)
	assert.Equal(t, 2, resp.Stats.Total)
	assert.Equal(t, 2, resp.Stats.ByMethod[linking.MethodExactMatch])
}

func TestHandleLink_RequiresMentions(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := doRequest(t, s, http.MethodPost, "/api/link", LinkRequest{DocumentID: "doc-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLink_Persist(t *testing.T) {
	s, store := newTestServer(t, true)

	rec := doRequest(t, s, http.MethodPost, "/api/link", LinkRequest{
		DocumentID: "doc-1",
		Persist:    true,
		Mentions: []linking.EntityMention{
			{Value: "GET /users", EntityType: "Endpoint"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Confident outcomes are persisted without entering the review queue
	n, err := store.CountPendingReview(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleLink_PersistWithoutRecordsBackend(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := doRequest(t, s, http.MethodPost, "/api/link", LinkRequest{
		DocumentID: "doc-1",
		Persist:    true,
		Mentions:   []linking.EntityMention{{Value: "limit", EntityType: "Parameter"}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleListEntities(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := doRequest(t, s, http.MethodGet, "/api/entities", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entities []knowledge.KnownEntity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entities))
	assert.Len(t, entities, 2)

	rec = doRequest(t, s, http.MethodGet, "/api/entities?type=Parameter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entities))
	require.Len(t, entities, 1)
	assert.Equal(t, "ent-limit", entities[0].ID)
}

func TestHandleGetEntity(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := doRequest(t, s, http.MethodGet, "/api/entities/ent-users", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entity knowledge.KnownEntity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entity))
	assert.Equal(t, "GET /users", entity.Name)

	rec = doRequest(t, s, http.MethodGet, "/api/entities/ent-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePutEntity_UpdatesIndex(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := doRequest(t, s, http.MethodPost, "/api/entities", knowledge.KnownEntity{
		Name:            "offset",
		Type:            "Parameter",
		PopularityScore: 0.4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The new entity is immediately linkable
	rec = doRequest(t, s, http.MethodPost, "/api/link", LinkRequest{
		DocumentID: "doc-1",
		Mentions:   []linking.EntityMention{{Value: "offset", EntityType: "Parameter"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, linking.MethodExactMatch, resp.Results[0].Method)
}

func TestHandleDeleteEntity(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := doRequest(t, s, http.MethodDelete, "/api/entities/ent-limit", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Deleted entities no longer link
	rec = doRequest(t, s, http.MethodPost, "/api/link", LinkRequest{
		DocumentID: "doc-1",
		Mentions:   []linking.EntityMention{{Value: "limit", EntityType: "Parameter"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, linking.MethodUnlinked, resp.Results[0].Method)

	rec = doRequest(t, s, http.MethodDelete, "/api/entities/ent-limit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRebuild(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := doRequest(t, s, http.MethodPost, "/api/index/rebuild", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RebuildResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Indexed)
}

func TestReviewWorkflow(t *testing.T) {
	s, store := newTestServer(t, true)
	ctx := context.Background()

	require.NoError(t, store.SaveLinkRecords(ctx, []knowledge.LinkRecord{{
		ID:               "rec-1",
		DocumentID:       "doc-1",
		MentionValue:     "limit",
		ResolvedEntityID: "ent-limit",
		Method:           "scored_ranking",
		Confidence:       0.55,
		NeedsReview:      true,
	}}))

	rec := doRequest(t, s, http.MethodGet, "/api/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []knowledge.LinkRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, "rec-1", queue[0].ID)

	rec = doRequest(t, s, http.MethodPost, "/api/review/rec-1", ReviewRequest{EntityID: "ent-limit"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	assert.Empty(t, queue)

	rec = doRequest(t, s, http.MethodPost, "/api/review/rec-1", ReviewRequest{EntityID: "ent-limit"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewEndpointsRequireRecords(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := doRequest(t, s, http.MethodGet, "/api/review", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/review/rec-1", ReviewRequest{})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleStatsAndInfo(t *testing.T) {
	s, _ := newTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats, "index")
	assert.Contains(t, stats, "pendingReview")

	rec = doRequest(t, s, http.MethodGet, "/api/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "linkwing", info["name"])
}
