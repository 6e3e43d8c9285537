package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_PutGetRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	saved, err := store.Put(ctx, KnownEntity{
		Name:             "GET /users",
		Type:             "Endpoint",
		Aliases:          []string{"users endpoint"},
		Properties:       map[string]any{"tag": "users"},
		RelatedEntityIDs: []string{"ent-limit"},
		PopularityScore:  0.9,
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := store.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "GET /users", got.Name)
	assert.Equal(t, []string{"users endpoint"}, got.Aliases)
	assert.Equal(t, []string{"ent-limit"}, got.RelatedEntityIDs)
	assert.Equal(t, "users", got.Properties["tag"])
	assert.InDelta(t, 0.9, got.PopularityScore, 1e-9)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSQLiteStore_PutUpserts(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, KnownEntity{ID: "ent-limit", Name: "limit", Type: "Parameter"})
	require.NoError(t, err)
	_, err = store.Put(ctx, KnownEntity{ID: "ent-limit", Name: "limit", Type: "Parameter", PopularityScore: 0.7})
	require.NoError(t, err)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.InDelta(t, 0.7, all[0].PopularityScore, 1e-9)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newSQLiteStore(t)

	_, err := store.GetByID(context.Background(), "ent-nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, KnownEntity{ID: "ent-limit", Name: "limit"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "ent-limit"))
	assert.ErrorIs(t, store.Delete(ctx, "ent-limit"), ErrNotFound)
}

func TestSQLiteStore_LinkRecordsAndReviewQueue(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	records := []LinkRecord{
		{
			DocumentID:       "doc-1",
			MentionValue:     "limit",
			ResolvedEntityID: "ent-limit",
			Method:           "scored_ranking",
			Confidence:       0.55,
			NeedsReview:      true,
			CreatedAt:        time.Now().Add(-time.Minute),
		},
		{
			DocumentID:       "doc-1",
			MentionValue:     "GET /users",
			ResolvedEntityID: "ent-users",
			Method:           "exact_match",
			Confidence:       1.0,
		},
		{
			DocumentID:   "doc-2",
			MentionValue: "mystery",
			Method:       "unlinked",
			NeedsReview:  false,
		},
	}
	require.NoError(t, store.SaveLinkRecords(ctx, records))

	queue, err := store.ListReviewQueue(ctx, 0)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "limit", queue[0].MentionValue)
	assert.True(t, queue[0].NeedsReview)
	assert.NotEmpty(t, queue[0].ID)

	n, err := store.CountPendingReview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_ApplyReview_Confirm(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLinkRecords(ctx, []LinkRecord{{
		ID:           "rec-1",
		DocumentID:   "doc-1",
		MentionValue: "limit",
		Method:       "scored_ranking",
		Confidence:   0.55,
		NeedsReview:  true,
	}}))

	require.NoError(t, store.ApplyReview(ctx, "rec-1", "ent-limit"))

	queue, err := store.ListReviewQueue(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, queue)

	// Reviewing twice is rejected
	assert.ErrorIs(t, store.ApplyReview(ctx, "rec-1", "ent-limit"), ErrNotFound)
}

func TestSQLiteStore_ApplyReview_Reject(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLinkRecords(ctx, []LinkRecord{{
		ID:           "rec-1",
		DocumentID:   "doc-1",
		MentionValue: "limit",
		Method:       "scored_ranking",
		Confidence:   0.55,
		NeedsReview:  true,
	}}))

	require.NoError(t, store.ApplyReview(ctx, "rec-1", ""))

	n, err := store.CountPendingReview(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_ApplyReview_UnknownRecord(t *testing.T) {
	store := newSQLiteStore(t)

	err := store.ApplyReview(context.Background(), "rec-missing", "ent-limit")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ReviewQueueLimit(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	var records []LinkRecord
	for i := 0; i < 5; i++ {
		records = append(records, LinkRecord{
			DocumentID:   "doc-1",
			MentionValue: "m",
			Method:       "scored_ranking",
			NeedsReview:  true,
			CreatedAt:    time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	require.NoError(t, store.SaveLinkRecords(ctx, records))

	queue, err := store.ListReviewQueue(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, queue, 2)
}
