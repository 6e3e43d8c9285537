package knowledge

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `entities:
  - id: ent-users
    name: GET /users
    type: Endpoint
    aliases: [users endpoint, list users]
    popularity: 0.9
  - id: ent-limit
    name: limit
    type: Parameter
    related: [ent-users]
    popularity: 0.6
`

func newFileStore(t *testing.T, contents string) (*FileStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if contents != "" {
		require.NoError(t, afero.WriteFile(fs, "knowledge.yaml", []byte(contents), 0o644))
	}
	store, err := NewFileStore(fs, "knowledge.yaml")
	require.NoError(t, err)
	return store, fs
}

func TestFileStore_LoadsSnapshot(t *testing.T) {
	store, _ := newFileStore(t, sampleYAML)
	ctx := context.Background()

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Ordered by id
	assert.Equal(t, "ent-limit", all[0].ID)
	assert.Equal(t, "ent-users", all[1].ID)
	assert.Equal(t, []string{"users endpoint", "list users"}, all[1].Aliases)
	assert.Equal(t, []string{"ent-users"}, all[0].RelatedEntityIDs)
	assert.InDelta(t, 0.9, all[1].PopularityScore, 1e-9)
}

func TestFileStore_MissingFileStartsEmpty(t *testing.T) {
	store, _ := newFileStore(t, "")

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStore_GetByID(t *testing.T) {
	store, _ := newFileStore(t, sampleYAML)
	ctx := context.Background()

	e, err := store.GetByID(ctx, "ent-users")
	require.NoError(t, err)
	assert.Equal(t, "GET /users", e.Name)

	_, err = store.GetByID(ctx, "ent-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_PutAssignsIDAndPersists(t *testing.T) {
	store, fs := newFileStore(t, sampleYAML)
	ctx := context.Background()

	saved, err := store.Put(ctx, KnownEntity{Name: "offset", Type: "Parameter", PopularityScore: 0.4})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Contains(t, saved.ID, "ent-")
	assert.False(t, saved.UpdatedAt.IsZero())

	// A fresh store over the same file sees the write
	reopened, err := NewFileStore(fs, "knowledge.yaml")
	require.NoError(t, err)
	got, err := reopened.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "offset", got.Name)
}

func TestFileStore_PutRejectsEmptyName(t *testing.T) {
	store, _ := newFileStore(t, "")

	_, err := store.Put(context.Background(), KnownEntity{Name: "   "})
	assert.Error(t, err)
}

func TestFileStore_Delete(t *testing.T) {
	store, fs := newFileStore(t, sampleYAML)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "ent-limit"))
	_, err := store.GetByID(ctx, "ent-limit")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "ent-limit"), ErrNotFound)

	reopened, err := NewFileStore(fs, "knowledge.yaml")
	require.NoError(t, err)
	all, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileStore_SkipsMalformedRows(t *testing.T) {
	store, _ := newFileStore(t, `entities:
  - id: ent-ok
    name: limit
    type: Parameter
  - id: ""
    name: orphan
  - id: ent-unnamed
    name: ""
`)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ent-ok", all[0].ID)
}

func TestFileStore_ReloadComputesDelta(t *testing.T) {
	store, fs := newFileStore(t, sampleYAML)

	// External edit: drop ent-limit, change ent-users, add ent-orders.
	updated := `entities:
  - id: ent-users
    name: GET /users
    type: Endpoint
    aliases: [users endpoint]
    popularity: 0.95
  - id: ent-orders
    name: GET /orders
    type: Endpoint
    popularity: 0.5
`
	require.NoError(t, afero.WriteFile(fs, "knowledge.yaml", []byte(updated), 0o644))

	delta, err := store.Reload()
	require.NoError(t, err)

	require.Len(t, delta.Added, 1)
	assert.Equal(t, "ent-orders", delta.Added[0].ID)
	require.Len(t, delta.Updated, 1)
	assert.Equal(t, "ent-users", delta.Updated[0].ID)
	assert.Equal(t, []string{"ent-limit"}, delta.DeletedIDs)

	// Memory now matches the file
	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFileStore_ReloadUnchangedIsEmptyDelta(t *testing.T) {
	store, _ := newFileStore(t, sampleYAML)

	delta, err := store.Reload()
	require.NoError(t, err)
	assert.True(t, delta.Empty())
}
