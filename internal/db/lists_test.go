package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskcore/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestListsArePerUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	added, err := db.AddList(ctx, 1, "Trabajo")
	require.NoError(t, err)
	assert.True(t, added)
	_, err = db.AddList(ctx, 1, "  Casa ")
	require.NoError(t, err)
	_, err = db.AddList(ctx, 2, "Otro")
	require.NoError(t, err)

	names, err := db.ListNames(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Casa", "Trabajo"}, names)

	rows, err := db.Lists(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Otro", rows[0].Name)
	assert.NotEmpty(t, rows[0].CreatedAt)
}

func TestAddListIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.AddList(ctx, 1, "Casa")
	require.NoError(t, err)
	added, err := db.AddList(ctx, 1, "Casa")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestAddListValidation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.AddList(ctx, 1, " ")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = db.AddList(ctx, 1, model.DefaultCategory)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestRemoveList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.AddList(ctx, 1, "Casa")
	require.NoError(t, err)

	removed, err := db.RemoveList(ctx, 1, "Casa")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = db.RemoveList(ctx, 1, "Casa")
	require.NoError(t, err)
	assert.False(t, removed)

	names, err := db.ListNames(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReopenKeepsLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.AddList(context.Background(), 1, "Casa")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	names, err := db.ListNames(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Casa"}, names)
}
