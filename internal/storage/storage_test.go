package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vodo/internal/storage"
	"vodo/internal/store"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	_, err := s.Create(ctx, store.Task{
		ID:        "a",
		Text:      "water plants",
		AudioURL:  "http://cdn/a.wav",
		Email:     "bob@example.com",
		DueDate:   &due,
		CreatedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = s.Create(ctx, store.Task{
		ID:        "b",
		Text:      "later task",
		CreatedAt: time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	tasks, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	got := tasks[0]
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "water plants", got.Text)
	assert.False(t, got.Completed)
	assert.Equal(t, "http://cdn/a.wav", got.AudioURL)
	assert.Equal(t, "bob@example.com", got.Email)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	assert.Nil(t, tasks[1].DueDate)
}

func TestUpdatePatchSemantics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, store.Task{ID: "a", Text: "original", Email: "keep@example.com"})
	require.NoError(t, err)

	done := true
	updated, err := s.Update(ctx, "a", store.Patch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "original", updated.Text, "untouched fields survive a partial update")
	assert.Equal(t, "keep@example.com", updated.Email)

	text := "renamed"
	updated, err = s.Update(ctx, "a", store.Patch{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Text)
	assert.True(t, updated.Completed)

	_, err = s.Update(ctx, "missing", store.Patch{Text: &text})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, store.Task{ID: "a", Text: "gone soon"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "a"))
	tasks, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// Deleting a missing id is a no-op.
	require.NoError(t, s.Delete(ctx, "a"))
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := storage.Open(path)
	require.NoError(t, err)
	_, err = s.Create(ctx, store.Task{ID: "a", Text: "durable"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = storage.Open(path)
	require.NoError(t, err)
	defer s.Close()
	tasks, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "durable", tasks[0].Text)
}
