package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"vodo/internal/store"
)

var errRemote = errors.New("remote unavailable")

// fakeRemote accepts everything unless a failure flag is set.
type fakeRemote struct {
	failCreate bool
	failUpdate bool
	failDelete bool
	failList   bool

	listResult []store.Task
	creates    int
}

func (f *fakeRemote) List(ctx context.Context) ([]store.Task, error) {
	if f.failList {
		return nil, errRemote
	}
	return f.listResult, nil
}

func (f *fakeRemote) Create(ctx context.Context, t store.Task) (store.Task, error) {
	if f.failCreate {
		return store.Task{}, errRemote
	}
	f.creates++
	return t, nil
}

func (f *fakeRemote) Update(ctx context.Context, id string, p store.Patch) (store.Task, error) {
	if f.failUpdate {
		return store.Task{}, errRemote
	}
	t := store.Task{ID: id}
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	if f.failDelete {
		return errRemote
	}
	return nil
}

func TestAddAppendsIncompleteTask(t *testing.T) {
	s := store.New(&fakeRemote{})
	ctx := context.Background()

	created, err := s.Add(ctx, store.Draft{Text: "Buy milk"})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "Buy milk", created.Text)
	assert.False(t, created.Completed)
	assert.Empty(t, created.AudioURL)
	assert.Empty(t, created.Email)
	assert.Nil(t, created.DueDate)
	assert.NotEmpty(t, created.ID)

	// Append order: second task lands at the tail.
	second, err := s.Add(ctx, store.Draft{Text: "Walk dog"})
	require.NoError(t, err)
	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[1].ID)
}

func TestAddUniqueIDs(t *testing.T) {
	s := store.New(&fakeRemote{})
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		created, err := s.Add(ctx, store.Draft{Text: "t"})
		require.NoError(t, err)
		assert.False(t, seen[created.ID], "duplicate id %s", created.ID)
		seen[created.ID] = true
	}
}

func TestAddRollsBackOnRemoteFailure(t *testing.T) {
	s := store.New(&fakeRemote{failCreate: true})

	_, err := s.Add(context.Background(), store.Draft{Text: "doomed"})
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, 0, s.Len(), "optimistic insert must be rolled back")
}

func TestToggleTwiceRestoresState(t *testing.T) {
	s := store.New(&fakeRemote{})
	ctx := context.Background()
	created, err := s.Add(ctx, store.Draft{Text: "flip me"})
	require.NoError(t, err)

	require.NoError(t, s.Toggle(ctx, created.ID))
	assert.True(t, s.Tasks()[0].Completed)

	require.NoError(t, s.Toggle(ctx, created.ID))
	assert.False(t, s.Tasks()[0].Completed)
}

func TestToggleMissingIDIsNoop(t *testing.T) {
	s := store.New(&fakeRemote{})
	require.NoError(t, s.Toggle(context.Background(), "no-such-id"))
	assert.Equal(t, 0, s.Len())
}

func TestToggleRollsBackOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{}
	s := store.New(remote)
	ctx := context.Background()
	created, err := s.Add(ctx, store.Draft{Text: "sticky"})
	require.NoError(t, err)

	remote.failUpdate = true
	require.ErrorIs(t, s.Toggle(ctx, created.ID), errRemote)
	assert.False(t, s.Tasks()[0].Completed, "failed toggle must revert")
}

func TestRemoveDeletesExactlyOne(t *testing.T) {
	s := store.New(&fakeRemote{})
	ctx := context.Background()
	a, _ := s.Add(ctx, store.Draft{Text: "a"})
	b, _ := s.Add(ctx, store.Draft{Text: "b"})
	c, _ := s.Add(ctx, store.Draft{Text: "c"})

	require.NoError(t, s.Remove(ctx, b.ID))
	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, a.ID, tasks[0].ID)
	assert.Equal(t, c.ID, tasks[1].ID)

	// Missing id is a no-op.
	require.NoError(t, s.Remove(ctx, "no-such-id"))
	assert.Equal(t, 2, s.Len())
}

func TestRemoveRollsBackAtPosition(t *testing.T) {
	remote := &fakeRemote{}
	s := store.New(remote)
	ctx := context.Background()
	s.Add(ctx, store.Draft{Text: "first"})
	mid, _ := s.Add(ctx, store.Draft{Text: "middle"})
	s.Add(ctx, store.Draft{Text: "last"})

	remote.failDelete = true
	require.ErrorIs(t, s.Remove(ctx, mid.ID), errRemote)

	tasks := s.Tasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, mid.ID, tasks[1].ID, "rollback must reinsert at the prior position")
}

func TestUpdateMergesAndRollsBack(t *testing.T) {
	remote := &fakeRemote{}
	s := store.New(remote)
	ctx := context.Background()
	created, err := s.Add(ctx, store.Draft{Text: "old"})
	require.NoError(t, err)

	text := "new"
	require.NoError(t, s.Update(ctx, created.ID, store.Patch{Text: &text}))
	assert.Equal(t, "new", s.Tasks()[0].Text)

	remote.failUpdate = true
	text2 := "newer"
	require.ErrorIs(t, s.Update(ctx, created.ID, store.Patch{Text: &text2}), errRemote)
	assert.Equal(t, "new", s.Tasks()[0].Text, "failed update must revert")

	require.ErrorIs(t, s.Update(ctx, "no-such-id", store.Patch{Text: &text}), store.ErrNotFound)
}

func TestLoadReplacesCollection(t *testing.T) {
	remote := &fakeRemote{listResult: []store.Task{
		{ID: "1", Text: "from server"},
		{ID: "2", Text: "also from server", Completed: true},
	}}
	s := store.New(remote)

	require.NoError(t, s.Load(context.Background()))
	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "from server", tasks[0].Text)
	assert.True(t, tasks[1].Completed)

	remote.failList = true
	require.ErrorIs(t, s.Load(context.Background()), errRemote)
	assert.Equal(t, 2, s.Len(), "failed load keeps the previous collection")
}

func TestStoreProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := store.New(&fakeRemote{})
		ctx := context.Background()
		var ids []string

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				created, err := s.Add(ctx, store.Draft{Text: rapid.StringN(1, 20, 20).Draw(t, "text")})
				if err != nil {
					t.Fatalf("add failed: %v", err)
				}
				ids = append(ids, created.ID)
			case 1:
				if len(ids) == 0 {
					continue
				}
				id := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "idx")]
				before := findCompleted(s, id)
				s.Toggle(ctx, id)
				s.Toggle(ctx, id)
				if got := findCompleted(s, id); got != before {
					t.Fatalf("double toggle changed completion of %s", id)
				}
			case 2:
				if len(ids) == 0 {
					continue
				}
				idx := rapid.IntRange(0, len(ids)-1).Draw(t, "ridx")
				s.Remove(ctx, ids[idx])
				ids = append(ids[:idx], ids[idx+1:]...)
			}
			if s.Len() != len(ids) {
				t.Fatalf("collection size %d, expected %d", s.Len(), len(ids))
			}
		}
	})
}

func findCompleted(s *store.Store, id string) bool {
	for _, t := range s.Tasks() {
		if t.ID == id {
			return t.Completed
		}
	}
	return false
}
