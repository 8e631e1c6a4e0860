package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Update when no task matches the given id.
// Toggle and Remove treat a missing id as a no-op instead.
var ErrNotFound = errors.New("task not found")

// Task is a single to-do entry. The JSON shape matches the backend's
// todo resource.
type Task struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	AudioURL  string     `json:"audioUrl,omitempty"`
	Email     string     `json:"email,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Patch carries a partial update. A nil field is not sent; a non-nil
// zero value clears the field on the backend.
type Patch struct {
	Text      *string    `json:"text,omitempty"`
	Completed *bool      `json:"completed,omitempty"`
	AudioURL  *string    `json:"audioUrl,omitempty"`
	Email     *string    `json:"email,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
}

// Draft holds the pending form fields assembled into a new task.
type Draft struct {
	Text     string
	AudioURL string
	Email    string
	DueDate  *time.Time
}

// Remote is the persistence API behind the store. The HTTP client and
// the local SQLite variant both satisfy it.
type Remote interface {
	List(ctx context.Context) ([]Task, error)
	Create(ctx context.Context, t Task) (Task, error)
	Update(ctx context.Context, id string, p Patch) (Task, error)
	Delete(ctx context.Context, id string) error
}

// Store owns the in-memory task collection and keeps it in sync with a
// Remote. Mutations are optimistic: local state changes first, the
// remote call follows, and a failure applies the inverse mutation
// captured before the change.
type Store struct {
	mu     sync.Mutex
	tasks  []Task
	remote Remote
}

func New(remote Remote) *Store {
	return &Store{remote: remote}
}

// Load replaces the collection with the remote's current list.
func (s *Store) Load(ctx context.Context) error {
	tasks, err := s.remote.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return nil
}

// Tasks returns a snapshot of the collection in insertion order.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Add creates a task from the draft, appends it locally, then creates
// it remotely. On remote failure the local task is removed again and
// the error is returned.
func (s *Store) Add(ctx context.Context, d Draft) (Task, error) {
	t := Task{
		ID:        uuid.NewString(),
		Text:      d.Text,
		Completed: false,
		AudioURL:  d.AudioURL,
		Email:     d.Email,
		DueDate:   d.DueDate,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	created, err := s.remote.Create(ctx, t)
	if err != nil {
		s.removeLocal(t.ID)
		zap.L().Warn("create rolled back", zap.String("id", t.ID), zap.Error(err))
		return Task{}, err
	}

	// The backend may assign its own id or timestamps.
	s.replaceLocal(t.ID, created)
	return created, nil
}

// Toggle flips the completion flag of the matching task. A missing id
// is a no-op.
func (s *Store) Toggle(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	prev := s.tasks[i]
	s.tasks[i].Completed = !prev.Completed
	next := s.tasks[i].Completed
	s.mu.Unlock()

	_, err := s.remote.Update(ctx, id, Patch{Completed: &next})
	if err != nil {
		s.replaceLocal(id, prev)
		zap.L().Warn("toggle rolled back", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Update merges the patch into the matching task and pushes it to the
// remote, rolling back on failure.
func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	prev := s.tasks[i]
	s.tasks[i] = applyPatch(prev, p)
	s.mu.Unlock()

	updated, err := s.remote.Update(ctx, id, p)
	if err != nil {
		s.replaceLocal(id, prev)
		zap.L().Warn("update rolled back", zap.String("id", id), zap.Error(err))
		return err
	}
	s.replaceLocal(id, updated)
	return nil
}

// Remove deletes the matching task locally and remotely. On remote
// failure the task is reinserted at its previous position. A missing
// id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	prev := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.mu.Unlock()

	if err := s.remote.Delete(ctx, id); err != nil {
		s.insertLocal(i, prev)
		zap.L().Warn("delete rolled back", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	}
}

func (s *Store) replaceLocal(id string, t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.tasks[i] = t
	}
}

func (s *Store) insertLocal(i int, t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 {
		i = 0
	}
	if i > len(s.tasks) {
		i = len(s.tasks)
	}
	s.tasks = append(s.tasks[:i], append([]Task{t}, s.tasks[i:]...)...)
}

func applyPatch(t Task, p Patch) Task {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.AudioURL != nil {
		t.AudioURL = *p.AudioURL
	}
	if p.Email != nil {
		t.Email = *p.Email
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	return t
}
