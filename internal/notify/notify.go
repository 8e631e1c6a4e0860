// Package notify holds the ephemeral user notifications raised by the
// shell: ids, severity levels and a fixed display lifetime.
package notify

import "time"

// TTL is how long a notification stays visible unless dismissed.
const TTL = 5 * time.Second

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

type Notification struct {
	ID    int
	Level Level
	Text  string
	At    time.Time
}

// Center is the shell-owned collection of live notifications. It is
// only touched from the UI update loop, so it carries no locking.
type Center struct {
	nextID int
	items  []Notification
}

func NewCenter() *Center {
	return &Center{}
}

// Push adds a notification and returns it; the caller schedules the
// expiry timer for the returned id.
func (c *Center) Push(level Level, text string) Notification {
	c.nextID++
	n := Notification{
		ID:    c.nextID,
		Level: level,
		Text:  text,
		At:    time.Now(),
	}
	c.items = append(c.items, n)
	return n
}

// Dismiss removes the notification with the given id. Expiry and
// explicit dismissal both land here; a missing id is a no-op.
func (c *Center) Dismiss(id int) {
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func (c *Center) Items() []Notification {
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Center) Len() int {
	return len(c.items)
}
