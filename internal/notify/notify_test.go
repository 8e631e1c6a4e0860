package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vodo/internal/notify"
)

func TestPushAssignsUniqueIDs(t *testing.T) {
	c := notify.NewCenter()
	a := c.Push(notify.LevelInfo, "first")
	b := c.Push(notify.LevelError, "second")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "first", c.Items()[0].Text)
}

func TestDismiss(t *testing.T) {
	c := notify.NewCenter()
	a := c.Push(notify.LevelWarning, "stale")
	b := c.Push(notify.LevelSuccess, "fresh")

	c.Dismiss(a.ID)
	items := c.Items()
	assert.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	// Dismissing twice (expiry racing explicit dismissal) is a no-op.
	c.Dismiss(a.ID)
	assert.Equal(t, 1, c.Len())
}

func TestLevelStrings(t *testing.T) {
	assert.Equal(t, "info", notify.LevelInfo.String())
	assert.Equal(t, "success", notify.LevelSuccess.String())
	assert.Equal(t, "warning", notify.LevelWarning.String())
	assert.Equal(t, "error", notify.LevelError.String())
}
