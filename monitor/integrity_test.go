package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func testIntegrityConfig() IntegrityConfig {
	return IntegrityConfig{
		GraceRecoveries: 1,
		IdleThreshold:   time.Second,
	}
}

func TestIntegrityVisibilityGraceThenSticky(t *testing.T) {
	clock := newFakeClock()
	m := NewIntegrity(testIntegrityConfig(), clock.Now)

	m.Handle(EventVisibilityHidden)
	assert.Equal(t, []string{AlertTabInactive}, m.Alerts())

	// First recovery consumes the single grace.
	m.Handle(EventVisibilityVisible)
	assert.Empty(t, m.Alerts())

	// Second lapse sticks for the rest of the session.
	m.Handle(EventVisibilityHidden)
	m.Handle(EventVisibilityVisible)
	assert.Equal(t, []string{AlertTabInactive}, m.Alerts())

	m.Handle(EventActivity)
	assert.Equal(t, []string{AlertTabInactive}, m.Alerts())
}

func TestIntegrityFocusLossMarksSwitchedAway(t *testing.T) {
	clock := newFakeClock()
	m := NewIntegrity(testIntegrityConfig(), clock.Now)

	m.Handle(EventFocusLost)
	assert.Equal(t, []string{AlertTabInactive, AlertTabSwitched}, m.Alerts())

	m.Handle(EventFocusGained)
	assert.Empty(t, m.Alerts())
}

func TestIntegrityFullscreenReentryClears(t *testing.T) {
	clock := newFakeClock()
	m := NewIntegrity(testIntegrityConfig(), clock.Now)

	m.Handle(EventFullscreenExited)
	assert.Equal(t, []string{AlertExitedFullscreen}, m.Alerts())

	// Fullscreen clears on re-entry every time; it carries no grace budget.
	m.Handle(EventFullscreenEntered)
	assert.Empty(t, m.Alerts())

	m.Handle(EventFullscreenExited)
	m.Handle(EventFullscreenEntered)
	assert.Empty(t, m.Alerts())
}

func TestIntegrityWatchdogFlagsIdleSession(t *testing.T) {
	clock := newFakeClock()
	m := NewIntegrity(testIntegrityConfig(), clock.Now)

	// Within the threshold nothing fires.
	clock.Advance(900 * time.Millisecond)
	m.Tick()
	assert.Empty(t, m.Alerts())

	// Past the threshold the watchdog flags even without any focus event.
	clock.Advance(200 * time.Millisecond)
	m.Tick()
	assert.Equal(t, []string{AlertTabInactive}, m.Alerts())

	// Activity recovers while grace remains.
	m.Handle(EventActivity)
	assert.Empty(t, m.Alerts())
}

func TestIntegrityRepeatedAlertsIdempotent(t *testing.T) {
	clock := newFakeClock()
	m := NewIntegrity(testIntegrityConfig(), clock.Now)

	m.Handle(EventVisibilityHidden)
	m.Handle(EventVisibilityHidden)
	m.Handle(EventFocusLost)
	m.Handle(EventFocusLost)

	assert.Equal(t, []string{AlertTabInactive, AlertTabSwitched}, m.Alerts())
}
