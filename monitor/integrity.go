// Package monitor runs the server side of a proctored session: the integrity
// state machine over browser environment events, the capture/analyze loop
// against the external classifier, and the score ingestion and evidence
// policy that bounds what gets persisted.
package monitor

import (
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Alert keys emitted by the integrity state machine. These merge with the
// classifier's per-frame alerts into one de-duplicated set.
const (
	AlertTabInactive      = "tab_inactive"
	AlertTabSwitched      = "tab_switched_away"
	AlertExitedFullscreen = "exited_fullscreen"
)

// Environment event kinds as reported by the student's browser. The state
// machine only ever consumes these events; it never reaches into ambient
// browser state itself.
const (
	EventVisibilityHidden  = "visibility_hidden"
	EventVisibilityVisible = "visibility_visible"
	EventFocusLost         = "focus_lost"
	EventFocusGained       = "focus_gained"
	EventFullscreenExited  = "fullscreen_exited"
	EventFullscreenEntered = "fullscreen_entered"
	EventActivity          = "activity"
)

// Clock returns the current time; tests substitute a fake.
type Clock func() time.Time

// IntegrityConfig holds the tab-grace and idle-watchdog policy knobs.
type IntegrityConfig struct {
	// GraceRecoveries is how many times tab_inactive may clear on recovery
	// before it becomes sticky for the rest of the session.
	GraceRecoveries int
	// IdleThreshold is how long the watchdog tolerates zero pointer/keyboard
	// activity before flagging the session inactive. The watchdog is stricter
	// than the focus/visibility signals on purpose: it catches silent stalls
	// where the OS suppresses focus events.
	IdleThreshold time.Duration
}

// Integrity converts raw visibility/focus/fullscreen/activity signals into a
// stable alert set with debounce. Each signal type is tracked independently.
type Integrity struct {
	cfg IntegrityConfig
	now Clock

	mu             sync.Mutex
	alerts         mapset.Set[string]
	inactive       bool
	sticky         bool
	recoveriesLeft int
	fullscreenOut  bool
	lastActivity   time.Time
}

// NewIntegrity creates the per-session integrity state machine.
func NewIntegrity(cfg IntegrityConfig, now Clock) *Integrity {
	if now == nil {
		now = time.Now
	}
	return &Integrity{
		cfg:            cfg,
		now:            now,
		alerts:         mapset.NewSet[string](),
		recoveriesLeft: cfg.GraceRecoveries,
		lastActivity:   now(),
	}
}

// Handle dispatches one environment event.
func (m *Integrity) Handle(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case EventVisibilityHidden:
		m.markInactive(false)
	case EventFocusLost:
		m.markInactive(true)
	case EventVisibilityVisible, EventFocusGained:
		m.recover()
	case EventFullscreenExited:
		m.fullscreenOut = true
		m.alerts.Add(AlertExitedFullscreen)
	case EventFullscreenEntered:
		m.fullscreenOut = false
		m.alerts.Remove(AlertExitedFullscreen)
	case EventActivity:
		m.lastActivity = m.now()
		m.recover()
	}
}

// Tick runs the idle-activity watchdog. Called on a fixed cadence (200ms in
// the default config); flags the session inactive when no activity arrived
// within the threshold window, even if no focus/visibility event fired.
func (m *Integrity) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.now().Sub(m.lastActivity) > m.cfg.IdleThreshold {
		m.markInactive(false)
	}
}

// Alerts returns the current alert set, sorted for determinism. Repeated
// firing of the same alert is idempotent.
func (m *Integrity) Alerts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return setToSorted(m.alerts)
}

// setToSorted flattens an alert set into a deterministic slice.
func setToSorted(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}

// Set returns a copy of the alert set for merging with classifier alerts.
func (m *Integrity) Set() mapset.Set[string] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts.Clone()
}

func (m *Integrity) markInactive(switchedAway bool) {
	m.inactive = true
	m.alerts.Add(AlertTabInactive)
	if switchedAway {
		m.alerts.Add(AlertTabSwitched)
	}
}

// recover clears the inactivity alerts while grace remains. Once grace is
// exhausted the alerts are sticky for the rest of the session.
func (m *Integrity) recover() {
	if !m.inactive || m.sticky {
		return
	}
	if m.recoveriesLeft <= 0 {
		m.sticky = true
		return
	}
	m.recoveriesLeft--
	m.inactive = false
	m.alerts.Remove(AlertTabInactive)
	m.alerts.Remove(AlertTabSwitched)
	m.lastActivity = m.now()
}
