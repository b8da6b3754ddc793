package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/examshield/proctor-api/config"
	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/models"
	"github.com/examshield/proctor-api/storage"
)

// Config collects the per-session policy knobs.
type Config struct {
	FlushInterval      time.Duration
	DecimationKeepRate int
	WatchdogTick       time.Duration
	Policy             EvidencePolicy
	Integrity          IntegrityConfig
}

// ConfigFrom maps the service configuration onto the monitor policy.
func ConfigFrom(conf *config.Config) Config {
	return Config{
		FlushInterval:      conf.FlushInterval,
		DecimationKeepRate: conf.DecimationKeepRate,
		WatchdogTick:       conf.WatchdogTick,
		Policy: EvidencePolicy{
			Cooldown:           conf.SnapshotCooldown,
			MinRun:             conf.SnapshotMinRun,
			SuspicionThreshold: conf.SuspicionThreshold,
			CriticalAlerts:     DefaultCriticalAlerts,
		},
		Integrity: IntegrityConfig{
			GraceRecoveries: conf.TabGraceRecoveries,
			IdleThreshold:   conf.IdleThreshold,
		},
	}
}

// StatusUpdate is sent back to the student after each analyzed frame: a
// best-effort view of the latest known state.
type StatusUpdate struct {
	Score  float64  `json:"score"`
	Status string   `json:"status"`
	Alerts []string `json:"alerts"`
}

// Monitor owns all live state for one in-progress session: the integrity
// machine, the ingestion buffer, and the periodic flush and watchdog tasks.
// Exactly one producer (the session's capture loop) writes into it.
type Monitor struct {
	SessionID string
	StudentID string

	cfg        Config
	classifier Classifier
	integrity  *Integrity
	ingestor   *Ingestor
	scores     databases.ScoreDatabase
	snapshots  databases.SnapshotDatabase
	store      storage.ObjectStore

	alive    atomic.Bool
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	teardown []func()
}

// New creates a Monitor for one session. Call Start to launch the periodic
// tasks and Stop exactly once to tear everything down.
func New(sessionID, studentID string, cfg Config, classifier Classifier,
	scores databases.ScoreDatabase, snapshots databases.SnapshotDatabase, store storage.ObjectStore) *Monitor {

	m := &Monitor{
		SessionID:  sessionID,
		StudentID:  studentID,
		cfg:        cfg,
		classifier: classifier,
		integrity:  NewIntegrity(cfg.Integrity, nil),
		ingestor:   NewIngestor(cfg.Policy, nil),
		scores:     scores,
		snapshots:  snapshots,
		store:      store,
		done:       make(chan struct{}),
	}
	m.alive.Store(true)
	return m
}

// Alive reports whether the session is still being monitored.
func (m *Monitor) Alive() bool {
	return m.alive.Load()
}

// Integrity exposes the session's integrity state machine.
func (m *Monitor) Integrity() *Integrity {
	return m.integrity
}

// AddTeardown registers a hook run, in registration order, between stopping
// the capture loop and the final flush. Handlers register the peer-connection
// close and the signaling-room unsubscribe here so teardown is never partial.
func (m *Monitor) AddTeardown(fn func()) {
	m.mu.Lock()
	m.teardown = append(m.teardown, fn)
	m.mu.Unlock()
}

// Start launches the flush timer and the idle watchdog. Both stop
// deterministically when the session ends.
func (m *Monitor) Start() {
	go func() {
		flush := time.NewTicker(m.cfg.FlushInterval)
		watchdog := time.NewTicker(m.cfg.WatchdogTick)
		defer flush.Stop()
		defer watchdog.Stop()

		for {
			select {
			case <-m.done:
				return
			case <-watchdog.C:
				m.integrity.Tick()
			case <-flush.C:
				m.Flush(context.Background())
			}
		}
	}()
}

// HandleEvent feeds one browser environment event into the integrity machine.
func (m *Monitor) HandleEvent(kind string) {
	if !m.alive.Load() {
		return
	}
	m.integrity.Handle(kind)
}

// ProcessFrame runs one iteration of the capture/analyze cycle: forward the
// frame to the classifier, merge its alerts with the integrity alerts, buffer
// the sample, and evaluate the evidence trigger. The caller's read loop
// guarantees no two iterations run concurrently for the same session.
// Classifier failures are transport errors: the caller logs and carries on.
func (m *Monitor) ProcessFrame(ctx context.Context, frame []byte) (*StatusUpdate, error) {
	if !m.alive.Load() {
		return nil, fmt.Errorf("session %s is no longer monitored", m.SessionID)
	}

	result, err := m.classifier.Analyze(ctx, frame)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return &StatusUpdate{Status: "analysis unavailable", Alerts: []string{}}, nil
	}

	suspicion := SuspicionFromFocus(result.FocusScore)

	merged := mapset.NewSet(result.Alerts...)
	merged = merged.Union(m.integrity.Set())
	alerts := setToSorted(merged)

	sample := models.ScoreSample{
		SessionID:  m.SessionID,
		Score:      suspicion,
		Confidence: result.Confidence,
		Alerts:     alerts,
		Timestamp:  primitive.NewDateTimeFromTime(time.Now()),
	}
	m.ingestor.Append(sample)

	if m.ingestor.ShouldCapture(sample) {
		m.captureSnapshot(ctx, frame)
	}

	return &StatusUpdate{
		Score:  suspicion,
		Status: m.statusFor(alerts, result.Status),
		Alerts: alerts,
	}, nil
}

// Flush drains the buffer, decimates it, and persists the batch. A failed
// write drops the batch: lossy degradation beats unbounded buffer growth.
func (m *Monitor) Flush(ctx context.Context) {
	batch := m.ingestor.Drain()
	if len(batch) == 0 {
		return
	}
	kept := Decimate(batch, m.cfg.DecimationKeepRate)
	if len(kept) == 0 {
		return
	}

	docs := make([]interface{}, len(kept))
	for i, s := range kept {
		docs[i] = s
	}
	if err := m.scores.InsertMany(ctx, docs); err != nil {
		zap.S().Errorw("failed to persist score batch, dropping",
			"sessionID", m.SessionID,
			"samples", len(kept),
			"error", err,
		)
	}
}

// Stop ends monitoring in the required order: stop the capture loop, run the
// teardown hooks (peer connection close, room unsubscribe), flush buffered
// samples, release the classifier connection. Idempotent.
func (m *Monitor) Stop(ctx context.Context) {
	m.stopOnce.Do(func() {
		m.alive.Store(false)
		close(m.done)

		m.mu.Lock()
		hooks := m.teardown
		m.teardown = nil
		m.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}

		m.Flush(ctx)
		if err := m.classifier.Close(); err != nil {
			zap.S().Warnw("failed to close classifier connection",
				"sessionID", m.SessionID, "error", err)
		}
	})
}

func (m *Monitor) captureSnapshot(ctx context.Context, frame []byte) {
	path := fmt.Sprintf("%s/%s/%d", m.StudentID, m.SessionID, time.Now().UnixMilli())
	url, err := m.store.Upload(ctx, path, frame)
	if err != nil {
		zap.S().Errorw("failed to upload snapshot",
			"sessionID", m.SessionID, "path", path, "error", err)
		return
	}

	_, err = m.snapshots.InsertOne(ctx, models.Snapshot{
		SessionID:   m.SessionID,
		StoragePath: url,
		CapturedAt:  primitive.NewDateTimeFromTime(time.Now()),
	})
	if err != nil {
		// The upload already succeeded; evidence is best-effort, not
		// transactional.
		zap.S().Errorw("failed to persist snapshot metadata",
			"sessionID", m.SessionID, "path", path, "error", err)
	}
}

func (m *Monitor) statusFor(alerts []string, classifierStatus string) string {
	for _, a := range alerts {
		switch a {
		case AlertExitedFullscreen:
			return "please return to fullscreen"
		case AlertTabInactive:
			return "tab inactive"
		}
	}
	if classifierStatus != "" {
		return classifierStatus
	}
	return "monitoring active"
}

// Registry tracks the Monitor for every in-progress session. Reads happen on
// every websocket message and from the leaderboard path, so it is a
// concurrent map rather than a mutexed one.
type Registry struct {
	monitors *xsync.MapOf[string, *Monitor]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{monitors: xsync.NewMapOf[string, *Monitor]()}
}

// Register adds a monitor, replacing and stopping any stale one for the same
// session.
func (r *Registry) Register(m *Monitor) {
	if old, ok := r.monitors.LoadAndStore(m.SessionID, m); ok && old != m {
		old.Stop(context.Background())
	}
}

// Get returns the monitor for a session.
func (r *Registry) Get(sessionID string) (*Monitor, bool) {
	return r.monitors.Load(sessionID)
}

// Remove drops and returns the monitor for a session.
func (r *Registry) Remove(sessionID string) (*Monitor, bool) {
	return r.monitors.LoadAndDelete(sessionID)
}
