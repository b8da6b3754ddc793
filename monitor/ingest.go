package monitor

import (
	"math"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/examshield/proctor-api/models"
)

// DefaultCriticalAlerts is the alert set that triggers an immediate snapshot
// regardless of the consecutive-low-score count (cooldown permitting).
var DefaultCriticalAlerts = mapset.NewSet(
	"phone_detected",
	"away_5_seconds",
	"no_face",
)

// DefaultConfidence is assumed for samples the classifier returned without a
// confidence value, both at ingestion and in the final weighted score.
const DefaultConfidence = 50

// EvidencePolicy holds the snapshot trigger knobs: a cooldown since the last
// capture, a minimum run of consecutive high-suspicion samples, and a set of
// critical alerts that bypass the run requirement.
type EvidencePolicy struct {
	Cooldown           time.Duration
	MinRun             int
	SuspicionThreshold float64
	CriticalAlerts     mapset.Set[string]
}

// Ingestor buffers the classifier's per-frame output between flushes and
// evaluates the evidence policy. One producer appends (the session's capture
// loop); drains for persistence happen concurrently, so the buffer is
// swap-and-clear under a mutex — no sample is lost to a concurrent drain.
type Ingestor struct {
	policy EvidencePolicy
	now    Clock

	mu          sync.Mutex
	buf         []models.ScoreSample
	lowRun      int
	lastCapture time.Time
}

// NewIngestor creates a per-session ingestion buffer with the given policy.
func NewIngestor(policy EvidencePolicy, now Clock) *Ingestor {
	if now == nil {
		now = time.Now
	}
	if policy.CriticalAlerts == nil {
		policy.CriticalAlerts = DefaultCriticalAlerts
	}
	return &Ingestor{policy: policy, now: now}
}

// SuspicionFromFocus inverts the classifier's focus score into a suspicion
// score: suspicion = round(100 - focus), clamped to [0,100].
func SuspicionFromFocus(focus float64) float64 {
	if focus < 0 {
		focus = 0
	}
	if focus > 100 {
		focus = 100
	}
	return math.Round(100 - focus)
}

// Append adds one sample to the buffer.
func (i *Ingestor) Append(s models.ScoreSample) {
	i.mu.Lock()
	i.buf = append(i.buf, s)
	i.mu.Unlock()
}

// Drain swaps the buffer out and returns it. Appends racing the drain land in
// the fresh buffer and are picked up by the next flush.
func (i *Ingestor) Drain() []models.ScoreSample {
	i.mu.Lock()
	out := i.buf
	i.buf = nil
	i.mu.Unlock()
	return out
}

// Pending returns the current buffer size.
func (i *Ingestor) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.buf)
}

// Decimate bounds write volume for a drained batch: samples carrying alerts
// are always kept, the rest are kept at 1-in-keepRate density.
func Decimate(samples []models.ScoreSample, keepRate int) []models.ScoreSample {
	if keepRate <= 1 {
		return samples
	}
	kept := make([]models.ScoreSample, 0, len(samples)/keepRate+1)
	for idx, s := range samples {
		if s.HasAlerts() || idx%keepRate == 0 {
			kept = append(kept, s)
		}
	}
	return kept
}

// ShouldCapture evaluates the evidence trigger for one sample. The
// consecutive-low-score run tracks samples at or above the suspicion
// threshold and resets the moment one drops below; a capture fires when the
// cooldown has elapsed and either the run reaches MinRun or the sample
// carries a critical alert. Firing resets both the cooldown and the run.
func (i *Ingestor) ShouldCapture(s models.ScoreSample) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if s.Score >= i.policy.SuspicionThreshold {
		i.lowRun++
	} else {
		i.lowRun = 0
	}

	if !i.lastCapture.IsZero() && i.now().Sub(i.lastCapture) < i.policy.Cooldown {
		return false
	}

	critical := false
	for _, a := range s.Alerts {
		if i.policy.CriticalAlerts.Contains(a) {
			critical = true
			break
		}
	}

	if i.lowRun >= i.policy.MinRun || critical {
		i.lastCapture = i.now()
		i.lowRun = 0
		return true
	}
	return false
}

// FinalScore computes the session's terminal suspicion score: the
// confidence-weighted mean of all persisted samples, with confidence
// defaulting to 50 when absent and 0 when there are no samples. The
// aggregation is commutative, so the result is invariant to sample order and
// always lies in [0,100].
func FinalScore(samples []models.ScoreSample) float64 {
	var totalScore, totalWeight float64
	for _, s := range samples {
		weight := s.Confidence
		if weight <= 0 {
			weight = DefaultConfidence
		}
		totalScore += s.Score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return totalScore / totalWeight
}
