package monitor

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/models"
)

// Risk tier cutpoints on the leaderboard mean score.
const (
	riskCriticalFloor = 80
	riskHighFloor     = 60
	riskMediumFloor   = 40
)

// Aggregator builds the observer's ranked risk view over all in-progress
// sessions. It reads persisted samples only; buffered-but-unflushed samples
// are invisible to it until the next flush.
type Aggregator struct {
	sessions databases.SessionDatabase
	scores   databases.ScoreDatabase
}

// NewAggregator creates a leaderboard aggregator over the session and score
// collections.
func NewAggregator(sessions databases.SessionDatabase, scores databases.ScoreDatabase) *Aggregator {
	return &Aggregator{sessions: sessions, scores: scores}
}

// Leaderboard computes one entry per in-progress session and returns them
// sorted by mean score descending, ties broken by session id ascending so
// repeated computation over unchanged data yields an identical ordering.
// A non-empty examID narrows the view to that exam's sessions.
func (a *Aggregator) Leaderboard(ctx context.Context, examID string) ([]models.LeaderboardEntry, error) {
	filter := bson.M{"status": models.SessionInProgress}
	if examID != "" {
		filter["examID"] = examID
	}
	sessions, err := a.sessions.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(sessions))
	for _, s := range sessions {
		samples, err := a.scores.Find(ctx, bson.M{"sessionID": s.ID})
		if err != nil {
			// One unreadable session must not blank the whole view.
			zap.S().Errorw("failed to load samples for leaderboard entry",
				"sessionID", s.ID, "error", err)
			continue
		}
		entries = append(entries, buildEntry(s, samples))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].MeanScore != entries[j].MeanScore {
			return entries[i].MeanScore > entries[j].MeanScore
		}
		return entries[i].SessionID < entries[j].SessionID
	})
	return entries, nil
}

// buildEntry folds one session's persisted samples into a leaderboard row:
// unweighted mean score, the union of every alert ever recorded, and the tier
// label for the mean.
func buildEntry(s models.Session, samples []models.ScoreSample) models.LeaderboardEntry {
	var sum float64
	union := mapset.NewSet[string]()
	for _, sample := range samples {
		sum += sample.Score
		union.Append(sample.Alerts...)
	}

	mean := 0.0
	if len(samples) > 0 {
		mean = sum / float64(len(samples))
	}

	return models.LeaderboardEntry{
		SessionID:  s.ID,
		StudentID:  s.StudentID,
		ExamID:     s.ExamID,
		MeanScore:  mean,
		RiskTier:   riskTier(mean),
		Alerts:     setToSorted(union),
		SampleSize: len(samples),
	}
}

func riskTier(mean float64) string {
	switch {
	case mean >= riskCriticalFloor:
		return models.RiskCritical
	case mean >= riskHighFloor:
		return models.RiskHigh
	case mean >= riskMediumFloor:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
