// Package scheduler runs the background jobs that keep session state honest:
// the exam-end reaper auto-submits sessions whose student never pressed
// submit, so no session stays in_progress forever.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/models"
)

// Finalizer applies a session's terminal transition through the same scoring
// path the submit endpoint uses.
type Finalizer interface {
	FinalizeSession(ctx context.Context, sessionID string) error
}

// Scheduler owns the cron runner and the reaper job's dependencies.
type Scheduler struct {
	cron      *cron.Cron
	SessionDB databases.SessionDatabase
	ExamDB    databases.ExamDatabase
	Finalizer Finalizer
}

// NewScheduler creates a new scheduler instance
func NewScheduler(sessionDB databases.SessionDatabase, examDB databases.ExamDatabase, finalizer Finalizer) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		SessionDB: sessionDB,
		ExamDB:    examDB,
		Finalizer: finalizer,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	_, err := s.cron.AddFunc("* * * * *", s.ReapExpiredSessions)
	if err != nil {
		zap.S().Errorw("failed to register session reaper job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("session reaper started")
}

// Stop gracefully stops the scheduler, letting a running job finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("session reaper stopped")
}

// ReapExpiredSessions auto-submits every in-progress session whose exam
// window has closed. Each session goes through the normal finalize path, so
// reaped sessions get the same scoring and flagging a manual submit would.
func (s *Scheduler) ReapExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sessions, err := s.SessionDB.Find(ctx, bson.M{"status": models.SessionInProgress})
	if err != nil {
		zap.S().Errorw("failed to list in-progress sessions", "error", err)
		return
	}
	if len(sessions) == 0 {
		return
	}

	now := time.Now()
	endedExams := map[string]bool{}
	reaped := 0

	for _, session := range sessions {
		ended, seen := endedExams[session.ExamID]
		if !seen {
			ended = s.examEnded(ctx, session.ExamID, now)
			endedExams[session.ExamID] = ended
		}
		if !ended {
			continue
		}

		if err := s.Finalizer.FinalizeSession(ctx, session.ID); err != nil {
			zap.S().Errorw("failed to reap session",
				"sessionID", session.ID, "examID", session.ExamID, "error", err)
			continue
		}
		reaped++
		zap.S().Infow("auto-submitted session past exam end",
			"sessionID", session.ID, "examID", session.ExamID)
	}

	if reaped > 0 {
		zap.S().Infow("session reap complete", "checked", len(sessions), "reaped", reaped)
	}
}

func (s *Scheduler) examEnded(ctx context.Context, examID string, now time.Time) bool {
	eID, err := primitive.ObjectIDFromHex(examID)
	if err != nil {
		zap.S().Warnw("session references malformed exam id", "examID", examID)
		return false
	}
	exam, err := s.ExamDB.FindOne(ctx, bson.M{"_id": eID})
	if err != nil {
		zap.S().Warnw("failed to load exam for reaper", "examID", examID, "error", err)
		return false
	}
	return now.After(exam.EndTime.Time())
}
