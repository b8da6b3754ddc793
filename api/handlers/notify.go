package handlers

import (
	"context"
	"os"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/models"
	templates "github.com/examshield/proctor-api/templates/html"
)

// EmailNotifier emails the exam's creator when a session is flagged. All of
// it is best-effort: lookup or delivery failures are logged and swallowed.
type EmailNotifier struct {
	UDB databases.UserDatabase
	EDB databases.ExamDatabase
}

// NotifyFlagged sends the flagged-session review notice.
func (n EmailNotifier) NotifyFlagged(session models.Session, finalScore float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	examTitle := session.ExamID
	creatorID := ""
	if eID, err := primitive.ObjectIDFromHex(session.ExamID); err == nil {
		if exam, err := n.EDB.FindOne(ctx, bson.M{"_id": eID}); err == nil {
			examTitle = exam.Title
			creatorID = exam.CreatedBy
		}
	}
	if creatorID == "" {
		zap.S().Warnw("flagged session has no exam creator to notify",
			"sessionID", session.ID, "examID", session.ExamID)
		return
	}

	creator, err := n.UDB.FindOne(ctx, bson.M{"_id": creatorID})
	if err != nil || creator.Details.Email == "" {
		zap.S().Warnw("failed to resolve exam creator for flag notice",
			"sessionID", session.ID, "creatorID", creatorID, "error", err)
		return
	}

	studentName := session.StudentID
	if student, err := n.UDB.FindOne(ctx, bson.M{"_id": session.StudentID}); err == nil && student.Details.FullName != "" {
		studentName = student.Details.FullName
	}

	subject := "Session Flagged for Review - ExamShield"
	htmlContent := templates.RenderFlaggedSessionEmail(examTitle, studentName, session.ID, finalScore)
	plainText := "A proctored session was flagged for review. Open the review dashboard for details."

	from := mail.NewEmail("ExamShield", "no-reply@examshield.io")
	to := mail.NewEmail(creator.Details.FullName, creator.Details.Email)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send flagged session email",
			"sessionID", session.ID, "error", err)
		return
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status",
			"status", response.StatusCode, "body", response.Body)
	}
}
