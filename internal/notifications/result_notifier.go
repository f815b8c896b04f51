package notifications

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ResultNotifier emails learners their score when an attempt is submitted.
type ResultNotifier struct {
	users  repositories.UserRepository
	mailer Mailer
	logger *slog.Logger
}

func NewResultNotifier(users repositories.UserRepository, mailer Mailer, logger *slog.Logger) *ResultNotifier {
	return &ResultNotifier{users: users, mailer: mailer, logger: logger}
}

// Register subscribes the notifier to attempt.submitted on consumer.
func (n *ResultNotifier) Register(consumer *events.Consumer) {
	consumer.Handle("result_notifier", events.AttemptSubmitted, n.Handle)
}

func (n *ResultNotifier) Handle(ctx context.Context, event *events.Event) error {
	var data events.AttemptSubmittedData
	if err := event.Decode(&data); err != nil {
		// Redelivery cannot fix a bad payload
		n.logger.Error("Invalid attempt.submitted payload", "event_id", event.ID, "error", err)
		return nil
	}

	user, err := n.users.GetByID(ctx, data.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			n.logger.Warn("Skipping result email for unknown user", "user_id", data.UserID)
			return nil
		}
		return fmt.Errorf("lookup user %s: %w", data.UserID, err)
	}
	if user.Email == "" {
		n.logger.Warn("Skipping result email, user has no address", "user_id", data.UserID)
		return nil
	}

	return n.mailer.Send(ctx, resultMessage(user.FullName, user.Email, data))
}

func resultMessage(name, email string, data events.AttemptSubmittedData) Message {
	outcome := "did not pass"
	if data.Passed {
		outcome = "passed"
	}

	subject := fmt.Sprintf("Your result for %s", data.QuizTitle)
	plain := fmt.Sprintf("Hi %s,\n\nYou scored %d/%d (%d%%) on %s and %s.\n",
		name, data.Score, data.TotalPoints, data.Percentage, data.QuizTitle, outcome)
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>You scored <strong>%d/%d (%d%%)</strong> on <em>%s</em> and %s.</p>
<p>Submitted %s.</p>`,
		html.EscapeString(name), data.Score, data.TotalPoints, data.Percentage,
		html.EscapeString(data.QuizTitle), outcome, data.CompletedAt.UTC().Format("2 Jan 2006 15:04 MST"))

	return Message{ToName: name, ToEmail: email, Subject: subject, Plain: plain, HTML: body}
}
