package services

import (
	"fmt"
	"html"
	"log"

	"campus-hub-api/config"
	"campus-hub-api/models"

	"gorm.io/gorm"
)

// ReviewNotifier is the fire-and-forget hook invoked after every
// successful transition. Implementations must tolerate failure silently;
// the workflow never rolls back or blocks on notification problems.
type ReviewNotifier interface {
	ApplicationSubmitted(app *models.Application)
	ReviewDecided(app *models.Application, previousStatus, newStatus string)
}

type dbNotifier struct {
	db *gorm.DB
}

// NewReviewNotifier returns the production notifier: an in-app
// notification row for the affected users plus a best-effort email.
func NewReviewNotifier(db *gorm.DB) ReviewNotifier {
	return &dbNotifier{db: db}
}

func (n *dbNotifier) ApplicationSubmitted(app *models.Application) {
	title := "Application submitted"
	message := fmt.Sprintf("Your application %s (%s) was submitted and is awaiting mentor review.",
		app.ApplicationNumber, app.Subject)
	n.push(app, app.SubmittedBy, title, message, "info")

	if app.MentorID != nil {
		n.push(app, *app.MentorID, "Application awaiting your review",
			fmt.Sprintf("Application %s (%s) is waiting for your mentor review.",
				app.ApplicationNumber, app.Subject), "info")
	}
}

func (n *dbNotifier) ReviewDecided(app *models.Application, previousStatus, newStatus string) {
	title, message, kind := reviewMessage(app, newStatus)
	n.push(app, app.SubmittedBy, title, message, kind)
	n.email(app.SubmittedBy, title, message)

	// Tell the next reviewer their queue grew.
	switch app.CurrentLevel {
	case models.LevelHOD, models.LevelDean:
		n.notifyLevelReviewers(app)
	}
}

func reviewMessage(app *models.Application, newStatus string) (title, message, kind string) {
	switch newStatus {
	case models.StatusApproved:
		return "Application approved",
			fmt.Sprintf("Your application %s (%s) has been approved.", app.ApplicationNumber, app.Subject),
			"success"
	case models.StatusRejected:
		reason := ""
		if app.RejectionReason != nil {
			reason = " Reason: " + *app.RejectionReason
		}
		return "Application rejected",
			fmt.Sprintf("Your application %s (%s) was rejected.%s", app.ApplicationNumber, app.Subject, reason),
			"error"
	case models.StatusEscalated:
		return "Application escalated",
			fmt.Sprintf("Your application %s (%s) was escalated to the Dean for review.", app.ApplicationNumber, app.Subject),
			"warning"
	}
	return "Application update",
		fmt.Sprintf("Your application %s (%s) moved to %s review.", app.ApplicationNumber, app.Subject, app.CurrentLevel),
		"info"
}

// notifyLevelReviewers finds the reviewers for the record's current level
// and drops an in-app notification for each.
func (n *dbNotifier) notifyLevelReviewers(app *models.Application) {
	roleID := models.RoleHOD
	if app.CurrentLevel == models.LevelDean {
		roleID = models.RoleDean
	}

	var reviewers []models.User
	query := n.db.Where("role_id = ? AND delete_at IS NULL", roleID)
	if roleID == models.RoleHOD {
		query = query.Where("department_id = ?", app.DepartmentID)
	}
	if err := query.Find(&reviewers).Error; err != nil {
		log.Printf("failed to resolve %s reviewers for application %d: %v", app.CurrentLevel, app.ApplicationID, err)
		return
	}

	message := fmt.Sprintf("Application %s (%s) is waiting for your review.", app.ApplicationNumber, app.Subject)
	for _, reviewer := range reviewers {
		n.push(app, reviewer.UserID, "Application awaiting your review", message, "info")
	}
}

func (n *dbNotifier) push(app *models.Application, userID int, title, message, kind string) {
	related := uint(app.ApplicationID)
	notification := models.Notification{
		UserID:               uint(userID),
		Title:                title,
		Message:              message,
		Type:                 kind,
		RelatedApplicationID: &related,
	}
	if err := n.db.Create(&notification).Error; err != nil {
		log.Printf("failed to create notification for user %d: %v", userID, err)
	}
}

func (n *dbNotifier) email(userID int, subject, message string) {
	var user models.User
	if err := n.db.Where("user_id = ? AND delete_at IS NULL", userID).First(&user).Error; err != nil {
		return
	}
	if user.Email == "" {
		return
	}

	body := fmt.Sprintf(`<html><body>
  <p>Dear %s,</p>
  <p>%s</p>
  <p>Please sign in to CampusHub for the full review trail.</p>
</body></html>`, html.EscapeString(user.FullName()), html.EscapeString(message))

	if err := config.SendMail([]string{user.Email}, subject, body); err != nil {
		log.Printf("notification email send failed (subject=%q to=%s): %v", subject, user.Email, err)
	}
}
