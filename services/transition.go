package services

import (
	"strings"
	"time"

	"campus-hub-api/models"
)

// Review actions a reviewer may take on the stage currently assigned to
// them.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionHold    = "hold"
)

// ReviewInput carries one reviewer decision.
type ReviewInput struct {
	Action           string
	Notes            string
	Escalate         bool
	EscalationReason string
}

// ApplyReview computes the complete next record for one review decision.
// It is a pure function: no I/O, no mutation of the input record. The
// whole next state is produced in a single step so that status,
// current_level and the stage sub-records can never drift apart through
// partial updates.
//
// Legality rules, in order: the record must be at the acting level, must
// not be terminal, and reject/escalate require a reason. Rejection
// freezes current_level and finalizes the record; approval advances the
// chain (mentor -> hod -> dean/completed), with the escalation decision
// taken on HOD approval.
func ApplyReview(app *models.Application, actingLevel string, input ReviewInput, now time.Time) (*models.Application, error) {
	switch actingLevel {
	case models.LevelMentor, models.LevelHOD, models.LevelDean:
	default:
		return nil, ErrWrongLevel
	}

	if app.CurrentLevel != actingLevel {
		return nil, ErrWrongLevel
	}
	if app.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	next := *app
	next.UpdateAt = now
	notes := strings.TrimSpace(input.Notes)

	switch input.Action {
	case ActionHold:
		// Idempotent: repeatable without side effects beyond the flag.
		next.Status = models.StatusUnderReview
		return &next, nil

	case ActionReject:
		if notes == "" {
			return nil, ErrMissingReason
		}
		setStage(&next, actingLevel, models.StageRejected, &notes, now)
		level := actingLevel
		rejectedAt := now
		next.Status = models.StatusRejected
		next.RejectedBy = &level
		next.RejectedAt = &rejectedAt
		next.RejectionReason = &notes
		// current_level stays frozen at the rejecting stage.
		return &next, nil

	case ActionApprove:
		var stageNotes *string
		if notes != "" {
			stageNotes = &notes
		}
		setStage(&next, actingLevel, models.StageApproved, stageNotes, now)

		switch actingLevel {
		case models.LevelMentor:
			next.CurrentLevel = models.LevelHOD
			next.Status = models.StatusUnderReview
			next.HodStatus = models.StagePending

		case models.LevelHOD:
			escalationReason := strings.TrimSpace(input.EscalationReason)
			if input.Escalate && escalationReason == "" {
				return nil, ErrMissingReason
			}
			decision := decideEscalation(app, input.Escalate)
			next.CurrentLevel = decision.nextLevel
			next.Status = decision.nextStatus
			if decision.enterDean {
				next.DeanStatus = models.StagePending
			}
			if decision.introduced {
				next.RequiresDeanApproval = true
				next.EscalationReason = &escalationReason
			}

		case models.LevelDean:
			next.CurrentLevel = models.LevelCompleted
			next.Status = models.StatusApproved
		}
		return &next, nil
	}

	return nil, ErrInvalidAction
}

// setStage writes the sub-record of the given level. The validator only
// calls it for the record's current level, so no stage is ever written
// twice or out of order.
func setStage(app *models.Application, level, status string, notes *string, now time.Time) {
	reviewedAt := now
	switch level {
	case models.LevelMentor:
		app.MentorStatus = status
		app.MentorNotes = notes
		app.MentorReviewedAt = &reviewedAt
	case models.LevelHOD:
		app.HodStatus = status
		app.HodNotes = notes
		app.HodReviewedAt = &reviewedAt
	case models.LevelDean:
		app.DeanStatus = status
		app.DeanNotes = notes
		app.DeanReviewedAt = &reviewedAt
	}
}
