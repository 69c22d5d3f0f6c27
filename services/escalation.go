package services

import "campus-hub-api/models"

// escalationDecision is the outcome of the escalation check performed on
// HOD approval: where the chain goes next and which status the record
// takes.
type escalationDecision struct {
	nextLevel  string
	nextStatus string
	enterDean  bool
	// introduced is true only when this call flips requires_dean_approval
	// from false to true (explicit HOD escalation).
	introduced bool
}

// decideEscalation decides, after HOD approval, whether the chain
// continues to the Dean.
//
// A pre-existing dean requirement (flagged at submission, or an earlier
// escalation) routes to the Dean with status under_review; an escalation
// introduced by this very call routes to the Dean with status escalated.
// Requesting escalation when the requirement already exists is idempotent:
// the dean stage is entered once and no second escalation marker is
// written. Without any dean requirement the chain ends here and the
// application is final.
func decideEscalation(app *models.Application, escalateRequested bool) escalationDecision {
	if app.RequiresDeanApproval {
		return escalationDecision{
			nextLevel:  models.LevelDean,
			nextStatus: models.StatusUnderReview,
			enterDean:  true,
		}
	}
	if escalateRequested {
		return escalationDecision{
			nextLevel:  models.LevelDean,
			nextStatus: models.StatusEscalated,
			enterDean:  true,
			introduced: true,
		}
	}
	return escalationDecision{
		nextLevel:  models.LevelCompleted,
		nextStatus: models.StatusApproved,
	}
}
