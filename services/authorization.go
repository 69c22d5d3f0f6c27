package services

import "campus-hub-api/models"

// Actor identifies the authenticated caller of a review operation.
type Actor struct {
	UserID int
	RoleID int
}

// ReviewLevelForRole maps a role to the review stage it acts at. The
// second return is false for roles that never review (students, admins).
func ReviewLevelForRole(roleID int) (string, bool) {
	switch roleID {
	case models.RoleFaculty:
		return models.LevelMentor, true
	case models.RoleHOD:
		return models.LevelHOD, true
	case models.RoleDean:
		return models.LevelDean, true
	}
	return "", false
}

// CanAct reports whether the actor is the legitimate next reviewer for
// the record, independent of the action they want to take.
//
// Faculty act as mentors and must be the assigned mentor; the HOD may act
// once the mentor stage is approved; the Dean only when the record was
// routed to dean review. The UI consults this for affordances, but it is
// re-checked server-side before every mutating call — that check is the
// sole enforcement point against out-of-order or unauthorized writes.
func CanAct(app *models.Application, actor Actor) bool {
	switch actor.RoleID {
	case models.RoleFaculty:
		return app.CurrentLevel == models.LevelMentor &&
			app.MentorID != nil && *app.MentorID == actor.UserID
	case models.RoleHOD:
		return app.CurrentLevel == models.LevelHOD &&
			app.MentorStatus == models.StageApproved
	case models.RoleDean:
		return app.RequiresDeanApproval && app.CurrentLevel == models.LevelDean
	}
	return false
}
