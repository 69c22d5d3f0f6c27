package services

import (
	"testing"

	"campus-hub-api/models"
)

func TestReviewLevelForRole(t *testing.T) {
	cases := []struct {
		roleID int
		level  string
		ok     bool
	}{
		{models.RoleFaculty, models.LevelMentor, true},
		{models.RoleHOD, models.LevelHOD, true},
		{models.RoleDean, models.LevelDean, true},
		{models.RoleStudent, "", false},
		{models.RoleAdmin, "", false},
		{0, "", false},
	}

	for _, tc := range cases {
		level, ok := ReviewLevelForRole(tc.roleID)
		if level != tc.level || ok != tc.ok {
			t.Errorf("ReviewLevelForRole(%d) = (%q, %v), want (%q, %v)", tc.roleID, level, ok, tc.level, tc.ok)
		}
	}
}

func TestCanAct(t *testing.T) {
	mentorID := 10

	base := func() *models.Application {
		return &models.Application{
			MentorID:     &mentorID,
			Status:       models.StatusPending,
			CurrentLevel: models.LevelMentor,
			MentorStatus: models.StagePending,
		}
	}

	cases := []struct {
		name  string
		app   func() *models.Application
		actor Actor
		want  bool
	}{
		{
			name:  "assigned mentor at mentor level",
			app:   base,
			actor: Actor{UserID: mentorID, RoleID: models.RoleFaculty},
			want:  true,
		},
		{
			name:  "other faculty at mentor level",
			app:   base,
			actor: Actor{UserID: 99, RoleID: models.RoleFaculty},
			want:  false,
		},
		{
			name: "mentor without assignment",
			app: func() *models.Application {
				app := base()
				app.MentorID = nil
				return app
			},
			actor: Actor{UserID: mentorID, RoleID: models.RoleFaculty},
			want:  false,
		},
		{
			name:  "hod before mentor approval",
			app:   base,
			actor: Actor{UserID: 30, RoleID: models.RoleHOD},
			want:  false,
		},
		{
			name: "hod after mentor approval",
			app: func() *models.Application {
				app := base()
				app.CurrentLevel = models.LevelHOD
				app.MentorStatus = models.StageApproved
				app.HodStatus = models.StagePending
				return app
			},
			actor: Actor{UserID: 30, RoleID: models.RoleHOD},
			want:  true,
		},
		{
			name: "hod at hod level with inconsistent mentor stage",
			app: func() *models.Application {
				app := base()
				app.CurrentLevel = models.LevelHOD
				return app
			},
			actor: Actor{UserID: 30, RoleID: models.RoleHOD},
			want:  false,
		},
		{
			name: "dean without dean requirement",
			app: func() *models.Application {
				app := base()
				app.CurrentLevel = models.LevelDean
				return app
			},
			actor: Actor{UserID: 40, RoleID: models.RoleDean},
			want:  false,
		},
		{
			name: "dean with dean requirement",
			app: func() *models.Application {
				app := base()
				app.CurrentLevel = models.LevelDean
				app.RequiresDeanApproval = true
				app.MentorStatus = models.StageApproved
				app.HodStatus = models.StageApproved
				app.DeanStatus = models.StagePending
				return app
			},
			actor: Actor{UserID: 40, RoleID: models.RoleDean},
			want:  true,
		},
		{
			name:  "student never acts",
			app:   base,
			actor: Actor{UserID: 100, RoleID: models.RoleStudent},
			want:  false,
		},
		{
			name:  "admin never acts",
			app:   base,
			actor: Actor{UserID: 1, RoleID: models.RoleAdmin},
			want:  false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAct(tc.app(), tc.actor); got != tc.want {
				t.Fatalf("CanAct = %v, want %v", got, tc.want)
			}
		})
	}
}
