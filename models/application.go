package models

import "time"

// Application statuses (applications.status).
const (
	StatusPending     = "pending"
	StatusUnderReview = "under_review"
	StatusEscalated   = "escalated"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
)

// Review levels (applications.current_level). The level identifies the
// single role allowed to write the record next; LevelCompleted means the
// chain has ended and no further writer exists.
const (
	LevelMentor    = "mentor"
	LevelHOD       = "hod"
	LevelDean      = "dean"
	LevelCompleted = "completed"
)

// Per-stage statuses ({mentor,hod,dean}_status). Empty string means the
// stage was never entered.
const (
	StagePending  = "pending"
	StageApproved = "approved"
	StageRejected = "rejected"
)

// Application is one reviewable student request (leave, permission, event
// participation, ...). It carries its full review trail: one sub-record per
// stage actually entered, plus rejection and escalation markers. Terminal
// records (approved/rejected) are never mutated or deleted.
type Application struct {
	ApplicationID     int    `gorm:"primaryKey;column:application_id" json:"application_id"`
	ApplicationNumber string `gorm:"column:application_number;unique" json:"application_number"`
	ApplicationType   string `gorm:"column:application_type" json:"application_type"`
	Subject           string `gorm:"column:subject" json:"subject"`
	Detail            string `gorm:"column:detail" json:"detail"`

	SubmittedBy  int  `gorm:"column:submitted_by" json:"submitted_by"`
	DepartmentID int  `gorm:"column:department_id" json:"department_id"`
	MentorID     *int `gorm:"column:mentor_id" json:"mentor_id,omitempty"`

	Status               string  `gorm:"column:status" json:"status"`
	CurrentLevel         string  `gorm:"column:current_level" json:"current_level"`
	RequiresDeanApproval bool    `gorm:"column:requires_dean_approval" json:"requires_dean_approval"`
	EscalationReason     *string `gorm:"column:escalation_reason" json:"escalation_reason,omitempty"`

	MentorStatus     string     `gorm:"column:mentor_status" json:"mentor_status"`
	MentorNotes      *string    `gorm:"column:mentor_notes" json:"mentor_notes,omitempty"`
	MentorReviewedAt *time.Time `gorm:"column:mentor_reviewed_at" json:"mentor_reviewed_at,omitempty"`

	HodStatus     string     `gorm:"column:hod_status" json:"hod_status"`
	HodNotes      *string    `gorm:"column:hod_notes" json:"hod_notes,omitempty"`
	HodReviewedAt *time.Time `gorm:"column:hod_reviewed_at" json:"hod_reviewed_at,omitempty"`

	DeanStatus     string     `gorm:"column:dean_status" json:"dean_status"`
	DeanNotes      *string    `gorm:"column:dean_notes" json:"dean_notes,omitempty"`
	DeanReviewedAt *time.Time `gorm:"column:dean_reviewed_at" json:"dean_reviewed_at,omitempty"`

	RejectedBy      *string    `gorm:"column:rejected_by" json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	RejectionReason *string    `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`

	DateFrom *time.Time `gorm:"column:date_from" json:"date_from,omitempty"`
	DateTo   *time.Time `gorm:"column:date_to" json:"date_to,omitempty"`

	// Version is the optimistic-concurrency counter: every successful
	// transition increments it and the conditional write checks it.
	Version int `gorm:"column:version" json:"version"`

	SubmittedAt time.Time  `gorm:"column:submitted_at" json:"submitted_at"`
	CreateAt    time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt    time.Time  `gorm:"column:update_at" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Submitter  *User       `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
	Mentor     *User       `gorm:"foreignKey:MentorID" json:"mentor,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

// TableName specifies the table for Application.
func (Application) TableName() string {
	return "applications"
}

// IsTerminal reports whether the record reached a final status. No field
// on a terminal record may change.
func (a *Application) IsTerminal() bool {
	return a.Status == StatusApproved || a.Status == StatusRejected
}

// StageStatus returns the sub-record status for the given level, or empty
// string when the stage was never entered.
func (a *Application) StageStatus(level string) string {
	switch level {
	case LevelMentor:
		return a.MentorStatus
	case LevelHOD:
		return a.HodStatus
	case LevelDean:
		return a.DeanStatus
	}
	return ""
}
