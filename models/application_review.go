package models

import "time"

// ApplicationReview is the audit record written for every approve/reject
// decision in the review chain, one row per stage acted on.
type ApplicationReview struct {
	ReviewID      int       `gorm:"primaryKey;column:review_id" json:"review_id"`
	ApplicationID int       `gorm:"column:application_id" json:"application_id"`
	ReviewerID    int       `gorm:"column:reviewer_id" json:"reviewer_id"`
	ReviewLevel   string    `gorm:"column:review_level" json:"review_level"`
	ReviewRound   int       `gorm:"column:review_round" json:"review_round"`
	ReviewStatus  string    `gorm:"column:review_status" json:"review_status"`
	Comments      *string   `gorm:"column:comments" json:"comments"`
	InternalNotes *string   `gorm:"column:internal_notes" json:"internal_notes"`
	ReviewedAt    time.Time `gorm:"column:reviewed_at" json:"reviewed_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName specifies the table name for ApplicationReview.
func (ApplicationReview) TableName() string {
	return "application_reviews"
}
