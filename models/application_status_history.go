package models

import "time"

// ApplicationStatusHistory tracks historical status/level changes for
// applications.
type ApplicationStatusHistory struct {
	HistoryID     int       `gorm:"primaryKey;column:history_id" json:"history_id"`
	ApplicationID int       `gorm:"column:application_id" json:"application_id"`
	OldStatus     *string   `gorm:"column:old_status" json:"old_status"`
	NewStatus     string    `gorm:"column:new_status" json:"new_status"`
	OldLevel      *string   `gorm:"column:old_level" json:"old_level"`
	NewLevel      string    `gorm:"column:new_level" json:"new_level"`
	ChangedBy     int       `gorm:"column:changed_by" json:"changed_by"`
	Reason        *string   `gorm:"column:reason" json:"reason"`
	Notes         *string   `gorm:"column:notes" json:"notes"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for ApplicationStatusHistory.
func (ApplicationStatusHistory) TableName() string {
	return "application_status_history"
}
