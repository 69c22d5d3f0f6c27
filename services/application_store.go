package services

import (
	"errors"
	"fmt"

	"campus-hub-api/models"

	"gorm.io/gorm"
)

// TransitionTrail is the bookkeeping persisted atomically with a
// transition: the per-stage review row (absent for HOLD), the status
// history row (absent when nothing observable changed) and the audit log
// entry.
type TransitionTrail struct {
	Review  *models.ApplicationReview
	History *models.ApplicationStatusHistory
	Audit   *models.AuditLog
}

// ApplicationStore is the persistence seam of the review workflow. The
// workflow needs exactly two guarantees from it: point reads and an
// atomic conditional write that fails (returns false) when the record
// moved since it was loaded.
type ApplicationStore interface {
	// Load returns the application, or nil when no such record exists.
	Load(id int) (*models.Application, error)

	// Create persists a freshly submitted application together with its
	// initial trail.
	Create(app *models.Application, trail *TransitionTrail) error

	// CompareAndSwap writes the transitioned record and its trail in one
	// transaction, conditioned on the stored row still carrying
	// expectedVersion and the pre-transition (status, current_level)
	// pair. A lost race returns (false, nil); the caller decides whether
	// to reload and retry.
	CompareAndSwap(app *models.Application, expectedVersion int, trail *TransitionTrail) (bool, error)
}

type gormApplicationStore struct {
	db *gorm.DB
}

// NewApplicationStore returns the GORM-backed store used in production.
func NewApplicationStore(db *gorm.DB) ApplicationStore {
	return &gormApplicationStore{db: db}
}

func (s *gormApplicationStore) Load(id int) (*models.Application, error) {
	var app models.Application
	err := s.db.Where("application_id = ? AND delete_at IS NULL", id).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application %d: %w", id, err)
	}
	return &app, nil
}

func (s *gormApplicationStore) Create(app *models.Application, trail *TransitionTrail) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(app).Error; err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		return createTrail(tx, app, trail)
	})
}

func (s *gormApplicationStore) CompareAndSwap(app *models.Application, expectedVersion int, trail *TransitionTrail) (bool, error) {
	swapped := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		guard := tx.Model(&models.Application{}).
			Where("application_id = ? AND version = ?", app.ApplicationID, expectedVersion)
		if trail != nil && trail.History != nil {
			// Belt and braces: also re-check the (status, current_level)
			// pair observed at load time.
			if trail.History.OldStatus != nil {
				guard = guard.Where("status = ?", *trail.History.OldStatus)
			}
			if trail.History.OldLevel != nil {
				guard = guard.Where("current_level = ?", *trail.History.OldLevel)
			}
		}

		res := guard.Updates(transitionColumns(app, expectedVersion+1))
		if res.Error != nil {
			return fmt.Errorf("failed to update application %d: %w", app.ApplicationID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Stale precondition: a concurrent transition won the race.
			return nil
		}

		swapped = true
		app.Version = expectedVersion + 1
		return createTrail(tx, app, trail)
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

// transitionColumns lists every column a review transition may touch. The
// validator computes the whole next record in one step; writing all of
// these in one UPDATE keeps the row from ever holding a partial state.
func transitionColumns(app *models.Application, newVersion int) map[string]interface{} {
	return map[string]interface{}{
		"status":                 app.Status,
		"current_level":          app.CurrentLevel,
		"requires_dean_approval": app.RequiresDeanApproval,
		"escalation_reason":      app.EscalationReason,
		"mentor_status":          app.MentorStatus,
		"mentor_notes":           app.MentorNotes,
		"mentor_reviewed_at":     app.MentorReviewedAt,
		"hod_status":             app.HodStatus,
		"hod_notes":              app.HodNotes,
		"hod_reviewed_at":        app.HodReviewedAt,
		"dean_status":            app.DeanStatus,
		"dean_notes":             app.DeanNotes,
		"dean_reviewed_at":       app.DeanReviewedAt,
		"rejected_by":            app.RejectedBy,
		"rejected_at":            app.RejectedAt,
		"rejection_reason":       app.RejectionReason,
		"version":                newVersion,
		"update_at":              app.UpdateAt,
	}
}

func createTrail(tx *gorm.DB, app *models.Application, trail *TransitionTrail) error {
	if trail == nil {
		return nil
	}
	if trail.Review != nil {
		var round int64
		if err := tx.Model(&models.ApplicationReview{}).
			Where("application_id = ?", app.ApplicationID).
			Count(&round).Error; err != nil {
			return fmt.Errorf("failed to count review rounds: %w", err)
		}
		trail.Review.ApplicationID = app.ApplicationID
		trail.Review.ReviewRound = int(round) + 1
		if err := tx.Create(trail.Review).Error; err != nil {
			return fmt.Errorf("failed to save review record: %w", err)
		}
	}
	if trail.History != nil {
		trail.History.ApplicationID = app.ApplicationID
		if err := tx.Create(trail.History).Error; err != nil {
			return fmt.Errorf("failed to log status history: %w", err)
		}
	}
	if trail.Audit != nil {
		entityID := app.ApplicationID
		trail.Audit.EntityID = &entityID
		if app.ApplicationNumber != "" {
			number := app.ApplicationNumber
			trail.Audit.EntityNumber = &number
		}
		if err := tx.Create(trail.Audit).Error; err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
	}
	return nil
}
