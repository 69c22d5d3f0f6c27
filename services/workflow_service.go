package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"campus-hub-api/models"

	"github.com/google/uuid"
)

// WorkflowService orchestrates the review chain: it loads the record,
// consults the authorization gate, applies the transition validator,
// persists the result with the store's conditional write and fires the
// notification hook. All failures come back as the typed errors of this
// package; nothing is retried internally.
type WorkflowService struct {
	store    ApplicationStore
	notifier ReviewNotifier
}

// NewWorkflowService wires the service. notifier may be nil (no
// notifications, e.g. in tests).
func NewWorkflowService(store ApplicationStore, notifier ReviewNotifier) *WorkflowService {
	return &WorkflowService{store: store, notifier: notifier}
}

// RequestMeta carries transport-level context recorded in the audit log.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// SubmitInput is a new application as received from the student.
type SubmitInput struct {
	ApplicationType      string
	Subject              string
	Detail               string
	SubmittedBy          int
	DepartmentID         int
	MentorID             *int
	RequiresDeanApproval bool
	DateFrom             *time.Time
	DateTo               *time.Time
}

// Submit creates the initial record: pending, at the mentor level, mentor
// stage pending, nothing else entered. A mentor must already be assigned;
// an application without one would sit unreviewable forever since no
// reassignment transition exists.
func (s *WorkflowService) Submit(input SubmitInput, meta RequestMeta) (*models.Application, error) {
	if strings.TrimSpace(input.ApplicationType) == "" || strings.TrimSpace(input.Subject) == "" {
		return nil, fmt.Errorf("application type and subject are required")
	}
	if input.MentorID == nil || *input.MentorID <= 0 {
		return nil, ErrMentorRequired
	}

	now := time.Now()
	app := &models.Application{
		ApplicationNumber:    newApplicationNumber(),
		ApplicationType:      strings.TrimSpace(input.ApplicationType),
		Subject:              strings.TrimSpace(input.Subject),
		Detail:               strings.TrimSpace(input.Detail),
		SubmittedBy:          input.SubmittedBy,
		DepartmentID:         input.DepartmentID,
		MentorID:             input.MentorID,
		Status:               models.StatusPending,
		CurrentLevel:         models.LevelMentor,
		RequiresDeanApproval: input.RequiresDeanApproval,
		MentorStatus:         models.StagePending,
		DateFrom:             input.DateFrom,
		DateTo:               input.DateTo,
		Version:              1,
		SubmittedAt:          now,
		CreateAt:             now,
		UpdateAt:             now,
	}

	trail := &TransitionTrail{
		History: &models.ApplicationStatusHistory{
			NewStatus: app.Status,
			NewLevel:  app.CurrentLevel,
			ChangedBy: input.SubmittedBy,
			CreatedAt: now,
		},
		Audit: newAuditEntry(input.SubmittedBy, "submit", meta, map[string]interface{}{
			"application_type":       app.ApplicationType,
			"requires_dean_approval": app.RequiresDeanApproval,
		}, "Application submitted"),
	}

	if err := s.store.Create(app, trail); err != nil {
		return nil, err
	}

	s.notifyAsync(func(n ReviewNotifier) {
		n.ApplicationSubmitted(app)
	})
	return app, nil
}

// Review runs one reviewer decision against the application. The returned
// record is the persisted next state; on any failure the record in the
// store is untouched and one of the typed errors of this package comes
// back.
func (s *WorkflowService) Review(applicationID int, actor Actor, input ReviewInput, meta RequestMeta) (*models.Application, error) {
	app, err := s.store.Load(applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}

	level, ok := ReviewLevelForRole(actor.RoleID)
	if !ok {
		return nil, ErrForbidden
	}
	if !CanAct(app, actor) {
		// Keep the failure kinds distinct: a finished record and a record
		// at another stage are stale-client cases, not authorization
		// failures.
		if app.IsTerminal() {
			return nil, ErrAlreadyTerminal
		}
		if app.CurrentLevel != level {
			return nil, ErrWrongLevel
		}
		return nil, ErrForbidden
	}

	now := time.Now()
	next, err := ApplyReview(app, level, input, now)
	if err != nil {
		return nil, err
	}

	trail := buildReviewTrail(app, next, actor, input, meta, now)
	swapped, err := s.store.CompareAndSwap(next, app.Version, trail)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, ErrConflict
	}

	previousStatus := app.Status
	s.notifyAsync(func(n ReviewNotifier) {
		n.ReviewDecided(next, previousStatus, next.Status)
	})
	return next, nil
}

// GetByID loads one application.
func (s *WorkflowService) GetByID(applicationID int) (*models.Application, error) {
	app, err := s.store.Load(applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}
	return app, nil
}

// buildReviewTrail assembles the rows persisted alongside a transition: a
// review row for approve/reject, a history row when the observable state
// moved (a repeated HOLD changes nothing) and an audit entry always.
func buildReviewTrail(app, next *models.Application, actor Actor, input ReviewInput, meta RequestMeta, now time.Time) *TransitionTrail {
	trail := &TransitionTrail{}

	notes := strings.TrimSpace(input.Notes)
	if input.Action == ActionApprove || input.Action == ActionReject {
		// The stage the reviewer acted at, not the level the record
		// advanced to.
		stage, _ := ReviewLevelForRole(actor.RoleID)
		review := &models.ApplicationReview{
			ReviewerID:   actor.UserID,
			ReviewLevel:  stage,
			ReviewStatus: models.StageApproved,
			ReviewedAt:   now,
		}
		if input.Action == ActionReject {
			review.ReviewStatus = models.StageRejected
		}
		if notes != "" {
			review.Comments = &notes
		}
		internal := fmt.Sprintf("level=%s;action=%s", review.ReviewLevel, input.Action)
		review.InternalNotes = &internal
		trail.Review = review
	}

	if app.Status != next.Status || app.CurrentLevel != next.CurrentLevel {
		oldStatus := app.Status
		oldLevel := app.CurrentLevel
		history := &models.ApplicationStatusHistory{
			OldStatus: &oldStatus,
			NewStatus: next.Status,
			OldLevel:  &oldLevel,
			NewLevel:  next.CurrentLevel,
			ChangedBy: actor.UserID,
			CreatedAt: now,
		}
		if notes != "" {
			history.Reason = &notes
		}
		historyNote := fmt.Sprintf("review:%s", input.Action)
		history.Notes = &historyNote
		trail.History = history
	}

	trail.Audit = newAuditEntry(actor.UserID, "review", meta, map[string]interface{}{
		"action":        input.Action,
		"notes":         notes,
		"escalate":      input.Escalate,
		"status":        next.Status,
		"current_level": next.CurrentLevel,
	}, fmt.Sprintf("Application %s at %s level", input.Action, app.CurrentLevel))
	return trail
}

func newAuditEntry(userID int, action string, meta RequestMeta, values map[string]interface{}, description string) *models.AuditLog {
	audit := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: "application",
		IPAddress:  meta.IPAddress,
		CreatedAt:  time.Now(),
	}
	if serialized, err := json.Marshal(values); err == nil {
		s := string(serialized)
		audit.NewValues = &s
	}
	if description != "" {
		audit.Description = &description
	}
	if strings.TrimSpace(meta.UserAgent) != "" {
		ua := meta.UserAgent
		audit.UserAgent = &ua
	}
	return audit
}

// notifyAsync runs the notification hook outside the request path. Hook
// failures are logged and never roll back or block the transition.
func (s *WorkflowService) notifyAsync(fn func(ReviewNotifier)) {
	if s.notifier == nil {
		return
	}
	notifier := s.notifier
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("notification hook panicked: %v", r)
			}
		}()
		fn(notifier)
	}()
}

func newApplicationNumber() string {
	return "APP-" + strings.ToUpper(uuid.NewString()[:8])
}
