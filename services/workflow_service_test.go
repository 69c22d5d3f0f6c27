package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"campus-hub-api/models"
)

// memoryApplicationStore implements ApplicationStore with the same
// conditional-write semantics as the GORM store: the swap succeeds only
// if the stored version and (status, current_level) pair are unchanged.
type memoryApplicationStore struct {
	mu     sync.Mutex
	apps   map[int]models.Application
	nextID int

	reviews []models.ApplicationReview
	history []models.ApplicationStatusHistory
	audits  []models.AuditLog

	// beforeSwap, when set, runs once before the next CompareAndSwap
	// takes the lock. Used to interleave a concurrent transition.
	beforeSwap func()
}

func newMemoryStore() *memoryApplicationStore {
	return &memoryApplicationStore{apps: make(map[int]models.Application), nextID: 1}
}

func (s *memoryApplicationStore) Load(id int) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, nil
	}
	copied := app
	return &copied, nil
}

func (s *memoryApplicationStore) Create(app *models.Application, trail *TransitionTrail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app.ApplicationID = s.nextID
	s.nextID++
	s.apps[app.ApplicationID] = *app
	s.appendTrail(app.ApplicationID, trail)
	return nil
}

func (s *memoryApplicationStore) CompareAndSwap(app *models.Application, expectedVersion int, trail *TransitionTrail) (bool, error) {
	if s.beforeSwap != nil {
		hook := s.beforeSwap
		s.beforeSwap = nil
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.apps[app.ApplicationID]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	if trail != nil && trail.History != nil {
		if trail.History.OldStatus != nil && stored.Status != *trail.History.OldStatus {
			return false, nil
		}
		if trail.History.OldLevel != nil && stored.CurrentLevel != *trail.History.OldLevel {
			return false, nil
		}
	}

	app.Version = expectedVersion + 1
	s.apps[app.ApplicationID] = *app
	s.appendTrail(app.ApplicationID, trail)
	return true, nil
}

func (s *memoryApplicationStore) appendTrail(applicationID int, trail *TransitionTrail) {
	if trail == nil {
		return
	}
	if trail.Review != nil {
		review := *trail.Review
		review.ApplicationID = applicationID
		review.ReviewRound = len(s.reviews) + 1
		s.reviews = append(s.reviews, review)
	}
	if trail.History != nil {
		h := *trail.History
		h.ApplicationID = applicationID
		s.history = append(s.history, h)
	}
	if trail.Audit != nil {
		s.audits = append(s.audits, *trail.Audit)
	}
}

// recordingNotifier captures hook invocations for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	submitted []int
	decided   []string // previousStatus->newStatus
	done      chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, 16)}
}

func (n *recordingNotifier) ApplicationSubmitted(app *models.Application) {
	n.mu.Lock()
	n.submitted = append(n.submitted, app.ApplicationID)
	n.mu.Unlock()
	n.done <- struct{}{}
}

func (n *recordingNotifier) ReviewDecided(app *models.Application, previousStatus, newStatus string) {
	n.mu.Lock()
	n.decided = append(n.decided, previousStatus+"->"+newStatus)
	n.mu.Unlock()
	n.done <- struct{}{}
}

func (n *recordingNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification hook was not invoked")
	}
}

var (
	student = 100
	mentor  = Actor{UserID: 10, RoleID: models.RoleFaculty}
	hod     = Actor{UserID: 30, RoleID: models.RoleHOD}
	dean    = Actor{UserID: 40, RoleID: models.RoleDean}
	meta    = RequestMeta{IPAddress: "127.0.0.1", UserAgent: "test"}
)

func submitInput() SubmitInput {
	mentorID := mentor.UserID
	return SubmitInput{
		ApplicationType: "leave",
		Subject:         "Medical leave",
		Detail:          "Two days off for a medical procedure",
		SubmittedBy:     student,
		DepartmentID:    5,
		MentorID:        &mentorID,
	}
}

func newTestService() (*WorkflowService, *memoryApplicationStore) {
	store := newMemoryStore()
	return NewWorkflowService(store, nil), store
}

func mustSubmit(t *testing.T, svc *WorkflowService, input SubmitInput) *models.Application {
	t.Helper()
	app, err := svc.Submit(input, meta)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return app
}

func mustReview(t *testing.T, svc *WorkflowService, id int, actor Actor, input ReviewInput) *models.Application {
	t.Helper()
	app, err := svc.Review(id, actor, input, meta)
	if err != nil {
		t.Fatalf("review by role %d failed: %v", actor.RoleID, err)
	}
	return app
}

func TestSubmitCreatesInitialState(t *testing.T) {
	svc, store := newTestService()

	app := mustSubmit(t, svc, submitInput())

	if app.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", app.Status)
	}
	if app.CurrentLevel != models.LevelMentor {
		t.Fatalf("expected mentor level, got %s", app.CurrentLevel)
	}
	if app.MentorStatus != models.StagePending {
		t.Fatalf("expected mentor stage pending, got %q", app.MentorStatus)
	}
	if app.HodStatus != "" || app.DeanStatus != "" {
		t.Fatalf("later stages must not be entered at submission: hod=%q dean=%q", app.HodStatus, app.DeanStatus)
	}
	if app.ApplicationNumber == "" {
		t.Fatal("expected an application number")
	}
	if len(store.history) != 1 || store.history[0].NewStatus != models.StatusPending {
		t.Fatalf("expected one history row for submission, got %+v", store.history)
	}
	if len(store.audits) != 1 {
		t.Fatalf("expected one audit row, got %d", len(store.audits))
	}
}

func TestSubmitRequiresMentor(t *testing.T) {
	svc, _ := newTestService()

	input := submitInput()
	input.MentorID = nil
	if _, err := svc.Submit(input, meta); !errors.Is(err, ErrMentorRequired) {
		t.Fatalf("expected ErrMentorRequired, got %v", err)
	}
}

func TestReviewNotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Review(42, mentor, ReviewInput{Action: ActionApprove}, meta)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Scenario: mentor approval hands the record to the HOD.
func TestMentorApprovalAdvancesToHOD(t *testing.T) {
	svc, _ := newTestService()
	app := mustSubmit(t, svc, submitInput())

	updated := mustReview(t, svc, app.ApplicationID, mentor, ReviewInput{Action: ActionApprove, Notes: "ok"})

	if updated.CurrentLevel != models.LevelHOD {
		t.Fatalf("expected current_level=hod, got %s", updated.CurrentLevel)
	}
	if updated.Status != models.StatusUnderReview {
		t.Fatalf("expected under_review, got %s", updated.Status)
	}
}

// Scenario: HOD rejection is terminal; a dean attempt afterwards fails.
func TestHODRejectionIsTerminal(t *testing.T) {
	svc, _ := newTestService()
	app := mustSubmit(t, svc, submitInput())
	mustReview(t, svc, app.ApplicationID, mentor, ReviewInput{Action: ActionApprove, Notes: "ok"})

	rejected := mustReview(t, svc, app.ApplicationID, hod, ReviewInput{Action: ActionReject, Notes: "insufficient proof"})

	if rejected.Status != models.StatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectedBy == nil || *rejected.RejectedBy != models.LevelHOD {
		t.Fatalf("expected rejected_by=hod, got %v", rejected.RejectedBy)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "insufficient proof" {
		t.Fatalf("expected rejection reason, got %v", rejected.RejectionReason)
	}

	_, err := svc.Review(app.ApplicationID, dean, ReviewInput{Action: ActionApprove}, meta)
	if !errors.Is(err, ErrAlreadyTerminal) && !errors.Is(err, ErrWrongLevel) {
		t.Fatalf("expected terminal or wrong-level failure, got %v", err)
	}

	// No review call of any kind succeeds on a terminal record.
	if _, err := svc.Review(app.ApplicationID, hod, ReviewInput{Action: ActionHold}, meta); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
}

// Scenario: explicit HOD escalation routes to the Dean.
func TestHODEscalationRoutesToDean(t *testing.T) {
	svc, _ := newTestService()
	app := mustSubmit(t, svc, submitInput())
	mustReview(t, svc, app.ApplicationID, mentor, ReviewInput{Action: ActionApprove, Notes: "ok"})

	escalated := mustReview(t, svc, app.ApplicationID, hod, ReviewInput{
		Action:           ActionApprove,
		Escalate:         true,
		EscalationReason: "needs policy exception",
	})

	if escalated.CurrentLevel != models.LevelDean {
		t.Fatalf("expected current_level=dean, got %s", escalated.CurrentLevel)
	}
	if escalated.Status != models.StatusEscalated {
		t.Fatalf("expected escalated, got %s", escalated.Status)
	}
	if !escalated.RequiresDeanApproval {
		t.Fatal("expected requires_dean_approval=true")
	}

	// Scenario continued: dean approval finalizes the chain.
	final := mustReview(t, svc, app.ApplicationID, dean, ReviewInput{Action: ActionApprove, Notes: "granted"})
	if final.Status != models.StatusApproved {
		t.Fatalf("expected approved, got %s", final.Status)
	}
	if final.CurrentLevel != models.LevelCompleted {
		t.Fatalf("expected completed, got %s", final.CurrentLevel)
	}
}

// Round-trip without escalation: the chain ends at the HOD with exactly
// two populated stages.
func TestApprovalRoundTripWithoutDean(t *testing.T) {
	svc, store := newTestService()
	app := mustSubmit(t, svc, submitInput())

	mustReview(t, svc, app.ApplicationID, mentor, ReviewInput{Action: ActionApprove, Notes: "ok"})
	final := mustReview(t, svc, app.ApplicationID, hod, ReviewInput{Action: ActionApprove, Notes: "fine"})

	if final.Status != models.StatusApproved || final.CurrentLevel != models.LevelCompleted {
		t.Fatalf("expected approved/completed, got %s/%s", final.Status, final.CurrentLevel)
	}
	if final.MentorStatus != models.StageApproved || final.HodStatus != models.StageApproved {
		t.Fatalf("expected mentor and hod stages approved, got %s/%s", final.MentorStatus, final.HodStatus)
	}
	if final.DeanStatus != "" {
		t.Fatalf("dean stage must be untouched, got %q", final.DeanStatus)
	}
	if len(store.reviews) != 2 {
		t.Fatalf("expected exactly two review rows, got %d", len(store.reviews))
	}

	// Terminal invariant: nothing succeeds afterwards.
	if _, err := svc.Review(app.ApplicationID, hod, ReviewInput{Action: ActionApprove}, meta); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
}

// Scenario: rejecting without notes fails and leaves the record alone.
func TestRejectWithoutNotesLeavesRecordUnchanged(t *testing.T) {
	svc, store := newTestService()
	app := mustSubmit(t, svc, submitInput())

	_, err := svc.Review(app.ApplicationID, mentor, ReviewInput{Action: ActionReject}, meta)
	if !errors.Is(err, ErrMissingReason) {
		t.Fatalf("expected ErrMissingReason, got %v", err)
	}

	stored, _ := store.Load(app.ApplicationID)
	if stored.Status != models.StatusPending || stored.CurrentLevel != models.LevelMentor || stored.Version != app.Version {
		t.Fatalf("record changed by failed review: %+v", stored)
	}
}

func TestReviewAuthorization(t *testing.T) {
	svc, _ := newTestService()
	app := mustSubmit(t, svc, submitInput())

	// A student is never a reviewer.
	if _, err := svc.Review(app.ApplicationID, Actor{UserID: student, RoleID: models.RoleStudent}, ReviewInput{Action: ActionApprove}, meta); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for student, got %v", err)
	}

	// Another faculty member is not the assigned mentor.
	if _, err := svc.Review(app.ApplicationID, Actor{UserID: 99, RoleID: models.RoleFaculty}, ReviewInput{Action: ActionApprove}, meta); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unassigned faculty, got %v", err)
	}

	// The HOD holds the right role but the record is still at the mentor
	// stage: stale state, not an authorization failure.
	if _, err := svc.Review(app.ApplicationID, hod, ReviewInput{Action: ActionApprove}, meta); !errors.Is(err, ErrWrongLevel) {
		t.Fatalf("expected ErrWrongLevel for early HOD, got %v", err)
	}
}

// Scenario: two HOD approvals race; exactly one persists and the loser
// sees a conflict.
func TestConcurrentReviewsConflict(t *testing.T) {
	svc, store := newTestService()
	app := mustSubmit(t, svc, submitInput())
	mustReview(t, svc, app.ApplicationID, mentor, ReviewInput{Action: ActionApprove, Notes: "ok"})

	rival := NewWorkflowService(store, nil)
	store.beforeSwap = func() {
		// The rival's approval lands between our load and our write.
		if _, err := rival.Review(app.ApplicationID, hod, ReviewInput{Action: ActionApprove, Notes: "first"}, meta); err != nil {
			t.Errorf("rival review failed: %v", err)
		}
	}

	_, err := svc.Review(app.ApplicationID, hod, ReviewInput{Action: ActionApprove, Notes: "second"}, meta)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	stored, _ := store.Load(app.ApplicationID)
	if stored.Status != models.StatusApproved || stored.HodNotes == nil || *stored.HodNotes != "first" {
		t.Fatalf("exactly the rival's decision must persist, got %+v", stored)
	}
}

func TestHoldKeepsRecordAtSameLevel(t *testing.T) {
	svc, _ := newTestService()
	app := mustSubmit(t, svc, submitInput())

	first := mustReview(t, svc, app.ApplicationID, mentor, ReviewInput{Action: ActionHold})
	second := mustReview(t, svc, app.ApplicationID, mentor, ReviewInput{Action: ActionHold})

	for i, got := range []*models.Application{first, second} {
		if got.Status != models.StatusUnderReview {
			t.Fatalf("hold %d: expected under_review, got %s", i+1, got.Status)
		}
		if got.CurrentLevel != models.LevelMentor {
			t.Fatalf("hold %d: expected mentor level, got %s", i+1, got.CurrentLevel)
		}
		if got.MentorStatus != models.StagePending {
			t.Fatalf("hold %d: stage must stay pending, got %s", i+1, got.MentorStatus)
		}
	}
}

func TestNotificationHookFiresAfterTransitions(t *testing.T) {
	store := newMemoryStore()
	notifier := newRecordingNotifier()
	svc := NewWorkflowService(store, notifier)

	app := mustSubmit(t, svc, submitInput())
	notifier.wait(t)

	mustReview(t, svc, app.ApplicationID, mentor, ReviewInput{Action: ActionApprove, Notes: "ok"})
	notifier.wait(t)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.submitted) != 1 {
		t.Fatalf("expected one submit notification, got %d", len(notifier.submitted))
	}
	if len(notifier.decided) != 1 || notifier.decided[0] != models.StatusPending+"->"+models.StatusUnderReview {
		t.Fatalf("unexpected decided notifications: %v", notifier.decided)
	}
}

func TestNotificationHookPanicDoesNotAffectTransition(t *testing.T) {
	store := newMemoryStore()
	svc := NewWorkflowService(store, panickyNotifier{})

	app := mustSubmit(t, svc, submitInput())
	updated := mustReview(t, svc, app.ApplicationID, mentor, ReviewInput{Action: ActionApprove, Notes: "ok"})

	if updated.CurrentLevel != models.LevelHOD {
		t.Fatalf("transition must not be affected by the hook, got %s", updated.CurrentLevel)
	}
}

type panickyNotifier struct{}

func (panickyNotifier) ApplicationSubmitted(*models.Application) { panic("boom") }

func (panickyNotifier) ReviewDecided(*models.Application, string, string) { panic("boom") }
