package services

import "errors"

// Workflow failures. Each kind is surfaced distinctly to the caller so the
// API layer can map it to its own response; they are never collapsed into
// one another (a Forbidden must not be reported as a WrongLevel).
var (
	// ErrNotFound: no application exists for the given ID.
	ErrNotFound = errors.New("application not found")

	// ErrForbidden: the actor is not the authorized reviewer for this
	// record, regardless of the action requested.
	ErrForbidden = errors.New("actor is not authorized to review this application")

	// ErrWrongLevel: the actor holds the right role but the record is not
	// at their stage (stale client state rather than an authorization
	// failure).
	ErrWrongLevel = errors.New("application is not at the actor's review level")

	// ErrAlreadyTerminal: the record reached approved/rejected and can no
	// longer change.
	ErrAlreadyTerminal = errors.New("application review is already finalized")

	// ErrMissingReason: a rejection without notes, or an escalation
	// without an escalation reason.
	ErrMissingReason = errors.New("a reason is required for this action")

	// ErrConflict: the conditional write lost a race with a concurrent
	// transition. The caller should reload and retry; the service never
	// retries on its own.
	ErrConflict = errors.New("application was modified concurrently")

	// ErrInvalidAction: the requested action is not approve/reject/hold.
	ErrInvalidAction = errors.New("unknown review action")

	// ErrMentorRequired: submission without an assigned mentor. The chain
	// has no reassignment transition, so such a record could never be
	// reviewed.
	ErrMentorRequired = errors.New("a mentor must be assigned before submission")
)
