package dispute

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"disputedesk/api/internal/generation"
	"disputedesk/api/internal/intake"
	"disputedesk/api/internal/store"
)

// State is one phase of the submission pipeline.
type State string

const (
	StateIdle              State = "idle"
	StateValidating        State = "validating"
	StateResolvingIdentity State = "resolving-identity"
	StateSubmitting        State = "submitting"
	StateSettledSuccess    State = "settled-success"
	StateSettledError      State = "settled-error"
)

var (
	// ErrNotAuthenticated means the caller has no active session email.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUserRecordMissing means the session is authenticated but the
	// durable user record has not been materialized. Terminal; never
	// retried.
	ErrUserRecordMissing = errors.New("user record not found")
	// ErrSubmissionFailed covers every generation-endpoint failure:
	// non-2xx, transport error, or undecodable body. The upstream
	// detail is deliberately not sub-classified.
	ErrSubmissionFailed = errors.New("failed to submit dispute")
)

// ValidationError carries the first failing intake rule.
type ValidationError struct {
	Reason intake.Reason
}

func (e *ValidationError) Error() string {
	return e.Reason.Message()
}

// Caller is the session identity a submission runs under.
type Caller struct {
	Email       string
	DisplayName string
}

// Identities resolves session emails to durable user records.
type Identities interface {
	ResolveUserID(ctx context.Context, email string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
}

// Generator invokes the external generation endpoint.
type Generator interface {
	Generate(ctx context.Context, payload generation.Payload) (generation.Response, error)
}

// Orchestrator runs the submission pipeline for one form instance:
// validate, resolve the durable identity, package the multipart payload,
// invoke the generation endpoint, and reconcile the result with the
// submission identifier. At most one submission runs per instance.
type Orchestrator struct {
	identities Identities
	generator  Generator

	mu        sync.Mutex
	state     State
	uploading bool
	onState   func(State)
}

func NewOrchestrator(identities Identities, generator Generator) *Orchestrator {
	return &Orchestrator{
		identities: identities,
		generator:  generator,
		state:      StateIdle,
	}
}

// OnStateChange registers an observer invoked on every transition.
func (o *Orchestrator) OnStateChange(fn func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onState = fn
}

// State reports the current pipeline phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Uploading reports whether a submission is in flight.
func (o *Orchestrator) Uploading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.uploading
}

// Submit runs the pipeline once. Validation failures settle without any
// network call; a missing user record is terminal; endpoint failures
// settle with one generic error. The returned response's ID is always the
// submission identifier, even if the endpoint omitted or altered it.
func (o *Orchestrator) Submit(ctx context.Context, caller Caller, sub Submission) (Response, error) {
	o.transition(StateValidating)
	if result := intake.Validate(sub.intakeForm()); !result.Valid {
		o.transition(StateSettledError)
		return Response{}, &ValidationError{Reason: result.Reason}
	}

	if caller.Email == "" {
		o.transition(StateSettledError)
		return Response{}, ErrNotAuthenticated
	}

	o.transition(StateResolvingIdentity)
	userID, err := o.identities.ResolveUserID(ctx, caller.Email)
	if errors.Is(err, store.ErrNotFound) {
		o.transition(StateSettledError)
		return Response{}, ErrUserRecordMissing
	}
	if err != nil {
		o.transition(StateSettledError)
		return Response{}, fmt.Errorf("resolve identity: %w", err)
	}

	// Names come from the durable record, defaulted to empty strings if
	// the lookup fails.
	var firstName, lastName string
	if user, err := o.identities.GetUserByEmail(ctx, caller.Email); err == nil {
		firstName = user.FirstName
		lastName = user.LastName
	}

	o.transition(StateSubmitting)
	o.setUploading(true)
	defer o.setUploading(false)

	payload := generation.Payload{
		DisputeID:       sub.ID,
		UserID:          userID,
		Location:        sub.Location,
		DateOfViolation: sub.DateOfViolation,
		TicketType:      sub.TicketType,
		AdditionalNotes: sub.AdditionalNotes,
		FullName:        caller.DisplayName,
		FirstName:       firstName,
		LastName:        lastName,
	}
	if sub.Attachment != nil {
		payload.Attachment = &generation.Attachment{
			Filename:    sub.Attachment.Filename,
			ContentType: sub.Attachment.ContentType,
			Size:        sub.Attachment.Size,
			Content:     sub.Attachment.Content,
		}
	}

	upstream, err := o.generator.Generate(ctx, payload)
	if err != nil {
		o.transition(StateSettledError)
		return Response{}, ErrSubmissionFailed
	}

	// The client always knows which submission a response belongs to.
	response := Response{
		ID:           sub.ID,
		Success:      upstream.Success,
		Message:      upstream.Message,
		AppealLetter: upstream.AppealLetter,
		ErrorDetails: upstream.ErrorDetails,
	}
	o.transition(StateSettledSuccess)
	return response, nil
}

func (o *Orchestrator) transition(next State) {
	o.mu.Lock()
	o.state = next
	observer := o.onState
	o.mu.Unlock()
	if observer != nil {
		observer(next)
	}
}

func (o *Orchestrator) setUploading(value bool) {
	o.mu.Lock()
	o.uploading = value
	o.mu.Unlock()
}
