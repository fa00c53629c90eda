package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"disputedesk/api/internal/authpw"
	"disputedesk/api/internal/dispute"
	"disputedesk/api/internal/export"
	"disputedesk/api/internal/intake"
	"disputedesk/api/internal/objstore"
	"disputedesk/api/internal/search"
	"disputedesk/api/internal/session"
	"disputedesk/api/internal/store"
)

// DataStore is the durable storage the service reads and writes.
// *store.PostgresStore satisfies it.
type DataStore interface {
	Ping(ctx context.Context) error
	ResolveUserID(ctx context.Context, email string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	InsertDispute(ctx context.Context, dispute store.Dispute) error
	ListDisputesByUser(ctx context.Context, userID string) ([]store.Dispute, error)
	GetDispute(ctx context.Context, id string) (store.Dispute, error)
}

// Service wires the session tracker, the submission pipeline, the
// dispute history and the supporting collaborators behind the HTTP
// surface.
type Service struct {
	store     DataStore
	tracker   *session.Tracker
	generator dispute.Generator
	history   *dispute.History
	search    *search.Service
	uploads   *objstore.Store // nil when object storage is not configured
	export    *export.Service
}

func NewService(
	st DataStore,
	tracker *session.Tracker,
	generator dispute.Generator,
	searchSvc *search.Service,
	uploads *objstore.Store,
	exportSvc *export.Service,
) *Service {
	return &Service{
		store:     st,
		tracker:   tracker,
		generator: generator,
		history:   dispute.NewHistory(st),
		search:    searchSvc,
		uploads:   uploads,
		export:    exportSvc,
	}
}

// Ping verifies the service's hard dependencies.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.tracker.Ping(ctx); err != nil {
		return fmt.Errorf("session storage: %w", err)
	}
	return nil
}

// SignUp registers a new account and opens a session for it.
func (s *Service) SignUp(ctx context.Context, email, password, firstName, lastName string) (session.Session, error) {
	sess, err := s.tracker.Register(ctx, email, password, firstName, lastName)
	if err != nil {
		return session.Session{}, authError(err)
	}
	return sess, nil
}

// SignIn authenticates an existing account.
func (s *Service) SignIn(ctx context.Context, email, password string) (session.Session, error) {
	sess, err := s.tracker.SignIn(ctx, email, password)
	if err != nil {
		return session.Session{}, authError(err)
	}
	return sess, nil
}

// SignOut closes the caller's session. It never fails.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.tracker.SignOut(ctx, token)
}

// SessionFromToken validates a bearer token.
func (s *Service) SessionFromToken(ctx context.Context, token string) (session.Session, error) {
	return s.tracker.FromToken(ctx, token)
}

// SubmitDispute runs one submission through the pipeline, persists the
// resulting record with a status taken from the upstream answer, and
// pushes successful records to the search index.
func (s *Service) SubmitDispute(ctx context.Context, sess session.Session, sub dispute.Submission) (dispute.Response, error) {
	orch := dispute.NewOrchestrator(s.store, s.generator)
	resp, err := orch.Submit(ctx, dispute.Caller{Email: sess.Email, DisplayName: sess.DisplayName}, sub)
	if err != nil {
		return dispute.Response{}, submitError(err)
	}

	// The endpoint can answer 200 with success=false (for example when
	// the model declines); the stored status must reflect that.
	status := "failed"
	if resp.Success {
		status = "success"
	}
	record := store.Dispute{
		ID:              sub.ID,
		UserID:          sess.UserID,
		Location:        sub.Location,
		DateOfViolation: sub.DateOfViolation,
		TicketType:      sub.TicketType,
		AdditionalNotes: sub.AdditionalNotes,
		Status:          status,
		AppealLetter:    resp.AppealLetter,
	}
	if err := s.history.Add(ctx, record); err != nil {
		var storeErr *dispute.StoreError
		if errors.As(err, &storeErr) && storeErr.Saved {
			// The record landed; the caller just has a stale view.
			log.Printf("app: dispute %s saved, history refresh failed: %v", sub.ID, storeErr.Err)
		} else {
			return dispute.Response{}, domainError(http.StatusInternalServerError, "SAVE_FAILED", "Dispute was submitted but could not be saved", nil)
		}
	}
	if resp.Success {
		s.indexDispute(record)
	}

	return resp, nil
}

// ListDisputes returns the caller's dispute history, freshly fetched.
func (s *Service) ListDisputes(ctx context.Context, userID string) ([]store.Dispute, error) {
	if userID == "" {
		return []store.Dispute{}, nil
	}
	disputes, err := s.history.FetchAll(ctx, userID)
	if err != nil {
		return nil, domainError(http.StatusInternalServerError, "HISTORY_FAILED", "Could not load dispute history", nil)
	}
	if disputes == nil {
		disputes = []store.Dispute{}
	}
	return disputes, nil
}

// SearchDisputes searches the caller's history.
func (s *Service) SearchDisputes(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// Upload is the storage-bypass path: the file goes straight to object
// storage and a pending placeholder record is written, with no letter
// generation.
func (s *Service) Upload(ctx context.Context, sess session.Session, filename, contentType string, content []byte) (store.Dispute, error) {
	if s.uploads == nil {
		return store.Dispute{}, domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Object storage is not configured", nil)
	}
	if result := intake.Validate(intake.Form{Attachment: &intake.Attachment{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(content)),
	}}); !result.Valid {
		return store.Dispute{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", result.Reason.Message(), nil)
	}

	key, err := s.uploads.Put(ctx, filename, contentType, content)
	if err != nil {
		return store.Dispute{}, fmt.Errorf("upload: %w", err)
	}

	record := store.Dispute{
		ID:             dispute.NewSubmission().ID,
		UserID:         sess.UserID,
		TicketImageURL: s.uploads.URL(key),
		Status:         "pending",
		AppealLetter:   "",
	}
	if err := s.history.Add(ctx, record); err != nil {
		var storeErr *dispute.StoreError
		if !errors.As(err, &storeErr) || !storeErr.Saved {
			return store.Dispute{}, fmt.Errorf("save upload record: %w", err)
		}
		log.Printf("app: upload %s saved, history refresh failed: %v", record.ID, storeErr.Err)
	}
	s.indexDispute(record)

	return record, nil
}

// ExportLetter renders the appeal letter for one of the caller's own
// disputes as a PDF.
func (s *Service) ExportLetter(ctx context.Context, sess session.Session, disputeID string) (*export.Result, error) {
	record, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Dispute not found", nil)
		}
		return nil, fmt.Errorf("get dispute: %w", err)
	}
	if record.UserID == "" || record.UserID != sess.UserID {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Dispute not found", nil)
	}

	result, err := s.export.ExportLetter(ctx, disputeID, sess.DisplayName)
	if err != nil {
		if errors.Is(err, export.ErrLetterUnavailable) {
			return nil, domainError(http.StatusConflict, "LETTER_UNAVAILABLE", "No appeal letter has been generated for this dispute", nil)
		}
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available", nil)
		}
		return nil, fmt.Errorf("export letter: %w", err)
	}
	return result, nil
}

// ReindexSearch pushes every stored dispute into the search index.
// Called once at startup.
func (s *Service) ReindexSearch(ctx context.Context) {
	if s.search == nil {
		return
	}
	s.search.ReindexAllFromPG(ctx)
}

func (s *Service) indexDispute(record store.Dispute) {
	if s.search == nil {
		return
	}
	s.search.IndexDispute(search.DisputeRecord{
		ID:              record.ID,
		UserID:          record.UserID,
		Location:        record.Location,
		TicketType:      record.TicketType,
		AdditionalNotes: record.AdditionalNotes,
		AppealLetter:    record.AppealLetter,
		Status:          record.Status,
	})
}

// authError converts identity-provider failures into DomainErrors using
// the documented code table. Credential mistakes collapse to one
// message so the response does not reveal which field was wrong.
func authError(err error) error {
	var providerErr *authpw.Error
	if !errors.As(err, &providerErr) {
		return domainError(http.StatusInternalServerError, "AUTH_FAILED", "Authentication failed", nil)
	}
	switch providerErr.Code {
	case authpw.CodeEmailInUse:
		return domainError(http.StatusConflict, "EMAIL_EXISTS", providerErr.Message(), nil)
	case authpw.CodeWrongPassword, authpw.CodeUserNotFound, authpw.CodeInvalidCredential:
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", (&authpw.Error{Code: authpw.CodeInvalidCredential}).Message(), nil)
	case authpw.CodeUserDisabled:
		return domainError(http.StatusForbidden, "USER_DISABLED", providerErr.Message(), nil)
	case authpw.CodeTooManyRequests:
		return domainError(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", providerErr.Message(), nil)
	case authpw.CodeInvalidEmail, authpw.CodeWeakPassword, authpw.CodeMissingPassword:
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", providerErr.Message(), nil)
	case authpw.CodeNetworkFailure:
		return domainError(http.StatusBadGateway, "NETWORK_ERROR", providerErr.Message(), nil)
	case authpw.CodeOperationNotAllowed:
		return domainError(http.StatusForbidden, "NOT_ALLOWED", providerErr.Message(), nil)
	default:
		return domainError(http.StatusInternalServerError, "AUTH_FAILED", providerErr.Message(), nil)
	}
}

// submitError converts pipeline failures into DomainErrors. Each failure
// is caught once, here, and produces a single short message.
func submitError(err error) error {
	var validationErr *dispute.ValidationError
	if errors.As(err, &validationErr) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Reason.Message(), nil)
	}
	switch {
	case errors.Is(err, dispute.ErrNotAuthenticated):
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "You must be signed in to submit a dispute", nil)
	case errors.Is(err, dispute.ErrUserRecordMissing):
		return domainError(http.StatusConflict, "USER_RECORD_MISSING", "User ID not found. Please sign in again.", nil)
	case errors.Is(err, dispute.ErrSubmissionFailed):
		return domainError(http.StatusBadGateway, "SUBMISSION_FAILED", "Failed to submit dispute. Please try again.", nil)
	default:
		return domainError(http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
	}
}
