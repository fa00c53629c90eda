package dispute

import (
	"context"
	"errors"
	"testing"

	"disputedesk/api/internal/ai"
	"disputedesk/api/internal/store"
)

type fakeCompletionStore struct {
	pending  []store.Dispute
	users    map[string]store.User
	outcomes map[string][3]string // id -> extracted, letter, status
}

func newFakeCompletionStore(pending ...store.Dispute) *fakeCompletionStore {
	return &fakeCompletionStore{
		pending:  pending,
		users:    make(map[string]store.User),
		outcomes: make(map[string][3]string),
	}
}

func (f *fakeCompletionStore) ListPendingDisputes(ctx context.Context, limit int) ([]store.Dispute, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeCompletionStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeCompletionStore) UpdateDisputeOutcome(ctx context.Context, id, extractedText, appealLetter, status string) error {
	f.outcomes[id] = [3]string{extractedText, appealLetter, status}
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, imageURL string) (string, error) {
	return f.text, f.err
}

type fakeWriter struct {
	letter  string
	err     error
	details []ai.TicketDetails
}

func (f *fakeWriter) GenerateAppealLetter(ctx context.Context, details ai.TicketDetails) (string, error) {
	f.details = append(f.details, details)
	if f.err != nil {
		return "", f.err
	}
	return f.letter, nil
}

func TestSweepCompletesPendingRecord(t *testing.T) {
	backing := newFakeCompletionStore(store.Dispute{
		ID:             "d1",
		UserID:         "user-42",
		TicketType:     "Parking Ticket (Council)",
		Location:       "High Street",
		TicketImageURL: "https://storage.example.com/tickets/1-ticket.png",
	})
	backing.users["user-42"] = store.User{UserID: "user-42", FirstName: "Avery", LastName: "Quinn"}

	extractor := &fakeExtractor{text: "PCN 12345"}
	writer := &fakeWriter{letter: "Dear Sir or Madam,"}
	completer := NewCompleter(backing, extractor, writer, 0)

	settled, err := completer.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if settled != 1 {
		t.Fatalf("settled = %d", settled)
	}

	outcome := backing.outcomes["d1"]
	if outcome[0] != "PCN 12345" || outcome[1] != "Dear Sir or Madam," || outcome[2] != "success" {
		t.Errorf("outcome = %v", outcome)
	}

	if len(writer.details) != 1 {
		t.Fatalf("expected one letter request, got %d", len(writer.details))
	}
	details := writer.details[0]
	if details.FullName != "Avery Quinn" {
		t.Errorf("FullName = %q", details.FullName)
	}
	if details.ExtractedText != "PCN 12345" || details.Location != "High Street" {
		t.Errorf("details = %+v", details)
	}
}

func TestSweepMarksFailureOnExtractionError(t *testing.T) {
	backing := newFakeCompletionStore(store.Dispute{
		ID:             "d1",
		UserID:         "user-42",
		TicketImageURL: "https://storage.example.com/tickets/1-ticket.png",
	})
	extractor := &fakeExtractor{err: errors.New("vision down")}
	completer := NewCompleter(backing, extractor, &fakeWriter{}, 0)

	if _, err := completer.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if outcome := backing.outcomes["d1"]; outcome[2] != "failed" {
		t.Errorf("expected the record marked failed, got %v", outcome)
	}
}

func TestSweepMarksFailureWhenImageMissing(t *testing.T) {
	backing := newFakeCompletionStore(store.Dispute{ID: "d1", UserID: "user-42"})
	completer := NewCompleter(backing, &fakeExtractor{}, &fakeWriter{letter: "x"}, 0)

	if _, err := completer.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if outcome := backing.outcomes["d1"]; outcome[2] != "failed" {
		t.Errorf("expected failed, got %v", outcome)
	}
}

func TestSweepMissingOwnerStillCompletes(t *testing.T) {
	backing := newFakeCompletionStore(store.Dispute{
		ID:             "d1",
		UserID:         "ghost",
		TicketImageURL: "https://storage.example.com/tickets/1-ticket.png",
	})
	writer := &fakeWriter{letter: "Dear Sir or Madam,"}
	completer := NewCompleter(backing, &fakeExtractor{text: "PCN"}, writer, 0)

	if _, err := completer.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if outcome := backing.outcomes["d1"]; outcome[2] != "success" {
		t.Errorf("expected success without an owner name, got %v", outcome)
	}
	if writer.details[0].FullName != "" {
		t.Errorf("FullName = %q, want empty", writer.details[0].FullName)
	}
}
