package dispute

import (
	"context"
	"errors"
	"testing"

	"disputedesk/api/internal/store"
)

type fakeHistoryStore struct {
	disputes  []store.Dispute
	insertErr error
	listErr   error
}

func (f *fakeHistoryStore) InsertDispute(ctx context.Context, dispute store.Dispute) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.disputes = append(f.disputes, dispute)
	return nil
}

func (f *fakeHistoryStore) ListDisputesByUser(ctx context.Context, userID string) ([]store.Dispute, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var owned []store.Dispute
	for _, dispute := range f.disputes {
		if dispute.UserID == userID {
			owned = append(owned, dispute)
		}
	}
	return owned, nil
}

func TestFetchAllFiltersByOwner(t *testing.T) {
	backing := &fakeHistoryStore{disputes: []store.Dispute{
		{ID: "d1", UserID: "user-1", Location: "High Street"},
		{ID: "d2", UserID: "user-2", Location: "King's Road"},
		{ID: "d3", UserID: "user-1", Location: "Mill Lane"},
	}}
	history := NewHistory(backing)

	disputes, err := history.FetchAll(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(disputes) != 2 {
		t.Fatalf("expected 2 records, got %d", len(disputes))
	}
	for _, dispute := range disputes {
		if dispute.UserID != "user-1" {
			t.Errorf("record %s belongs to %s", dispute.ID, dispute.UserID)
		}
	}
}

func TestAddRefreshesCache(t *testing.T) {
	backing := &fakeHistoryStore{}
	history := NewHistory(backing)

	if err := history.Add(context.Background(), store.Dispute{ID: "d1", UserID: "user-1"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	cached := history.Disputes()
	if len(cached) != 1 || cached[0].ID != "d1" {
		t.Fatalf("expected the new record in the cache, got %+v", cached)
	}
}

func TestAddInsertFailureNotSaved(t *testing.T) {
	backing := &fakeHistoryStore{insertErr: errors.New("connection refused")}
	history := NewHistory(backing)

	err := history.Add(context.Background(), store.Dispute{ID: "d1", UserID: "user-1"})
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if storeErr.Saved {
		t.Error("insert failure must report the record as not saved")
	}
	if storeErr.Op != "add" {
		t.Errorf("op = %q, want add", storeErr.Op)
	}
}

func TestAddRefreshFailureStillSaved(t *testing.T) {
	backing := &fakeHistoryStore{listErr: errors.New("read replica down")}
	history := NewHistory(backing)

	err := history.Add(context.Background(), store.Dispute{ID: "d1", UserID: "user-1"})
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if !storeErr.Saved {
		t.Error("refresh failure must still report the record as saved")
	}
	if len(backing.disputes) != 1 {
		t.Errorf("expected the write to have landed, store holds %d records", len(backing.disputes))
	}
}

func TestFetchAllReplacesCacheWholesale(t *testing.T) {
	backing := &fakeHistoryStore{disputes: []store.Dispute{
		{ID: "d1", UserID: "user-1"},
		{ID: "d2", UserID: "user-1"},
	}}
	history := NewHistory(backing)

	if _, err := history.FetchAll(context.Background(), "user-1"); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	backing.disputes = backing.disputes[:1]
	if _, err := history.FetchAll(context.Background(), "user-1"); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if got := len(history.Disputes()); got != 1 {
		t.Errorf("expected the cache replaced, holds %d records", got)
	}
}

func TestDisputesReturnsSnapshot(t *testing.T) {
	backing := &fakeHistoryStore{disputes: []store.Dispute{{ID: "d1", UserID: "user-1"}}}
	history := NewHistory(backing)
	if _, err := history.FetchAll(context.Background(), "user-1"); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	snapshot := history.Disputes()
	snapshot[0].ID = "mutated"
	if history.Disputes()[0].ID != "d1" {
		t.Error("expected the cache unaffected by snapshot mutation")
	}
}
