package dispute

import (
	"context"
	"sync"

	"disputedesk/api/internal/store"
)

// HistoryStore is the durable side of the dispute history.
type HistoryStore interface {
	InsertDispute(ctx context.Context, dispute store.Dispute) error
	ListDisputesByUser(ctx context.Context, userID string) ([]store.Dispute, error)
}

// StoreError reports a history-store failure. Saved distinguishes "saved
// but stale view" (the write landed, the refresh failed) from "not
// saved".
type StoreError struct {
	Op    string // "add" or "refresh" or "fetch"
	Saved bool
	Err   error
}

func (e *StoreError) Error() string {
	if e.Saved {
		return "dispute saved but history refresh failed: " + e.Err.Error()
	}
	return "failed to " + e.Op + " dispute: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// History caches the current user's dispute records. The cache is
// replaced wholesale on fetch and eagerly refreshed after every add;
// ordering is whatever the backing query returns.
type History struct {
	store HistoryStore

	mu       sync.RWMutex
	disputes []store.Dispute
}

func NewHistory(store HistoryStore) *History {
	return &History{store: store}
}

// FetchAll replaces the cache with every record owned by userID.
func (h *History) FetchAll(ctx context.Context, userID string) ([]store.Dispute, error) {
	disputes, err := h.store.ListDisputesByUser(ctx, userID)
	if err != nil {
		return nil, &StoreError{Op: "fetch", Err: err}
	}
	h.mu.Lock()
	h.disputes = disputes
	h.mu.Unlock()
	return disputes, nil
}

// Add persists a record and immediately re-fetches the owner's history.
// This is read-after-write consistency, not a transaction: when the
// refresh fails, the record is already persisted and stays persisted.
func (h *History) Add(ctx context.Context, dispute store.Dispute) error {
	if err := h.store.InsertDispute(ctx, dispute); err != nil {
		return &StoreError{Op: "add", Err: err}
	}
	if _, err := h.FetchAll(ctx, dispute.UserID); err != nil {
		return &StoreError{Op: "refresh", Saved: true, Err: err}
	}
	return nil
}

// Disputes returns a snapshot of the cached records.
func (h *History) Disputes() []store.Dispute {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snapshot := make([]store.Dispute, len(h.disputes))
	copy(snapshot, h.disputes)
	return snapshot
}
