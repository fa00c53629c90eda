package dispute

import (
	"context"
	"fmt"
	"log"
	"time"

	"disputedesk/api/internal/ai"
	"disputedesk/api/internal/store"
)

// TextExtractor reads the text off a stored ticket image.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageURL string) (string, error)
}

// LetterWriter drafts an appeal letter from ticket details.
type LetterWriter interface {
	GenerateAppealLetter(ctx context.Context, details ai.TicketDetails) (string, error)
}

// CompletionStore is the storage side of letter completion.
type CompletionStore interface {
	ListPendingDisputes(ctx context.Context, limit int) ([]store.Dispute, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	UpdateDisputeOutcome(ctx context.Context, id, extractedText, appealLetter, status string) error
}

// Completer finishes pending records left by the direct-upload path:
// it reads the ticket image, drafts the appeal letter and settles the
// record as success or failed. Each record gets exactly one attempt.
type Completer struct {
	store     CompletionStore
	extractor TextExtractor
	writer    LetterWriter
	interval  time.Duration
	batchSize int
}

func NewCompleter(store CompletionStore, extractor TextExtractor, writer LetterWriter, interval time.Duration) *Completer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Completer{
		store:     store,
		extractor: extractor,
		writer:    writer,
		interval:  interval,
		batchSize: 10,
	}
}

// Run sweeps for pending records until the context is cancelled.
func (c *Completer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := c.Sweep(ctx); err != nil {
				log.Printf("completion: sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("completion: settled %d record(s)", n)
			}
		}
	}
}

// Sweep processes one batch of pending records and reports how many it
// settled.
func (c *Completer) Sweep(ctx context.Context) (int, error) {
	pending, err := c.store.ListPendingDisputes(ctx, c.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	settled := 0
	for _, record := range pending {
		if err := c.complete(ctx, record); err != nil {
			log.Printf("completion: dispute %s failed: %v", record.ID, err)
			if err := c.store.UpdateDisputeOutcome(ctx, record.ID, "", "", "failed"); err != nil {
				log.Printf("completion: could not mark dispute %s failed: %v", record.ID, err)
				continue
			}
		}
		settled++
	}
	return settled, nil
}

func (c *Completer) complete(ctx context.Context, record store.Dispute) error {
	if record.TicketImageURL == "" {
		return fmt.Errorf("no ticket image")
	}

	extracted, err := c.extractor.ExtractText(ctx, record.TicketImageURL)
	if err != nil {
		return err
	}

	letter, err := c.writer.GenerateAppealLetter(ctx, ai.TicketDetails{
		ExtractedText:     extracted,
		Issuer:            record.TicketType,
		FullName:          c.ownerName(ctx, record),
		DateIssued:        record.DateOfViolation,
		Location:          record.Location,
		AppealType:        record.TicketType,
		AdditionalDetails: record.AdditionalNotes,
	})
	if err != nil {
		return err
	}

	return c.store.UpdateDisputeOutcome(ctx, record.ID, extracted, letter, "success")
}

// ownerName is best-effort: the letter still reads fine without a
// signature name.
func (c *Completer) ownerName(ctx context.Context, record store.Dispute) string {
	user, err := c.store.GetUserByID(ctx, record.UserID)
	if err != nil {
		return ""
	}
	name := user.FirstName
	if user.LastName != "" {
		if name != "" {
			name += " "
		}
		name += user.LastName
	}
	return name
}
