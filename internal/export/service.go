package export

import (
	"context"
	"fmt"

	"disputedesk/api/internal/store"
)

// DisputeStore loads the dispute a letter is exported for.
type DisputeStore interface {
	GetDispute(ctx context.Context, id string) (store.Dispute, error)
}

// Service turns a dispute's appeal letter into a PDF download.
type Service struct {
	store DisputeStore
}

func NewService(store DisputeStore) *Service {
	return &Service{store: store}
}

// ExportLetter renders the appeal letter for disputeID as a PDF. The
// fullName appears in the letter header; it comes from the caller's
// session, not the record.
func (s *Service) ExportLetter(ctx context.Context, disputeID, fullName string) (*Result, error) {
	dispute, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, fmt.Errorf("get dispute: %w", err)
	}
	if dispute.AppealLetter == "" {
		return nil, ErrLetterUnavailable
	}

	html, err := RenderLetterHTML(Letter{
		DisputeID:       dispute.ID,
		TicketType:      dispute.TicketType,
		Location:        dispute.Location,
		DateOfViolation: dispute.DateOfViolation,
		FullName:        fullName,
		Body:            dispute.AppealLetter,
		CreatedAt:       dispute.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	return exportPDF(html, "Appeal "+dispute.TicketType)
}
