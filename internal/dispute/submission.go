// Package dispute contains the submission orchestration pipeline and the
// per-user dispute history cache.
package dispute

import (
	"time"

	"disputedesk/api/internal/intake"

	"github.com/google/uuid"
)

// Attachment is a supporting document held with its content.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
}

// Submission is one form instance. Its identifier is generated once, when
// the instance is created, and reused verbatim on every submit of that
// instance; it is never regenerated on resubmission.
type Submission struct {
	ID              string
	Location        string
	DateOfViolation string
	TicketType      string
	AdditionalNotes string
	Attachment      *Attachment
}

// NewSubmission creates a fresh form instance with the default field
// values: today's date and the first ticket category.
func NewSubmission() Submission {
	return Submission{
		ID:              uuid.NewString(),
		DateOfViolation: time.Now().Format("2006-01-02"),
		TicketType:      "Parking Ticket (Council)",
	}
}

// SetNotes applies an edit to the additional notes, clamped at input time
// so text beyond the cap never enters the submission.
func (s *Submission) SetNotes(next string) {
	s.AdditionalNotes = intake.ClampNotes(s.AdditionalNotes, next)
}

// intakeForm adapts the submission for validation.
func (s Submission) intakeForm() intake.Form {
	form := intake.Form{AdditionalNotes: s.AdditionalNotes}
	if s.Attachment != nil {
		form.Attachment = &intake.Attachment{
			Filename:    s.Attachment.Filename,
			ContentType: s.Attachment.ContentType,
			Size:        s.Attachment.Size,
		}
	}
	return form
}

// Response is the orchestrator's settled output for one submission. Its
// ID always equals the submission identifier, whatever the endpoint
// returned.
type Response struct {
	ID           string `json:"id"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AppealLetter string `json:"appealLetter,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
}
