// Package intake validates dispute form input before submission is
// attempted.
package intake

// MaxFileSize is the attachment size cap in bytes (10 MiB).
const MaxFileSize = 10 * 1024 * 1024

// MaxNotesLength is the additional-notes character cap.
const MaxNotesLength = 300

// AllowedFileTypes are the accepted attachment MIME types.
var AllowedFileTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// TicketTypes is the fixed enumeration of dispute categories.
var TicketTypes = []string{
	"Parking Ticket (Council)",
	"Parking Ticket (Private)",
	"Subscription Cancellation",
	"Accidental Charge",
	"Chargeback/Refund",
	"Council Property Issue",
	"Embassy/Consulate Matter",
	"Credit Card Dispute",
	"Credit Score Dispute",
	"Police Report",
	"Airport Dispute",
	"Late Delivery Refund",
	"Other",
}

// Reason identifies which rule a form failed.
type Reason string

const (
	ReasonUnsupportedFileType Reason = "UnsupportedFileType"
	ReasonFileTooLarge        Reason = "FileTooLarge"
	ReasonNotesTooLong        Reason = "NotesTooLong"
)

// messages for user-facing display, matching the form's inline errors.
var reasonMessages = map[Reason]string{
	ReasonUnsupportedFileType: "Please upload a JPG, PNG, or PDF file",
	ReasonFileTooLarge:        "File size must be less than 10MB",
	ReasonNotesTooLong:        "Additional notes must be 300 characters or fewer",
}

func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// Attachment describes a candidate file without its content.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
}

// Form is the validatable subset of the dispute form.
type Form struct {
	AdditionalNotes string
	Attachment      *Attachment
}

// Result is the validator outcome.
type Result struct {
	Valid  bool
	Reason Reason
}

// Validate applies the intake rules in order; the first failing rule wins.
// No other field is validated client-side: the generation endpoint is
// trusted to reject malformed location/date/category values.
func Validate(form Form) Result {
	if form.Attachment != nil {
		if !allowedType(form.Attachment.ContentType) {
			return Result{Reason: ReasonUnsupportedFileType}
		}
		if form.Attachment.Size > MaxFileSize {
			return Result{Reason: ReasonFileTooLarge}
		}
	}
	if len([]rune(form.AdditionalNotes)) > MaxNotesLength {
		return Result{Reason: ReasonNotesTooLong}
	}
	return Result{Valid: true}
}

// ClampNotes enforces the notes cap at input time: the existing value is
// kept and the incoming edit is rejected once it would exceed the limit,
// so the 300th character is accepted and the 301st never enters form
// state.
func ClampNotes(current, next string) string {
	if len([]rune(next)) > MaxNotesLength {
		return current
	}
	return next
}

// ValidTicketType reports whether value is one of the fixed categories.
func ValidTicketType(value string) bool {
	for _, t := range TicketTypes {
		if t == value {
			return true
		}
	}
	return false
}

func allowedType(contentType string) bool {
	for _, t := range AllowedFileTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
