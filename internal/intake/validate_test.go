package intake

import (
	"strings"
	"testing"
)

func TestValidateAcceptsPlainForm(t *testing.T) {
	result := Validate(Form{AdditionalNotes: "I was loading a delivery"})
	if !result.Valid {
		t.Fatalf("expected valid, got %v", result.Reason)
	}
}

func TestValidateAcceptsAllowedAttachment(t *testing.T) {
	for _, contentType := range AllowedFileTypes {
		result := Validate(Form{Attachment: &Attachment{
			Filename:    "ticket.bin",
			ContentType: contentType,
			Size:        MaxFileSize,
		}})
		if !result.Valid {
			t.Errorf("%s: expected valid, got %v", contentType, result.Reason)
		}
	}
}

func TestValidateRejectsUnsupportedType(t *testing.T) {
	result := Validate(Form{Attachment: &Attachment{
		Filename:    "ticket.gif",
		ContentType: "image/gif",
		Size:        100,
	}})
	if result.Valid || result.Reason != ReasonUnsupportedFileType {
		t.Fatalf("expected %s, got %+v", ReasonUnsupportedFileType, result)
	}
}

func TestValidateRejectsOversizedAttachment(t *testing.T) {
	result := Validate(Form{Attachment: &Attachment{
		Filename:    "ticket.pdf",
		ContentType: "application/pdf",
		Size:        MaxFileSize + 1,
	}})
	if result.Valid || result.Reason != ReasonFileTooLarge {
		t.Fatalf("expected %s, got %+v", ReasonFileTooLarge, result)
	}
}

func TestValidateTypeRuleWinsOverSize(t *testing.T) {
	// An oversized file of a disallowed type fails the type rule first.
	result := Validate(Form{Attachment: &Attachment{
		Filename:    "huge.gif",
		ContentType: "image/gif",
		Size:        MaxFileSize + 1,
	}})
	if result.Reason != ReasonUnsupportedFileType {
		t.Fatalf("expected type rule to win, got %v", result.Reason)
	}
}

func TestValidateRejectsLongNotes(t *testing.T) {
	result := Validate(Form{AdditionalNotes: strings.Repeat("x", MaxNotesLength+1)})
	if result.Valid || result.Reason != ReasonNotesTooLong {
		t.Fatalf("expected %s, got %+v", ReasonNotesTooLong, result)
	}
}

func TestClampNotesBoundary(t *testing.T) {
	exactly := strings.Repeat("a", MaxNotesLength)
	if got := ClampNotes("", exactly); got != exactly {
		t.Errorf("expected exactly %d characters accepted", MaxNotesLength)
	}
	// The 301st character never enters form state.
	if got := ClampNotes(exactly, exactly+"b"); got != exactly {
		t.Errorf("expected over-limit edit rejected, got %d characters", len(got))
	}
}

func TestTicketTypeEnumeration(t *testing.T) {
	if len(TicketTypes) != 13 {
		t.Fatalf("expected 13 ticket types, got %d", len(TicketTypes))
	}
	if !ValidTicketType("Parking Ticket (Council)") {
		t.Error("expected default category to be valid")
	}
	if ValidTicketType("Speeding Fine") {
		t.Error("expected unknown category to be invalid")
	}
}
