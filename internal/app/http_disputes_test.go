package app

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"disputedesk/api/internal/generation"
	"disputedesk/api/internal/intake"
	"disputedesk/api/internal/store"
)

type multipartBody struct {
	buf    bytes.Buffer
	writer *multipart.Writer
}

func newMultipartBody() *multipartBody {
	body := &multipartBody{}
	body.writer = multipart.NewWriter(&body.buf)
	return body
}

func (b *multipartBody) field(name, value string) *multipartBody {
	_ = b.writer.WriteField(name, value)
	return b
}

func (b *multipartBody) file(field, filename, contentType string, content []byte) *multipartBody {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, _ := b.writer.CreatePart(header)
	_, _ = part.Write(content)
	return b
}

func (b *multipartBody) done() ([]byte, string) {
	_ = b.writer.Close()
	return b.buf.Bytes(), b.writer.FormDataContentType()
}

func TestSubmitDisputeHappyPath(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)
	userID := signup["userId"].(string)

	body, contentType := newMultipartBody().
		field("disputeId", "abc-123").
		field("location", "High Street").
		field("dateOfViolation", "2024-06-01").
		field("ticketType", "Parking Ticket (Council)").
		field("additionalNotes", "meter was broken").
		file("ticketImage", "ticket.png", "image/png", []byte{1, 2, 3}).
		done()

	rr := h.do(t, http.MethodPost, "/api/disputes", token, body, contentType)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	payload := parseBody(t, rr)
	if payload["id"] != "abc-123" {
		t.Errorf("response id = %v, want the submission id", payload["id"])
	}
	if payload["appealLetter"] != "Dear Sir or Madam," {
		t.Errorf("appealLetter = %v", payload["appealLetter"])
	}

	if h.gen.calls != 1 {
		t.Fatalf("expected one generation call, got %d", h.gen.calls)
	}
	sent := h.gen.payloads[0]
	if sent.DisputeID != "abc-123" || sent.UserID != userID {
		t.Errorf("payload ids = %q/%q", sent.DisputeID, sent.UserID)
	}
	if sent.FullName != "Avery Quinn" || sent.FirstName != "Avery" || sent.LastName != "Quinn" {
		t.Errorf("payload names = %q/%q/%q", sent.FullName, sent.FirstName, sent.LastName)
	}
	if sent.Attachment == nil || sent.Attachment.Filename != "ticket.png" {
		t.Errorf("payload attachment = %+v", sent.Attachment)
	}

	// The record was persisted for the history view.
	disputes, err := h.data.ListDisputesByUser(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(disputes) != 1 || disputes[0].ID != "abc-123" {
		t.Fatalf("expected the record persisted, got %+v", disputes)
	}
	if disputes[0].Status != "success" || disputes[0].AppealLetter == "" {
		t.Errorf("record = %+v", disputes[0])
	}
}

func TestSubmitDisputeRejectsUnsupportedFileWithoutNetworkCall(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)

	body, contentType := newMultipartBody().
		field("location", "High Street").
		file("ticketImage", "ticket.gif", "image/gif", []byte{1}).
		done()

	rr := h.do(t, http.MethodPost, "/api/disputes", token, body, contentType)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	if payload["code"] != "VALIDATION_ERROR" {
		t.Errorf("code = %v", payload["code"])
	}
	if payload["error"] != "Please upload a JPG, PNG, or PDF file" {
		t.Errorf("message = %v", payload["error"])
	}
	if h.gen.calls != 0 {
		t.Errorf("expected zero generation calls, got %d", h.gen.calls)
	}
}

func TestSubmitDisputeRejectsLongNotes(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)

	body, contentType := newMultipartBody().
		field("additionalNotes", strings.Repeat("a", intake.MaxNotesLength+1)).
		done()

	rr := h.do(t, http.MethodPost, "/api/disputes", token, body, contentType)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	if h.gen.calls != 0 {
		t.Errorf("expected zero generation calls, got %d", h.gen.calls)
	}
}

func TestSubmitDisputeRejectsUnknownTicketType(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)

	body, contentType := newMultipartBody().
		field("ticketType", "Jaywalking").
		done()

	rr := h.do(t, http.MethodPost, "/api/disputes", token, body, contentType)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitDisputeEndpointFailureIsGeneric(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)

	h.gen.err = context.DeadlineExceeded

	body, contentType := newMultipartBody().
		field("location", "High Street").
		done()

	rr := h.do(t, http.MethodPost, "/api/disputes", token, body, contentType)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	if payload["code"] != "SUBMISSION_FAILED" {
		t.Errorf("code = %v", payload["code"])
	}
	if payload["error"] != "Failed to submit dispute. Please try again." {
		t.Errorf("message = %v, upstream detail must not leak", payload["error"])
	}
}

func TestSubmitDisputeMissingUserRecord(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)

	// Simulate the documented gap: the identity exists but the durable
	// record has gone missing.
	h.data.mu.Lock()
	delete(h.data.users, "avery@example.com")
	h.data.mu.Unlock()

	body, contentType := newMultipartBody().
		field("location", "High Street").
		done()

	rr := h.do(t, http.MethodPost, "/api/disputes", token, body, contentType)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	if payload["code"] != "USER_RECORD_MISSING" {
		t.Errorf("code = %v", payload["code"])
	}
	if h.gen.calls != 0 {
		t.Errorf("expected no generation call for a missing record, got %d", h.gen.calls)
	}
}

func TestListDisputesReturnsOwnRecordsOnly(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)
	userID := signup["userId"].(string)

	h.data.disputes = []store.Dispute{
		{ID: "d1", UserID: userID, Location: "High Street"},
		{ID: "d2", UserID: "someone-else", Location: "King's Road"},
	}

	rr := h.do(t, http.MethodGet, "/api/disputes", token, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	disputes, ok := payload["disputes"].([]any)
	if !ok || len(disputes) != 1 {
		t.Fatalf("expected exactly the caller's record, got %v", payload["disputes"])
	}
}

func TestSubmitDisputeUpstreamDeclined(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)
	userID := signup["userId"].(string)

	// A 200 with success=false means the endpoint accepted the request
	// but produced no letter; the record must not land as a success.
	h.gen.response = generation.Response{
		Success:      false,
		ErrorDetails: "model refused",
	}

	body, contentType := newMultipartBody().
		field("disputeId", "abc-123").
		field("location", "High Street").
		done()

	rr := h.do(t, http.MethodPost, "/api/disputes", token, body, contentType)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	disputes, err := h.data.ListDisputesByUser(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(disputes) != 1 {
		t.Fatalf("expected the record persisted, got %+v", disputes)
	}
	if disputes[0].Status != "failed" {
		t.Errorf("status = %q, want failed", disputes[0].Status)
	}
	if disputes[0].AppealLetter != "" {
		t.Errorf("appealLetter = %q, want empty", disputes[0].AppealLetter)
	}
}

func TestUploadWithoutObjectStorage(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)

	body, contentType := newMultipartBody().
		file("ticketImage", "ticket.png", "image/png", []byte{1}).
		done()

	rr := h.do(t, http.MethodPost, "/api/uploads", token, body, contentType)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rr.Code, rr.Body.String())
	}
	if payload := parseBody(t, rr); payload["code"] != "UPLOADS_UNAVAILABLE" {
		t.Errorf("code = %v", payload["code"])
	}
}

func TestExportLetterUnavailable(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)
	userID := signup["userId"].(string)

	h.data.disputes = []store.Dispute{{ID: "d1", UserID: userID, Status: "pending"}}

	rr := h.do(t, http.MethodGet, "/api/disputes/d1/letter.pdf", token, nil, "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if payload := parseBody(t, rr); payload["code"] != "LETTER_UNAVAILABLE" {
		t.Errorf("code = %v", payload["code"])
	}
}

func TestExportLetterHidesOtherUsersDisputes(t *testing.T) {
	h := newTestHarness(t)
	signup := h.signUp(t, "avery@example.com", "hunter2", "Avery", "Quinn")
	token := signup["token"].(string)

	h.data.disputes = []store.Dispute{{ID: "d1", UserID: "someone-else", AppealLetter: "Dear..."}}

	rr := h.do(t, http.MethodGet, "/api/disputes/d1/letter.pdf", token, nil, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}
