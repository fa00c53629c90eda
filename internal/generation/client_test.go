package generation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateSendsExpectedFields(t *testing.T) {
	var gotFields map[string]string
	var gotFile []byte
	var gotFileHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotFields = make(map[string]string)
		for key, values := range r.MultipartForm.Value {
			gotFields[key] = values[0]
		}
		file, header, err := r.FormFile("ticketImage")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		gotFile, _ = io.ReadAll(file)
		gotFileHeader = header.Filename

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","appealLetter":"Dear Sir..."}`))
	}))
	defer server.Close()

	client := New(server.URL)
	resp, err := client.Generate(context.Background(), Payload{
		DisputeID:       "abc-123",
		UserID:          "user-42",
		Location:        "High Street",
		DateOfViolation: "2024-06-01",
		TicketType:      "Parking Ticket (Council)",
		AdditionalNotes: "meter was broken",
		FullName:        "Avery Quinn",
		FirstName:       "Avery",
		LastName:        "Quinn",
		Attachment: &Attachment{
			Filename:    "ticket.png",
			ContentType: "image/png",
			Size:        4,
			Content:     []byte{1, 2, 3, 4},
		},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !resp.Success || resp.AppealLetter != "Dear Sir..." {
		t.Errorf("unexpected response: %+v", resp)
	}

	want := map[string]string{
		"disputeId":       "abc-123",
		"userId":          "user-42",
		"location":        "High Street",
		"dateOfViolation": "2024-06-01",
		"ticketType":      "Parking Ticket (Council)",
		"additionalNotes": "meter was broken",
		"fullName":        "Avery Quinn",
		"firstName":       "Avery",
		"lastName":        "Quinn",
		"fileName":        "ticket.png",
		"fileType":        "image/png",
		"fileSize":        "4",
	}
	for key, value := range want {
		if gotFields[key] != value {
			t.Errorf("field %s = %q, want %q", key, gotFields[key], value)
		}
	}
	if gotFileHeader != "ticket.png" || len(gotFile) != 4 {
		t.Errorf("unexpected file part: name=%q len=%d", gotFileHeader, len(gotFile))
	}
}

func TestGenerateOmitsFullNameWhenUnset(t *testing.T) {
	var seenFullName bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(32 << 20)
		_, seenFullName = r.MultipartForm.Value["fullName"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	if _, err := client.Generate(context.Background(), Payload{DisputeID: "abc"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if seenFullName {
		t.Error("expected fullName field omitted when display name unset")
	}
}

func TestGenerateRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL)
	if _, err := client.Generate(context.Background(), Payload{DisputeID: "abc"}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestGenerateRejectsNonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := New(server.URL)
	if _, err := client.Generate(context.Background(), Payload{DisputeID: "abc"}); err == nil {
		t.Fatal("expected error for non-JSON body")
	}
}
