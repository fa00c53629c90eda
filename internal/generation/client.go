// Package generation is the HTTP client for the external endpoint that
// performs OCR and appeal-letter drafting out-of-process.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// Attachment is the binary payload sent alongside the form fields.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
}

// Payload is one dispute submission on the wire.
type Payload struct {
	DisputeID       string
	UserID          string
	Location        string
	DateOfViolation string
	TicketType      string
	AdditionalNotes string
	FullName        string
	FirstName       string
	LastName        string
	Attachment      *Attachment
}

// Response is the endpoint's JSON result body.
type Response struct {
	ID           string `json:"id,omitempty"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AppealLetter string `json:"appealLetter,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
}

// Client posts dispute submissions as multipart form bodies.
type Client struct {
	url    string
	client *http.Client
}

func New(url string) *Client {
	return &Client{
		url: url,
		// No client-side timeout beyond the transport's own limits;
		// callers cancel through the context.
		client: &http.Client{Transport: &http.Transport{
			ResponseHeaderTimeout: 0,
			IdleConnTimeout:       90 * time.Second,
		}},
	}
}

// NewWithHTTPClient creates a client with a caller-supplied http.Client.
func NewWithHTTPClient(url string, httpClient *http.Client) *Client {
	return &Client{url: url, client: httpClient}
}

// Generate sends the payload and decodes the endpoint's response. Any
// non-2xx status, transport failure, or non-JSON body is an error; the
// caller does not distinguish between them.
func (c *Client) Generate(ctx context.Context, payload Payload) (Response, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := []struct{ name, value string }{
		{"disputeId", payload.DisputeID},
		{"userId", payload.UserID},
		{"location", payload.Location},
		{"dateOfViolation", payload.DateOfViolation},
		{"ticketType", payload.TicketType},
		{"additionalNotes", payload.AdditionalNotes},
	}
	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return Response{}, fmt.Errorf("write field %s: %w", field.name, err)
		}
	}
	if payload.FullName != "" {
		if err := writer.WriteField("fullName", payload.FullName); err != nil {
			return Response{}, fmt.Errorf("write field fullName: %w", err)
		}
	}
	if err := writer.WriteField("firstName", payload.FirstName); err != nil {
		return Response{}, fmt.Errorf("write field firstName: %w", err)
	}
	if err := writer.WriteField("lastName", payload.LastName); err != nil {
		return Response{}, fmt.Errorf("write field lastName: %w", err)
	}

	if att := payload.Attachment; att != nil {
		part, err := createFilePart(writer, att.Filename, att.ContentType)
		if err != nil {
			return Response{}, fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(att.Content)); err != nil {
			return Response{}, fmt.Errorf("write attachment: %w", err)
		}
		meta := []struct{ name, value string }{
			{"fileName", att.Filename},
			{"fileType", att.ContentType},
			{"fileSize", strconv.FormatInt(att.Size, 10)},
		}
		for _, field := range meta {
			if err := writer.WriteField(field.name, field.value); err != nil {
				return Response{}, fmt.Errorf("write field %s: %w", field.name, err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return Response{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("submit dispute: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, fmt.Errorf("generation endpoint returned status %d", resp.StatusCode)
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil
}

func createFilePart(writer *multipart.Writer, filename, contentType string) (io.Writer, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="ticketImage"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)
	return writer.CreatePart(header)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
