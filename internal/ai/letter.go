package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrGenerationFailed is the single error callers see; the underlying
// cause is logged, not surfaced.
var ErrGenerationFailed = errors.New("failed to generate appeal letter")

const defaultModel = "gemini-1.5-flash"

// TicketDetails carries everything the letter prompt needs.
type TicketDetails struct {
	ExtractedText     string
	Issuer            string
	FullName          string
	DateIssued        string
	Location          string
	AppealType        string
	AdditionalDetails string
}

// LetterClient drafts appeal letters against a Gemini-style
// generateContent endpoint.
type LetterClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewLetterClient(apiKey, model string) *LetterClient {
	if model == "" {
		model = defaultModel
	}
	return &LetterClient{
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL points the client at an alternate endpoint. Tests use it.
func (c *LetterClient) WithBaseURL(url string) *LetterClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateAppealLetter asks the model for a formal appeal letter. Any
// failure collapses to ErrGenerationFailed.
func (c *LetterClient) GenerateAppealLetter(ctx context.Context, details TicketDetails) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: letterPrompt(details)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	var letter strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		letter.WriteString(p.Text)
	}
	return letter.String(), nil
}

func letterPrompt(d TicketDetails) string {
	return fmt.Sprintf(`Generate a formal appeal letter for a parking ticket with the following details:
    Ticket Information: %s
    Issuer: %s
    Full Name: %s
    Date: %s
    Location: %s
    Appeal Type: %s
    Additional Context: %s

    Please write a professional, well-structured appeal letter that addresses the specific circumstances. Use the provided full name in the letter's signature and header.`,
		d.ExtractedText, d.Issuer, d.FullName, d.DateIssued, d.Location, d.AppealType, d.AdditionalDetails)
}
