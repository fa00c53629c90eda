package ocr

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

// ErrExtractionFailed is the single error callers see.
var ErrExtractionFailed = errors.New("failed to extract text from image")

// Client reads ticket images through a Vision-style annotate endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: "https://vision.googleapis.com/v1",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at an alternate endpoint. Tests use it.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageSource `json:"image"`
	Features []feature   `json:"features"`
}

type imageSource struct {
	Source struct {
		ImageURI string `json:"imageUri"`
	} `json:"source"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
	} `json:"responses"`
}

// ExtractText runs text detection over the image at imageURL and returns
// the full-page annotation. A picture with no readable text yields the
// empty string, not an error.
func (c *Client) ExtractText(ctx context.Context, imageURL string) (string, error) {
	var img imageSource
	img.Source.ImageURI = imageURL
	body, err := json.Marshal(annotateRequest{Requests: []imageRequest{{
		Image:    img,
		Features: []feature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	url := fmt.Sprintf("%s/images:annotate?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrExtractionFailed, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if len(decoded.Responses) == 0 || len(decoded.Responses[0].TextAnnotations) == 0 {
		return "", nil
	}
	// The first annotation is the whole-image text block.
	return decoded.Responses[0].TextAnnotations[0].Description, nil
}
