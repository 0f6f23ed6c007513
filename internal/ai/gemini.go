// Package ai is the client for the external generative suggestion service. It is a
// thin JSON-over-HTTPS client for the Gemini generateContent endpoint with three
// prompt shapes: tag suggestion, priority-task selection, and the morning briefing.
// Responses are best-effort structured JSON; every missing field has a defined
// fallback.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	geminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta/models"
	requestTimeout = 30 * time.Second

	// FallbackEmoji is applied when the tagger fails or returns nothing usable.
	FallbackEmoji = "📝"
)

// Client calls the Gemini API. A nil or key-less client is valid and reports
// itself as disabled; callers then skip AI features entirely.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClient creates a Gemini client. An empty apiKey yields a disabled client.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = baseURL
	return c
}

// Enabled reports whether the client has credentials to call the API.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Request/response shapes for the generateContent endpoint.

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// generateJSON sends one prompt in JSON response mode and decodes the returned
// JSON text into out.
func (c *Client) generateJSON(ctx context.Context, prompt string, out interface{}) error {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return &ServiceError{Kind: KindGeneric, Message: "encode request", Err: err}
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &ServiceError{Kind: KindGeneric, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &ServiceError{Kind: KindGeneric, Message: "transport failure", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ServiceError{Kind: KindGeneric, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr geminiError
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return &ServiceError{Kind: classifyStatus(resp.StatusCode), Message: msg}
	}

	var gr geminiResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return &ServiceError{Kind: KindGeneric, Message: "decode response envelope", Err: err}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return &ServiceError{Kind: KindGeneric, Message: "empty response"}
	}

	text := strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &ServiceError{Kind: KindGeneric, Message: "decode structured payload", Err: err}
	}
	return nil
}
