// Package api is the HTTP client for the voice-assistant backend:
// audio transcription, email confirmation and todo persistence.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"vodo/internal/store"
)

// TranscribeResult is the backend's response to an audio upload.
type TranscribeResult struct {
	AudioURL       string `json:"audioUrl"`
	Transcription  string `json:"transcription"`
	ExtractedEmail string `json:"extractedEmail"`
}

// ConfirmResult is the backend's response to an email confirmation.
type ConfirmResult struct {
	Confirmed bool   `json:"confirmed"`
	Message   string `json:"message,omitempty"`
}

// Client wraps the backend REST API. It satisfies store.Remote.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Transcribe uploads a recorded clip as a multipart form (field "file")
// to POST {base}/transcribe.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (TranscribeResult, error) {
	var res TranscribeResult

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(fileHeader(clipFilename(mimeType), mimeType))
	if err != nil {
		return res, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return res, fmt.Errorf("failed to write audio payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return res, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/transcribe", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return res, fmt.Errorf("failed to build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return res, fmt.Errorf("failed to call transcribe API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return res, fmt.Errorf("transcribe API error %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("failed to decode transcribe response: %w", err)
	}
	return res, nil
}

// ConfirmEmail posts a detected address together with its transcription
// context to POST {base}/confirm-email.
func (c *Client) ConfirmEmail(ctx context.Context, email, transcription string) (ConfirmResult, error) {
	var res ConfirmResult

	payload := map[string]string{
		"email":         email,
		"transcription": transcription,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return res, fmt.Errorf("failed to marshal confirm-email request: %w", err)
	}

	url := fmt.Sprintf("%s/confirm-email", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return res, fmt.Errorf("failed to build confirm-email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return res, fmt.Errorf("failed to call confirm-email API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return res, fmt.Errorf("confirm-email API error %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("failed to decode confirm-email response: %w", err)
	}
	return res, nil
}

// List fetches all tasks via GET {base}/todos.
func (c *Client) List(ctx context.Context) ([]store.Task, error) {
	url := fmt.Sprintf("%s/todos", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call todos list API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("todos list API error %d: %s", resp.StatusCode, string(raw))
	}

	var tasks []store.Task
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("failed to decode todos list response: %w", err)
	}
	return tasks, nil
}

// Create persists a new task via POST {base}/todos.
func (c *Client) Create(ctx context.Context, t store.Task) (store.Task, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return store.Task{}, fmt.Errorf("failed to marshal create request: %w", err)
	}

	url := fmt.Sprintf("%s/todos", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return store.Task{}, fmt.Errorf("failed to build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return store.Task{}, fmt.Errorf("failed to call todos create API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return store.Task{}, fmt.Errorf("todos create API error %d: %s", resp.StatusCode, string(raw))
	}

	var created store.Task
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return store.Task{}, fmt.Errorf("failed to decode todos create response: %w", err)
	}
	return created, nil
}

// Update patches a task via PATCH {base}/todos/{id}.
func (c *Client) Update(ctx context.Context, id string, p store.Patch) (store.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return store.Task{}, fmt.Errorf("failed to marshal update request: %w", err)
	}

	url := fmt.Sprintf("%s/todos/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewBuffer(body))
	if err != nil {
		return store.Task{}, fmt.Errorf("failed to build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return store.Task{}, fmt.Errorf("failed to call todos update API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return store.Task{}, fmt.Errorf("todos update API error %d: %s", resp.StatusCode, string(raw))
	}

	var updated store.Task
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return store.Task{}, fmt.Errorf("failed to decode todos update response: %w", err)
	}
	return updated, nil
}

// Delete removes a task via DELETE {base}/todos/{id}.
func (c *Client) Delete(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/todos/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call todos delete API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("todos delete API error %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

func clipFilename(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav":
		return "recording.wav"
	case "audio/ogg":
		return "recording.ogg"
	default:
		return "recording.webm"
	}
}

func fileHeader(filename, mimeType string) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", mimeType)
	return h
}
