// Package client talks to a running focusdrift server.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lazypower/focusdrift/internal/session"
	"github.com/lazypower/focusdrift/internal/topic"
)

const httpTimeout = 10 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Client talks to the focusdrift server.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a client for the server at serverURL.
func New(serverURL string) *Client {
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: strings.TrimRight(serverURL, "/"),
	}
}

// Post sends a POST request with JSON body. Returns response body.
func (c *Client) Post(path string, body []byte) ([]byte, error) {
	resp, err := c.http.Post(c.serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return readBody("POST", path, resp)
}

// Get sends a GET request. Returns response body.
func (c *Client) Get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return readBody("GET", path, resp)
}

func readBody(method, path string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
		}
		return data, fmt.Errorf("%s %s: %w", method, path, apiErr)
	}
	return data, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Created is the server's reply to a new session.
type Created struct {
	SessionID     string              `json:"session_id"`
	Topic         topic.Topic         `json:"topic"`
	MatchingRules topic.MatchingRules `json:"matching_rules"`
	StartedAt     time.Time           `json:"started_at"`
}

// StartSession creates a live session for fs. An empty id lets the server
// assign one.
func (c *Client) StartSession(id string, fs topic.FocusSession) (*Created, error) {
	body, err := json.Marshal(struct {
		SessionID string `json:"session_id,omitempty"`
		topic.FocusSession
	}{id, fs})
	if err != nil {
		return nil, fmt.Errorf("marshal focus session: %w", err)
	}
	data, err := c.Post("/api/sessions", body)
	if err != nil {
		return nil, err
	}
	var out Created
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode created session: %w", err)
	}
	return &out, nil
}

// Snapshot posts page text for scoring.
func (c *Client) Snapshot(id, text string) (*session.Evaluation, error) {
	body, _ := json.Marshal(map[string]string{"text": text})
	data, err := c.Post(sessionPath(id, "snapshots"), body)
	if err != nil {
		return nil, err
	}
	var eval session.Evaluation
	if err := json.Unmarshal(data, &eval); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}
	return &eval, nil
}

// Status returns a live session's drift status.
func (c *Client) Status(id string) (*session.Status, error) {
	data, err := c.Get(sessionPath(id, ""))
	if err != nil {
		return nil, err
	}
	var st session.Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

// Reset clears a session's drift window.
func (c *Client) Reset(id string) error {
	_, err := c.Post(sessionPath(id, "reset"), nil)
	return err
}

// Snooze resets a session and snoozes it for the given minutes (0 means
// the server default).
func (c *Client) Snooze(id string, minutes int) (time.Time, error) {
	body, _ := json.Marshal(map[string]int{"minutes": minutes})
	data, err := c.Post(sessionPath(id, "snooze"), body)
	if err != nil {
		return time.Time{}, err
	}
	var out struct {
		SnoozedUntil time.Time `json:"snoozed_until"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return time.Time{}, fmt.Errorf("decode snooze: %w", err)
	}
	return out.SnoozedUntil, nil
}

// End drops a live session.
func (c *Client) End(id string) error {
	_, err := c.Post(sessionPath(id, "end"), nil)
	return err
}

func sessionPath(id, action string) string {
	p := "/api/sessions/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}
