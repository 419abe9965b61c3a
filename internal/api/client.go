package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"rappel-client/internal/config"
	"rappel-client/internal/model"
	"rappel-client/internal/utils"
)

// Client is a thin typed wrapper over the reminder backend: one method per
// endpoint, one round trip per call, no retries and no caching. The request
// timeout comes from the configuration (10 s by default).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/api",
		httpClient: utils.NewHTTPClient(cfg.Timeout),
	}
}

// ParseMessage asks the backend to interpret a free-text message as a
// reminder candidate.
func (c *Client) ParseMessage(ctx context.Context, message string) (*model.ParsedReminder, error) {
	var parsed model.ParsedReminder
	err := c.do(ctx, http.MethodPost, "/parse-message", model.ParseMessageRequest{Message: message}, &parsed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Chat sends one conversation turn with the full history so the stateless
// backend can keep context.
func (c *Client) Chat(ctx context.Context, message string, history []model.ConversationTurn) (*model.ChatResponse, error) {
	var resp model.ChatResponse
	req := model.ChatRequest{Message: message, ConversationHistory: history}
	if err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateReminder persists a confirmed candidate and returns the
// server-assigned record.
func (c *Client) CreateReminder(ctx context.Context, draft model.ReminderCreate) (*model.Reminder, error) {
	var created model.Reminder
	if err := c.do(ctx, http.MethodPost, "/reminders", draft, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetReminders lists reminders, optionally filtered by status ("" for all).
func (c *Client) GetReminders(ctx context.Context, status model.Status) ([]model.Reminder, error) {
	path := "/reminders"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var reminders []model.Reminder
	if err := c.do(ctx, http.MethodGet, path, nil, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

func (c *Client) DeleteReminder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/reminders/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UpdateReminderStatus(ctx context.Context, id string, status model.Status) (*model.Reminder, error) {
	var updated model.Reminder
	err := c.do(ctx, http.MethodPatch, "/reminders/"+url.PathEscape(id), model.UpdateStatusRequest{Status: status}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newHTTPError(resp *http.Response) *HTTPError {
	httpErr := &HTTPError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return httpErr
	}
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		if body.Detail != "" {
			httpErr.Message = body.Detail
		} else if body.Error != "" {
			httpErr.Message = body.Error
		}
	}
	return httpErr
}
