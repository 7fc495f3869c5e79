package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gridsight/internal/config"
)

// apiClient talks to a running gridsight daemon over its local HTTP API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(cfg *config.Config) (*apiClient, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, fmt.Errorf("api_bind is not configured; the daemon API is disabled")
	}
	return &apiClient{
		base:  "http://" + bind,
		token: strings.TrimSpace(cfg.Paths.APIToken),
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type sessionView struct {
	ID          string           `json:"id"`
	State       string           `json:"state"`
	SourcePath  string           `json:"source_path"`
	ErrorMsg    string           `json:"error"`
	StartedAt   time.Time        `json:"started_at"`
	DeadlineAt  time.Time        `json:"deadline_at"`
	Stages      []stageView      `json:"stages"`
	Transitions []transitionView `json:"transitions"`
}

type stageView struct {
	Stage   string         `json:"stage"`
	Payload map[string]any `json:"payload"`
}

type transitionView struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Stage string    `json:"stage"`
	At    time.Time `json:"at"`
}

type statusView struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	Workers      int          `json:"workers"`
	QueueDepth   int          `json:"queue_depth"`
	JournalPath  string       `json:"journal_path"`
	LockFilePath string       `json:"lock_file_path"`
	Session      *sessionView `json:"session"`
}

func (c *apiClient) startImport(ctx context.Context, imagePath string) (sessionView, error) {
	var view sessionView
	err := c.do(ctx, http.MethodPost, "/api/import", map[string]any{"image_path": imagePath}, &view)
	return view, err
}

func (c *apiClient) status(ctx context.Context) (statusView, error) {
	var view statusView
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &view)
	return view, err
}

func (c *apiClient) sessions(ctx context.Context) ([]sessionView, error) {
	var resp struct {
		Sessions []sessionView `json:"sessions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &resp)
	return resp.Sessions, err
}

func (c *apiClient) session(ctx context.Context, id string) (sessionView, error) {
	var view sessionView
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+id, nil, &view)
	return view, err
}

func (c *apiClient) submitCrop(ctx context.Context, id string, payload map[string]any) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/crop", payload, nil)
}

func (c *apiClient) approveReview(ctx context.Context, id string, result map[string]any) error {
	body := map[string]any{}
	if result != nil {
		body["result"] = result
	}
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/review", body, nil)
}

func (c *apiClient) cancel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/cancel", map[string]any{}, nil)
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
