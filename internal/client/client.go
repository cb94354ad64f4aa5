package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smithy/internal/logging"
	"smithy/internal/types"
)

const (
	DefaultBaseURL  = "http://127.0.0.1:8765"
	defaultTimeout  = 10 * time.Second
	HistoryPageSize = 20
)

type Client struct {
	baseURL     string
	http        *http.Client
	stream      *http.Client
	logger      logging.Logger
	streamDebug bool
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithStreamDebug(enabled bool) Option {
	return func(c *Client) {
		c.streamDebug = enabled
	}
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Streams stay open for the whole completion; only the dial is bounded.
	c.stream = &http.Client{Transport: c.http.Transport}
	return c
}

func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*types.Health, error) {
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &raw); err != nil {
		return nil, err
	}
	return parseHealth(raw), nil
}

func (c *Client) ListDialogs(ctx context.Context) (*types.DialogList, error) {
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/api/dialogs", nil, &raw); err != nil {
		return nil, err
	}
	return parseDialogList(raw), nil
}

func (c *Client) GetDialog(ctx context.Context, id string) (*types.Dialog, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, dialogPath(id, ""), nil, &raw); err != nil {
		return nil, err
	}
	dialog := parseDialog(raw)
	if dialog == nil {
		return nil, malformed("dialog")
	}
	return dialog, nil
}

func (c *Client) CreateDialog(ctx context.Context, title string) (*types.Dialog, error) {
	body := map[string]any{}
	if strings.TrimSpace(title) != "" {
		body["title"] = strings.TrimSpace(title)
	}
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodPost, "/api/dialogs", body, &raw); err != nil {
		return nil, err
	}
	dialog := parseDialog(raw)
	if dialog == nil {
		return nil, malformed("created dialog")
	}
	return dialog, nil
}

func (c *Client) SetCurrentDialog(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	path := "/api/dialogs/current?id=" + url.QueryEscape(strings.TrimSpace(id))
	return c.doJSON(ctx, http.MethodPatch, path, nil, nil)
}

func (c *Client) UpdateDialog(ctx context.Context, id, title string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPatch, dialogPath(id, ""), map[string]any{"title": title}, nil)
}

func (c *Client) DeleteDialog(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, dialogPath(id, ""), nil, nil)
}

// History fetches one page of a dialog's event log. before <= 0 asks for
// the most recent page.
func (c *Client) History(ctx context.Context, id string, limit, before int) (*types.HistoryPage, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = HistoryPageSize
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if before > 0 {
		query.Set("before", strconv.Itoa(before))
	}
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, dialogPath(id, "history")+"?"+query.Encode(), nil, &raw); err != nil {
		return nil, err
	}
	page := parseHistoryPage(raw)
	if page.DialogID == "" {
		page.DialogID = strings.TrimSpace(id)
	}
	return page, nil
}

func (c *Client) SessionStatus(ctx context.Context, id string) (*types.SessionStatus, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, dialogPath(id, "session"), nil, &raw); err != nil {
		return nil, err
	}
	return parseSessionStatus(raw), nil
}

func (c *Client) Approve(ctx context.Context, id, message string) (*types.ApproveResult, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	body := map[string]any{}
	if strings.TrimSpace(message) != "" {
		body["message"] = strings.TrimSpace(message)
	}
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodPost, dialogPath(id, "approve"), body, &raw); err != nil {
		return nil, err
	}
	return parseApproveResult(raw), nil
}

func (c *Client) Reset(ctx context.Context, id string) (*types.ResetResult, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodPost, dialogPath(id, "reset"), nil, &raw); err != nil {
		return nil, err
	}
	return parseResetResult(raw), nil
}

func (c *Client) Restore(ctx context.Context, id, checkpointID string) (*types.RestoreResult, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(checkpointID) == "" {
		return nil, errors.New("checkpoint id is required")
	}
	var raw map[string]any
	body := map[string]any{"checkpoint_id": strings.TrimSpace(checkpointID)}
	if err := c.doJSON(ctx, http.MethodPost, dialogPath(id, "restore"), body, &raw); err != nil {
		return nil, err
	}
	return parseRestoreResult(raw), nil
}

func (c *Client) Checkpoints(ctx context.Context, id string) ([]types.Checkpoint, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, dialogPath(id, "checkpoints"), nil, &raw); err != nil {
		return nil, err
	}
	return parseCheckpoints(raw), nil
}

func (c *Client) GetConfig(ctx context.Context) (*types.ServerConfig, error) {
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/api/config", nil, &raw); err != nil {
		return nil, err
	}
	return parseServerConfig(raw), nil
}

// UpdateConfig sends a partial config. Validation failures come back as an
// *APIError carrying the server's list of messages.
func (c *Client) UpdateConfig(ctx context.Context, patch map[string]any) (*types.ServerConfig, error) {
	if len(patch) == 0 {
		return nil, errors.New("config patch is empty")
	}
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodPut, "/api/config", map[string]any{"config": patch}, &raw); err != nil {
		return nil, err
	}
	return parseServerConfig(raw), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	requestID := logging.NewRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api_request_failed", logging.F("request_id", requestID), logging.F("method", method), logging.F("path", path), logging.F("error", err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		c.logger.Warn("api_error", logging.F("request_id", requestID), logging.F("method", method), logging.F("path", path), logging.F("status", resp.StatusCode), logging.F("error", apiErr.Message))
		return apiErr
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}

func dialogPath(id, suffix string) string {
	path := "/api/dialogs/" + url.PathEscape(strings.TrimSpace(id))
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("dialog id is required")
	}
	return nil
}

func malformed(what string) error {
	return &APIError{StatusCode: http.StatusOK, Message: fmt.Sprintf("malformed %s response", what)}
}
