package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrRequestFailed wraps transport failures of a chat stream: non-2xx
	// status or a dropped connection.
	ErrRequestFailed = errors.New("request failed")
	// ErrAborted marks a stream that was cancelled by the caller or replaced
	// by a newer stream.
	ErrAborted = errors.New("stream aborted")
)

type APIError struct {
	StatusCode       int
	Message          string
	ValidationErrors []string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.ValidationErrors) > 0 {
		return fmt.Sprintf("api error (%d): %s: %s", e.StatusCode, e.Message, strings.Join(e.ValidationErrors, "; "))
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

func IsNotFound(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusNotFound
}

// decodeAPIError accepts the error shapes the server has used over time:
// {"error": "..."}, {"detail": "..."}, {"detail": {"message", "errors"}}
// and a top-level {"errors": [...]} list.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		if text := strings.TrimSpace(string(data)); text != "" && len(text) < 512 {
			apiErr.Message = text
		}
		return apiErr
	}
	if msg := asString(payload, "error"); msg != "" {
		apiErr.Message = msg
	}
	switch detail := payload["detail"].(type) {
	case string:
		if strings.TrimSpace(detail) != "" {
			apiErr.Message = detail
		}
	case map[string]any:
		if msg := asString(detail, "message"); msg != "" {
			apiErr.Message = msg
		}
		apiErr.ValidationErrors = append(apiErr.ValidationErrors, asStringList(detail["errors"])...)
	case []any:
		apiErr.ValidationErrors = append(apiErr.ValidationErrors, asStringList(detail)...)
	}
	apiErr.ValidationErrors = append(apiErr.ValidationErrors, asStringList(payload["errors"])...)
	return apiErr
}
