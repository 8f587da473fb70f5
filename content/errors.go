package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the admin API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// newAPIError builds an APIError from a response body, preferring the
// server's "detail" or "message" field
func newAPIError(status int, body []byte) *APIError {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message"} {
			var msg string
			if raw, ok := payload[key]; ok && json.Unmarshal(raw, &msg) == nil && strings.TrimSpace(msg) != "" {
				return &APIError{StatusCode: status, Message: msg}
			}
		}
	}
	return &APIError{
		StatusCode: status,
		Message:    fmt.Sprintf("Request failed with status code %d", status),
	}
}
