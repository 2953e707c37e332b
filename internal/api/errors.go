package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the backend or the article store.
type Error struct {
	Op         string
	StatusCode int
	Status     string
	Detail     string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Status)
	if e.Detail != "" {
		msg += " - " + e.Detail
	}
	return msg
}

// newError builds an Error from a failed response. A JSON body with a
// detail field contributes to the message; unreadable bodies are ignored.
func newError(op string, resp *http.Response) *Error {
	status := http.StatusText(resp.StatusCode)
	if status == "" {
		status = strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
	}
	return &Error{
		Op:         op,
		StatusCode: resp.StatusCode,
		Status:     status,
		Detail:     readDetail(resp.Body),
	}
}

func readDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	if string(payload.Detail) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload.Detail); err != nil {
		return string(payload.Detail)
	}
	return compact.String()
}
