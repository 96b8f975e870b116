package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Detail is one entry of the backend error envelope.
type Detail struct {
	Code        string `json:"code"`
	MessageCode string `json:"messageCode"`
	Source      string `json:"source,omitempty"`
}

// ErrorResponse is the standard error envelope returned by the Seller Center
// backend and surfaced by the request dispatcher.
type ErrorResponse struct {
	Errors     []Detail `json:"errors"`
	Status     string   `json:"status"`
	Timestamp  string   `json:"timestamp,omitempty"`
	TraceID    string   `json:"traceId,omitempty"`
	Version    string   `json:"version,omitempty"`
	HTTPStatus int      `json:"-"`
}

func (e *ErrorResponse) Error() string {
	if e == nil {
		return ""
	}

	codes := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		codes = append(codes, d.Code)
	}

	if len(codes) == 0 {
		return fmt.Sprintf("request failed with status %s", e.Status)
	}

	return fmt.Sprintf("request failed with status %s: %s", e.Status, strings.Join(codes, ", "))
}

// HasCode reports whether any entry of the envelope carries code.
func (e *ErrorResponse) HasCode(code string) bool {
	if e == nil {
		return false
	}
	for _, d := range e.Errors {
		if d.Code == code {
			return true
		}
	}
	return false
}

// FirstCode returns the code of the first entry, or "".
func (e *ErrorResponse) FirstCode() string {
	if e == nil || len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Code
}

func New(code string, messageCode string, source string, status int) *ErrorResponse {
	return &ErrorResponse{
		Errors:     []Detail{{Code: code, MessageCode: messageCode, Source: source}},
		Status:     statusText(status),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		HTTPStatus: status,
	}
}

// FromStatus synthesises an envelope for a response that did not carry one.
func FromStatus(status int) *ErrorResponse {
	code := "HTTP_" + strconv.Itoa(status)
	messageCode := strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	if messageCode == "" {
		messageCode = "REQUEST_ERROR"
	}
	return New(code, messageCode, "", status)
}

// Parse decodes body as an envelope. Bodies that are empty or do not look like
// an envelope yield a synthesised one keyed by status.
func Parse(body []byte, status int) *ErrorResponse {
	if len(strings.TrimSpace(string(body))) == 0 {
		return FromStatus(status)
	}

	var parsed ErrorResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Errors) == 0 {
		return FromStatus(status)
	}

	if parsed.Status == "" {
		parsed.Status = statusText(status)
	}
	parsed.HTTPStatus = status
	return &parsed
}

func statusText(status int) string {
	if status == 0 {
		return "0"
	}
	return strconv.Itoa(status)
}
