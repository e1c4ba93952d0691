// Package dispatcher routes incoming COMMS messages to decoder methods.
package dispatcher

import (
	"encoding/json"
	"time"
)

// DecoderRequest is the JSON envelope for incoming COMMS decoder requests.
type DecoderRequest struct {
	ID     string             `json:"id"`
	Type   string             `json:"type"`
	Cap    string             `json:"cap,omitempty"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params"`
	Ver    string             `json:"ver,omitempty"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// DecoderResponse is the JSON envelope for COMMS decoder responses.
type DecoderResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	UserID        string `json:"userId,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	Env           string `json:"env,omitempty"`
	Source        string `json:"source,omitempty"`
	DeadlineMs    int    `json:"deadlineMs,omitempty"`
	TimeoutMs     int    `json:"timeoutMs,omitempty"`
}

// Timeout returns the time budget of the request: max, shortened by the
// client's deadlineMs (or timeoutMs) when that is smaller.
func (r *DecoderRequest) Timeout(max time.Duration) time.Duration {
	if r.Ctx == nil {
		return max
	}
	ms := r.Ctx.DeadlineMs
	if ms <= 0 {
		ms = r.Ctx.TimeoutMs
	}
	if ms > 0 && time.Duration(ms)*time.Millisecond < max {
		return time.Duration(ms) * time.Millisecond
	}
	return max
}

// Error codes of the response envelope.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeInvalidArgument       = "INVALID_ARGUMENT"
	CodeMethodNotFound        = "METHOD_NOT_FOUND"
	CodeVersionMismatch       = "VERSION_MISMATCH"
	CodeCapabilityUnavailable = "CAPABILITY_UNAVAILABLE"
	CodeDeadlineExceeded      = "DEADLINE_EXCEEDED"
	CodeInternalError         = "INTERNAL_ERROR"
)

// SidePanelInput holds parameters for openSidePanel.
type SidePanelInput struct {
	WindowID *int `json:"windowId"`
}
