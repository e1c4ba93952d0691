// Package events defines decode events and the publishers that deliver them.
package events

import (
	"time"
	"unicode/utf8"

	"github.com/morezero/text-decoder/pkg/decoder"
)

// Sources of a decode.
const (
	SourceComms = "comms"
	SourceHTTP  = "http"
	SourcePopup = "popup"
	SourceCLI   = "cli"
)

// ErrorCodeInternal marks a decode that failed without a result.
const ErrorCodeInternal = "INTERNAL"

// DecodeCompletedEvent is emitted after every decode. It never carries the
// input or the decoded text.
type DecodeCompletedEvent struct {
	RequestedType string `json:"requestedType"`
	ResolvedType  string `json:"resolvedType"`
	Success       bool   `json:"success"`
	ErrorCode     string `json:"errorCode,omitempty"`
	InputLength   int    `json:"inputLength"`
	DurationMs    int64  `json:"durationMs"`
	Timestamp     string `json:"timestamp"`
	Source        string `json:"source"`
}

// NewDecodeCompletedEvent summarizes one decode. res may be nil when the
// decode failed unexpectedly.
func NewDecodeCompletedEvent(source string, requested decoder.Type, input string, res *decoder.Result, elapsed time.Duration) *DecodeCompletedEvent {
	if requested == "" {
		requested = decoder.TypeAuto
	}
	ev := &DecodeCompletedEvent{
		RequestedType: string(requested),
		ResolvedType:  string(requested),
		InputLength:   utf8.RuneCountInString(input),
		DurationMs:    elapsed.Milliseconds(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Source:        source,
		ErrorCode:     ErrorCodeInternal,
	}
	if res != nil {
		ev.ResolvedType = string(res.Type)
		ev.Success = res.Success
		ev.ErrorCode = res.ErrorCode()
	}
	return ev
}
