package db

import "time"

// DecodeEvent represents a row in the decode_events table.
type DecodeEvent struct {
	ID            string    `json:"id"`
	RequestedType string    `json:"requested_type"`
	ResolvedType  string    `json:"resolved_type"`
	Success       bool      `json:"success"`
	ErrorCode     *string   `json:"error_code,omitempty"`
	InputLength   int       `json:"input_length"`
	DurationMs    int64     `json:"duration_ms"`
	Source        string    `json:"source"`
	OccurredAt    time.Time `json:"occurred_at"`
	Created       time.Time `json:"created"`
}

// TypeStats aggregates decode events of one resolved type.
type TypeStats struct {
	ResolvedType  string  `json:"resolvedType"`
	Total         int64   `json:"total"`
	Succeeded     int64   `json:"succeeded"`
	Failed        int64   `json:"failed"`
	AvgDurationMs float64 `json:"avgDurationMs"`
}
