package race

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxQueryLen bounds the inbound payload, counted in characters, not
	// bytes. Queries at exactly this length are accepted.
	MaxQueryLen = 10000

	// DefaultDialect applies when the client sends none.
	DefaultDialect = "postgresql"

	previewLen = 100
)

// ValidationError marks a malformed inbound request, rejected before any
// agent is launched and before any event is emitted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Request is one validated analysis task. Immutable after NewRequest.
type Request struct {
	Query   string
	Dialect string
}

// NewRequest validates and normalizes the inbound payload: empty or
// whitespace-only queries and queries over MaxQueryLen are rejected, the
// query is trimmed, and the dialect defaults to DefaultDialect.
func NewRequest(query, dialect string) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, &ValidationError{Reason: "query cannot be empty"}
	}
	if utf8.RuneCountInString(query) > MaxQueryLen {
		return Request{}, &ValidationError{Reason: fmt.Sprintf("query too long (max %d chars)", MaxQueryLen)}
	}
	if strings.TrimSpace(dialect) == "" {
		dialect = DefaultDialect
	}
	return Request{Query: strings.TrimSpace(query), Dialect: dialect}, nil
}

// Preview returns the truncated query preview carried by race_start.
// Truncation counts characters, never splitting a multibyte rune.
func (r Request) Preview() string {
	if utf8.RuneCountInString(r.Query) <= previewLen {
		return r.Query
	}
	return string([]rune(r.Query)[:previewLen]) + "..."
}
