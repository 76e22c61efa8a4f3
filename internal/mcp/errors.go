package mcp

import "fmt"

const fragmentLimit = 200

// TransportError covers failures reaching the remote endpoint: connection
// refused, timeouts, and non-2xx HTTP responses.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError means the remote procedure executed but reported an error
// of its own in the response envelope.
type ApplicationError struct {
	Endpoint string
	Tool     string
	Message  string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("tool %s at %s reported error: %s", e.Tool, e.Endpoint, e.Message)
}

// ParseError means a response arrived but its payload could not be decoded
// into the expected structure. Fragment holds a truncated sample of the
// unparseable text for diagnostics.
type ParseError struct {
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable tool response %q: %v", e.Fragment, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func truncateFragment(s string) string {
	if len(s) <= fragmentLimit {
		return s
	}
	return s[:fragmentLimit] + "..."
}
