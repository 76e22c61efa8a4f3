// Package mcp is a minimal client for MCP-style tool servers: one JSON-RPC
// "tools/call" request per invocation, JSON-or-error back. It never retries.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcResponse struct {
	Error  json.RawMessage `json:"error,omitempty"`
	Result struct {
		Content []rpcContent `json:"content"`
	} `json:"result"`
}

type rpcContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Invoker performs a single remote tool invocation.
type Invoker interface {
	CallTool(ctx context.Context, endpoint, tool string, arguments map[string]any, timeout time.Duration) (map[string]any, error)
}

type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

// CallTool posts one tools/call request and returns the decoded report map.
// An error field in the envelope is an ApplicationError, a network or HTTP
// failure is a TransportError, and an undecodable payload is a ParseError.
func (c *Client) CallTool(ctx context.Context, endpoint, tool string, arguments map[string]any, timeout time.Duration) (map[string]any, error) {
	if c == nil {
		return nil, fmt.Errorf("mcp client is nil")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if tool == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  rpcParams{Name: tool, Arguments: arguments},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tool request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := c.http.Do(request)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("status %s", resp.Status)}
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &ParseError{Fragment: "response body", Err: err}
	}
	if len(decoded.Error) > 0 && string(decoded.Error) != "null" {
		return nil, &ApplicationError{Endpoint: endpoint, Tool: tool, Message: string(decoded.Error)}
	}
	if len(decoded.Result.Content) == 0 {
		return nil, &ParseError{Fragment: "", Err: fmt.Errorf("empty content in tool response")}
	}

	text := stripWrapping(decoded.Result.Content[0].Text)
	var report map[string]any
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return nil, &ParseError{Fragment: truncateFragment(text), Err: err}
	}
	return report, nil
}

// stripWrapping removes whitespace and an optional markdown code fence around
// the tool's JSON payload. Some model-backed tools fence their output even
// when asked not to.
func stripWrapping(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
