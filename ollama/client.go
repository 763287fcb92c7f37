package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"lunatui/config"
)

// ErrorKind categorizes client errors for handling.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConnection
	KindStatus
	KindResponse
)

// ClientError represents a failure talking to the inference server.
type ClientError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// IsConnectionError reports whether err means the server was unreachable.
func IsConnectionError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Kind == KindConnection
	}
	return false
}

// titlePrompt is the fixed instruction appended to the history for the
// one-shot title request during export.
const titlePrompt = "Respond only with a title summarizing this conversation in eight words or less and with no special characters."

// Client talks to an Ollama-compatible chat endpoint. Streamed responses go
// through the tolerant frame decoder in stream.go rather than the SDK client,
// which treats a single malformed line as fatal to the whole stream.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, model string) (*Client, error) {
	if baseURL == "" {
		baseURL = config.DefaultOllamaHost
	}
	if model == "" {
		model = config.DefaultModel
	}

	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) SetModel(model string) {
	c.model = model
}

func (c *Client) GetModel() string {
	return c.model
}

// ChatStream sends the conversation with stream:true and feeds every decoded
// frame to fn in arrival order. It returns when a done frame has been seen,
// the body is exhausted, fn returns an error, or the transport fails.
func (c *Client) ChatStream(ctx context.Context, messages []api.Message, fn FrameFunc) error {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(true),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return &ClientError{Kind: KindResponse, Message: "failed to marshal chat request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Kind: KindConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// No client timeout while streaming; the context bounds the request
	streamClient := &http.Client{}

	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return &ClientError{Kind: KindConnection, Message: "chat request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	reader := NewFrameReader(resp.Body)
	return reader.Process(ctx, fn)
}

// GenerateTitle asks the same endpoint, non-streamed, for a short title
// summarizing the history. The synthetic instruction message is built on a
// copy and never reaches the live conversation.
func (c *Client) GenerateTitle(ctx context.Context, history []api.Message) (string, error) {
	messages := make([]api.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, api.Message{
		Role:    "user",
		Content: titlePrompt,
	})

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(false),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", &ClientError{Kind: KindResponse, Message: "failed to marshal title request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Kind: KindConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &ClientError{Kind: KindConnection, Message: "title request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp)
	}

	var result api.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Kind: KindResponse, Message: "failed to decode title response", Cause: err}
	}

	return strings.TrimSpace(result.Message.Content), nil
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return &ClientError{Kind: KindConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ClientError{Kind: KindConnection, Message: "server not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{Kind: KindStatus, Message: "unexpected status: " + resp.Status}
	}

	return nil
}

func statusError(resp *http.Response) error {
	// The server reports errors as {"error": "..."}
	var serverErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&serverErr); err == nil && serverErr.Error != "" {
		return &ClientError{Kind: KindStatus, Message: serverErr.Error}
	}

	return &ClientError{Kind: KindStatus, Message: "request failed: " + resp.Status}
}
