package ragapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// RequestIDHeader correlates the /stream and /ask halves of one question
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID attaches a request id that the client sends as X-Request-ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached with WithRequestID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client handles communication with the RAG service
type Client struct {
	baseURL         string
	httpClient      *http.Client
	streamingClient *http.Client
}

// NewClient creates a new RAG service client.
// streamTimeout bounds a whole answer stream; zero disables it.
func NewClient(baseURL string, timeout, streamTimeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		streamingClient: &http.Client{
			Timeout: streamTimeout,
		},
	}
}

// BaseURL returns the service address the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OpenStream posts the question to /stream and returns the answer as it arrives
func (c *Client) OpenStream(ctx context.Context, question string) (*AnswerStream, error) {
	httpReq, err := c.newJSONRequest(ctx, "/stream", QuestionRequest{Question: question})
	if err != nil {
		return nil, err
	}

	resp, err := c.streamingClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Endpoint: "/stream", Code: resp.StatusCode, Body: DescribeBody(body)}
	}

	return NewAnswerStream(resp.Body), nil
}

// Ask posts the question to /ask and returns the structured answer
func (c *Client) Ask(ctx context.Context, question string) (*AskResponse, error) {
	httpReq, err := c.newJSONRequest(ctx, "/ask", QuestionRequest{Question: question})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ask request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Endpoint: "/ask", Code: resp.StatusCode, Body: DescribeBody(body)}
	}

	parsed, err := ParseAskResponse(body)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Upload sends one file as multipart field "file" to /upload.
// The raw body is returned whatever the status code, since failures are
// reported in the body as {"error": ...}.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.setRequestID(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// ListFiles returns the names of all ingested documents
func (c *Client) ListFiles(ctx context.Context) ([]string, error) {
	var result struct {
		Files []string `json:"files"`
		Error string   `json:"error"`
	}
	if err := c.getJSON(ctx, "/files", &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("/files: %s", result.Error)
	}
	if result.Files == nil {
		result.Files = []string{}
	}
	return result.Files, nil
}

// FileDetails returns the chunk count of every ingested document
func (c *Client) FileDetails(ctx context.Context) ([]FileDetail, error) {
	details := []FileDetail{}
	if err := c.getJSON(ctx, "/files/details", &details); err != nil {
		return nil, err
	}
	return details, nil
}

func (c *Client) newJSONRequest(ctx context.Context, path string, payload interface{}) (*http.Request, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setRequestID(ctx, httpReq)
	return httpReq, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	c.setRequestID(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && !json.Valid(body) {
		return &StatusError{Endpoint: path, Code: resp.StatusCode, Body: DescribeBody(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) setRequestID(ctx context.Context, req *http.Request) {
	if id := RequestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
}
