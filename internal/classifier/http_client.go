package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxErrorBody = 512

// HTTPClient calls the classification service over HTTP with a JSON body.
type HTTPClient struct {
	url    string
	httpc  *http.Client
	logger *zap.Logger
}

// NewHTTPClient returns a client for the service at url. A nil httpc uses a
// client without its own timeout; deadlines come from the request context.
func NewHTTPClient(url string, httpc *http.Client, logger *zap.Logger) *HTTPClient {
	if httpc == nil {
		httpc = &http.Client{}
	}
	return &HTTPClient{url: url, httpc: httpc, logger: logger.Named("classifier")}
}

// URL returns the endpoint the client posts to.
func (c *HTTPClient) URL() string { return c.url }

// Classify posts req and returns the upstream body verbatim on a 2xx answer.
func (c *HTTPClient) Classify(ctx context.Context, req Request) (json.RawMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode classification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build classification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		c.logger.Debug("classification service rejected request",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrMalformedResponse)
	}
	return json.RawMessage(body), nil
}

func transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
}
