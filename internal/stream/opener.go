package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Opener opens one server-push subscription and returns its body. Closing
// the body or cancelling ctx ends the subscription.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// StatusError is returned by HTTPOpener when the server answers the
// subscription request with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("stream request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("stream request failed with status %d: %s", e.StatusCode, e.Body)
}

// HTTPOpener opens text/event-stream subscriptions over HTTP.
type HTTPOpener struct {
	// Client performs the request. It must not have a Timeout set, since
	// the response body stays open for the life of the subscription.
	// nil uses a client with no timeout.
	Client *http.Client
	// Header is added to every subscription request.
	Header http.Header
}

// Open implements Opener.
func (o *HTTPOpener) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	for k, vs := range o.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := o.Client
	if client == nil {
		client = &http.Client{}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return resp.Body, nil
}
