package retryq

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPAttempter republishes a PendingRequest verbatim over HTTP. Responses
// in the 2xx range resolve the request; anything else counts as a failed
// attempt.
type HTTPAttempter struct {
	Client *http.Client
}

func NewHTTPAttempter(client *http.Client) *HTTPAttempter {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAttempter{Client: client}
}

func (a *HTTPAttempter) Attempt(ctx context.Context, req PendingRequest) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.Target, bytes.NewReader(req.Body))
	if err != nil {
		return err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delivery rejected: %s", resp.Status)
	}
	return nil
}
