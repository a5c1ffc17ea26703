package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// call is an immutable snapshot of one logical request. Every dispatch builds
// a fresh *http.Request from it, so the caller's request is never mutated and
// a replay cannot alias the first attempt.
type call struct {
	ctx       context.Context
	original  *http.Request
	body      []byte
	requestID string
}

func newCall(req *http.Request) (*call, error) {
	ret := &call{ctx: req.Context(), original: req, requestID: req.Header.Get(requestIDHeader)}
	if ret.requestID == "" {
		ret.requestID = uuid.NewString()
	}
	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to buffer request body: %w", err)
		}
		ret.body = data
	}
	return ret, nil
}

func (c *call) request(ctx context.Context, accessToken string) *http.Request {
	req := c.original.Clone(ctx)
	req.Header.Set(requestIDHeader, c.requestID)
	if c.body != nil {
		body := c.body
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		req.ContentLength = int64(len(body))
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req
}

// cancelBody releases the per-dispatch timeout once the caller is done with
// the response body.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// buffer reads resp fully so it can be handed back to the caller after the
// connection was released.
func buffer(resp *http.Response) (*http.Response, error) {
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read unauthorized response: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	resp.ContentLength = int64(len(data))
	return resp, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
