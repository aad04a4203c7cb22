package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/sashabaranov/go-openai"
)

const maxErrorBodySize = 64 * 1024

// headerTransport pins the upstream header set on every request. go-openai
// always sets Authorization, so dropAuthorization removes it when no key is
// configured.
type headerTransport struct {
	base              http.RoundTripper
	headers           map[string]string
	dropAuthorization bool
}

func newHTTPClient(timeout time.Duration, headers map[string]string, dropAuthorization bool) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base:              http.DefaultTransport,
			headers:           headers,
			dropAuthorization: dropAuthorization,
		},
	}
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}
	if t.dropAuthorization {
		req.Header.Del("Authorization")
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if dst, ok := req.Context().Value(errorBodyKey{}).(*[]byte); ok {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
			resp.Body.Close()
			*dst = body
			resp.Body = io.NopCloser(bytes.NewReader(body))
		}
	}
	return resp, nil
}

type errorBodyKey struct{}

// withErrorBody makes headerTransport copy the body of a failed response into
// the returned slice, since go-openai drops bodies it cannot parse.
func withErrorBody(ctx context.Context) (context.Context, *[]byte) {
	body := new([]byte)
	return context.WithValue(ctx, errorBodyKey{}, body), body
}

// upstreamStatus reports the HTTP status carried by a go-openai error.
func upstreamStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classifyTransportError converts a failed round trip into a ProviderError,
// or returns nil when err is not a transport-level failure.
func classifyTransportError(provider model.Provider, serverName string, err error) *model.ProviderError {
	if _, ok := upstreamStatus(err); ok {
		return nil
	}
	switch {
	case isTimeout(err):
		return &model.ProviderError{
			Provider: provider,
			Kind:     model.ProviderErrorTimeout,
			Message:  "Request timeout - the AI model took too long to respond",
			Err:      err,
		}
	case isConnectionError(err):
		return &model.ProviderError{
			Provider: provider,
			Kind:     model.ProviderErrorConnection,
			Message:  fmt.Sprintf("Connection error - cannot reach %s server", serverName),
			Err:      err,
		}
	}
	return nil
}

func protocolError(provider model.Provider, message string, err error) *model.ProviderError {
	return &model.ProviderError{
		Provider: provider,
		Kind:     model.ProviderErrorProtocol,
		Message:  message,
		Err:      err,
	}
}
