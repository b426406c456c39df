package base

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"

	"github.com/retailstream/harvester/pkg/errors"
	"github.com/retailstream/harvester/pkg/json"
)

// maxBodyBytes bounds a single API response read. Catalog pages are a few
// hundred KB at most; anything larger is a malformed response.
const maxBodyBytes = 16 << 20

// GetJSON performs a GET and decodes the JSON response into out, classifying
// failures into the engine's error taxonomy.
func (bc *BaseConnector) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	resp, err := bc.httpClient.Get(ctx, url, headers)
	if err != nil {
		return classifyTransportError(err)
	}
	return decodeResponse(resp, out)
}

// PostJSON performs a POST with a JSON body and decodes the JSON response
// into out.
func (bc *BaseConnector) PostJSON(ctx context.Context, url string, headers map[string]string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "encode request body")
		}
		reader = bytes.NewReader(data)
	}

	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = "application/json; charset=UTF-8"
	}

	resp, err := bc.httpClient.Post(ctx, url, reader, headers)
	if err != nil {
		return classifyTransportError(err)
	}
	return decodeResponse(resp, out)
}

// decodeResponse maps the status code into the error taxonomy and decodes
// the body on success.
func decodeResponse(resp *http.Response, out interface{}) error {
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.ErrorTypeAuthentication, "request rejected").
			WithDetail("status", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.New(errors.ErrorTypeRateLimit, "request throttled").
			WithDetail("status", resp.StatusCode)
	case resp.StatusCode >= 500:
		return errors.New(errors.ErrorTypeTransient, "server error").
			WithDetail("status", resp.StatusCode)
	case resp.StatusCode >= 400:
		return errors.New(errors.ErrorTypeMalformedResponse, "unexpected client error").
			WithDetail("status", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "read response body")
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeMalformedResponse, "decode response body")
	}
	return nil
}

// classifyTransportError maps client-side failures (dial, timeout, breaker)
// into the taxonomy. Transport failures are transient; caller cancellation
// is not.
func classifyTransportError(err error) error {
	switch {
	case stderrors.Is(err, context.Canceled):
		return errors.Wrap(err, errors.ErrorTypeInternal, "request cancelled")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrorTypeTimeout, "request timed out")
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "request timed out")
	}

	return errors.Wrap(err, errors.ErrorTypeConnection, "request failed")
}
