package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/manifold-ai/manifold/core/aierr"
	"github.com/manifold-ai/manifold/providers/observability"
)

// DefaultTimeout bounds non-streaming HTTP round trips when the caller does
// not supply one. Streaming requests are unbounded by design; liveness is
// enforced per-frame via [InactivityGuard].
const DefaultTimeout = 60 * time.Second

// maxErrorBodySize caps how much of an error response body is read. Enforced
// via io.LimitReader to prevent unbounded memory allocation from rogue
// responses.
const maxErrorBodySize int64 = 1 * 1024 * 1024

// PostJSON performs a synchronous JSON POST and decodes the response body
// into T. It classifies failures into the shared error taxonomy:
//
//   - context cancellation/deadline is propagated as the context error
//   - connection/TLS/DNS failures become *aierr.TransportError
//   - status >= 400 becomes *aierr.HTTPError carrying the parsed error body
//   - malformed response JSON becomes *aierr.DecodeError
//
// headers are set verbatim on the request after Content-Type; callers pass
// their authentication headers here. A zero timeout means [DefaultTimeout].
func PostJSON[T any](ctx context.Context, client *http.Client, providerID, url string, headers map[string]string, body any, timeout time.Duration) (*T, error) {
	respBody, err := doRequest(ctx, client, providerID, "POST", url, headers, body, timeout)
	if err != nil {
		return nil, err
	}

	var parsed T
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &aierr.DecodeError{
			Provider: providerID,
			Message:  fmt.Sprintf("unmarshaling response from %s", aierr.RedactURL(url)),
			Err:      err,
		}
	}
	return &parsed, nil
}

// GetJSON performs a synchronous GET and decodes the response body into T.
// Used by the polling transcription adapters. Error classification matches
// [PostJSON].
func GetJSON[T any](ctx context.Context, client *http.Client, providerID, url string, headers map[string]string, timeout time.Duration) (*T, error) {
	respBody, err := doRequest(ctx, client, providerID, "GET", url, headers, nil, timeout)
	if err != nil {
		return nil, err
	}

	var parsed T
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &aierr.DecodeError{
			Provider: providerID,
			Message:  fmt.Sprintf("unmarshaling response from %s", aierr.RedactURL(url)),
			Err:      err,
		}
	}
	return &parsed, nil
}

// PostForBytes performs a JSON POST and returns the raw response bytes plus
// the advertised Content-Type. Used by speech synthesis, where the response
// is opaque audio rather than JSON.
func PostForBytes(ctx context.Context, client *http.Client, providerID, url string, headers map[string]string, body any, timeout time.Duration) ([]byte, string, error) {
	response, err := send(ctx, client, providerID, "POST", url, headers, body, timeout)
	if err != nil {
		return nil, "", err
	}
	defer CloseWithLog(response.Body)

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, "", &aierr.TransportError{Provider: providerID, Method: "POST", URL: url, Err: err}
	}
	return payload, response.Header.Get("Content-Type"), nil
}

// GetBytes performs a GET and returns the raw response bytes plus the
// advertised Content-Type. Used to download generated assets served from
// short-lived URLs.
func GetBytes(ctx context.Context, client *http.Client, providerID, url string, headers map[string]string, timeout time.Duration) ([]byte, string, error) {
	response, err := sendRaw(ctx, client, providerID, "GET", url, headers, nil, timeout)
	if err != nil {
		return nil, "", err
	}
	defer CloseWithLog(response.Body)

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, "", &aierr.TransportError{Provider: providerID, Method: "GET", URL: url, Err: err}
	}
	return payload, response.Header.Get("Content-Type"), nil
}

// PostMultipart uploads a file plus form fields as multipart/form-data and
// decodes the JSON response into T. Used by transcription endpoints, which
// accept audio uploads this way.
func PostMultipart[T any](ctx context.Context, client *http.Client, providerID, url string, headers map[string]string, fields map[string]string, fileField, fileName string, file []byte, timeout time.Duration) (*T, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("writing multipart field %q: %w", key, err)
		}
	}

	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, fmt.Errorf("creating multipart file field: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return nil, fmt.Errorf("writing multipart file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	merged := map[string]string{"Content-Type": writer.FormDataContentType()}
	for key, value := range headers {
		if key == "Content-Type" {
			continue
		}
		merged[key] = value
	}

	respBody, err := doRaw(ctx, client, providerID, "POST", url, merged, buffer.Bytes(), timeout)
	if err != nil {
		return nil, err
	}

	var parsed T
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &aierr.DecodeError{
			Provider: providerID,
			Message:  fmt.Sprintf("unmarshaling multipart response from %s", aierr.RedactURL(url)),
			Err:      err,
		}
	}
	return &parsed, nil
}

// PostStream performs a JSON POST and returns the response with its body
// left open for frame-by-frame reading. The caller owns the body and must
// close it; error paths drain and close it before returning. No timeout is
// applied: stream lifetime is bounded by the context and, optionally, an
// [InactivityGuard].
func PostStream(ctx context.Context, client *http.Client, providerID, url string, headers map[string]string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "text/event-stream")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent("http.stream_request.prepared",
			observability.String(observability.AttrHTTPMethod, "POST"),
			observability.String(observability.AttrHTTPURL, aierr.RedactURL(url)),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	response, err := httpClient.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &aierr.TransportError{Provider: providerID, Method: "POST", URL: url, Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
		if readErr != nil {
			errorBody = nil
		}
		return nil, httpError(providerID, "POST", url, response.StatusCode, errorBody)
	}

	if span != nil {
		span.AddEvent("http.stream_response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
		)
	}

	return response, nil
}

// doRequest marshals body to JSON (when non-nil) and runs the request,
// returning the raw response bytes on 2xx.
func doRequest(ctx context.Context, client *http.Client, providerID, method, url string, headers map[string]string, body any, timeout time.Duration) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	merged := map[string]string{"Content-Type": "application/json"}
	for key, value := range headers {
		merged[key] = value
	}

	return doRaw(ctx, client, providerID, method, url, merged, payload, timeout)
}

// doRaw is the shared non-streaming request path: apply the timeout, send,
// classify errors, and return the full response body.
func doRaw(ctx context.Context, client *http.Client, providerID, method, url string, headers map[string]string, payload []byte, timeout time.Duration) ([]byte, error) {
	response, err := sendRaw(ctx, client, providerID, method, url, headers, payload, timeout)
	if err != nil {
		return nil, err
	}
	defer CloseWithLog(response.Body)

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &aierr.TransportError{Provider: providerID, Method: method, URL: url, Err: err}
	}
	return respBody, nil
}

// send marshals a JSON body and dispatches, returning the open response on
// 2xx. Shared by PostForBytes, which needs the response headers.
func send(ctx context.Context, client *http.Client, providerID, method, url string, headers map[string]string, body any, timeout time.Duration) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	merged := map[string]string{"Content-Type": "application/json"}
	for key, value := range headers {
		merged[key] = value
	}

	return sendRaw(ctx, client, providerID, method, url, merged, payload, timeout)
}

// sendRaw dispatches a prepared request and classifies transport and HTTP
// failures. On 2xx the response is returned with its body open.
func sendRaw(ctx context.Context, client *http.Client, providerID, method, url string, headers map[string]string, payload []byte, timeout time.Duration) (*http.Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, method),
			observability.String(observability.AttrHTTPURL, aierr.RedactURL(url)),
			observability.Int(observability.AttrHTTPRequestBodySize, len(payload)),
		)
	}

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	requestStart := time.Now()
	response, err := httpClient.Do(request)
	requestDuration := time.Since(requestStart)

	if err != nil {
		cancel()
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		// Cancellation is distinct from transport failure: a caller that
		// cancelled must not see a retryable error.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &aierr.TransportError{Provider: providerID, Method: method, URL: url, Err: err}
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer cancel()
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
		if readErr != nil {
			errorBody = nil
		}
		return nil, httpError(providerID, method, url, response.StatusCode, errorBody)
	}

	// Tie the timeout's cancel to body close so the deadline covers the
	// full read, not just the headers.
	response.Body = &cancelOnClose{ReadCloser: response.Body, cancel: cancel}
	return response, nil
}

// httpError builds an *aierr.HTTPError, attaching the raw body as parsed
// JSON when it is valid JSON and as plain text otherwise.
func httpError(providerID, method, url string, status int, body []byte) *aierr.HTTPError {
	httpErr := &aierr.HTTPError{
		Provider: providerID,
		Method:   method,
		URL:      url,
		Status:   status,
	}
	if json.Valid(body) {
		httpErr.Body = json.RawMessage(body)
	} else {
		httpErr.BodyText = string(body)
	}
	return httpErr
}

// cancelOnClose releases a context cancel function when the response body is
// closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// CloseWithLog closes the given closer, logging failures instead of
// returning them so deferred cleanup never masks the primary error.
func CloseWithLog(closer io.Closer) {
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
