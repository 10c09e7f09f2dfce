package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/resilience"
)

const maxErrorBody = 2048

type call struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	length      int64
	operation   string
	upload      bool
}

// send executes one request. Non-2xx responses are closed and returned as *HTTPStatusError.
func (c *Client) send(ctx context.Context, in call) (*http.Response, error) {
	target := c.baseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, in.method, target, in.body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", in.operation, err)
	}
	if in.contentType != "" {
		req.Header.Set("Content-Type", in.contentType)
	}
	if in.length > 0 {
		req.ContentLength = in.length
	}
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve auth token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	client := c.httpClient
	if in.upload {
		client = c.uploadClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s request: %w", in.operation, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, newStatusError(in.operation, resp)
	}
	return resp, nil
}

// getJSON is retried through the resilience executor; GETs are idempotent.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any, operation string) error {
	err := c.executor.Execute(ctx, "backend."+operation, func(ctx context.Context) error {
		resp, err := c.send(ctx, call{method: http.MethodGet, path: path, query: query, operation: operation})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return decodeJSON(resp.Body, out, operation)
	}, classifyBackendError)
	return mapBackendError(operation, err)
}

// sendJSON issues a single non-idempotent request without retries.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	resp, err := c.send(ctx, call{method: method, path: path, body: body, contentType: contentType, operation: operation})
	if err != nil {
		return mapBackendError(operation, err)
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeJSON(resp.Body, out, operation)
}

func (c *Client) getBytes(ctx context.Context, path, operation string) ([]byte, error) {
	data, err := resilience.Call(ctx, c.executor, "backend."+operation, func(ctx context.Context) ([]byte, error) {
		resp, err := c.send(ctx, call{method: http.MethodGet, path: path, operation: operation})
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", operation, err)
		}
		return data, nil
	}, classifyBackendError)
	if err != nil {
		return nil, mapBackendError(operation, err)
	}
	return data, nil
}

func decodeJSON(r io.Reader, out any, operation string) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// newStatusError prefers the FastAPI "detail" field over the raw body.
func newStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := strings.TrimSpace(string(body))

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Detail) > 0 {
		var text string
		if json.Unmarshal(payload.Detail, &text) == nil {
			detail = text
		} else {
			detail = string(payload.Detail)
		}
	}
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Detail:     detail,
	}
}

// pathParam escapes a path segment with OpenAPI simple style.
func pathParam(name string, value string) (string, error) {
	out, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
	if err != nil {
		return "", fmt.Errorf("encode path param %s: %w", name, err)
	}
	return out, nil
}
