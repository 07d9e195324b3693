package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-reauth/core"
	"golang.org/x/time/rate"
)

const KindREST = "rest"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTAdapter executes core requests against BaseURL. Responses outside the
// 2xx range are returned as *core.ResponseError so callers can inspect the
// status and body.
type RESTAdapter struct {
	Client               HTTPDoer
	BaseURL              string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
	// Limiter, when set, paces every request before it is sent.
	Limiter *rate.Limiter
}

func NewRESTAdapter(client HTTPDoer, baseURL string) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: core.DefaultTransportTimeout}
	}
	return &RESTAdapter{
		Client:               client,
		BaseURL:              strings.TrimSpace(baseURL),
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: core.DefaultResponseBodyLimit,
	}
}

func (*RESTAdapter) Kind() string {
	return KindREST
}

func (a *RESTAdapter) Do(ctx context.Context, req core.Request) (core.Response, error) {
	if a == nil || a.Client == nil {
		return core.Response{}, transportError(
			"transport: rest adapter requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindREST},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	parsedURL, err := a.resolveURL(req.Path)
	if err != nil {
		return core.Response{}, err
	}

	query := parsedURL.Query()
	for key, value := range req.Query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		query.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	parsedURL.RawQuery = query.Encode()

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(requestCtx, method, parsedURL.String(), body)
	if err != nil {
		return core.Response{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "method": method, "url": parsedURL.String()},
		)
	}
	for key, value := range a.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	if err := a.wait(requestCtx); err != nil {
		return core.Response{}, executeError(err, method, parsedURL.String())
	}

	startedAt := time.Now().UTC()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.Response{}, executeError(err, method, parsedURL.String())
	}
	defer httpRes.Body.Close()

	maxBodyBytes := resolveResponseBodyLimit(req.MaxResponseBodyBytes, a.MaxResponseBodyBytes)
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.Response{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"adapter": KindREST, "status_code": httpRes.StatusCode},
		)
	}
	if int64(len(payload)) > maxBodyBytes {
		return core.Response{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"adapter":          KindREST,
				"status_code":      httpRes.StatusCode,
				"response_limit_b": maxBodyBytes,
			},
		)
	}

	headers := flattenHeaders(httpRes.Header)
	if httpRes.StatusCode < http.StatusOK || httpRes.StatusCode >= http.StatusMultipleChoices {
		return core.Response{}, &core.ResponseError{
			StatusCode: httpRes.StatusCode,
			Headers:    headers,
			Body:       payload,
		}
	}
	return core.Response{
		StatusCode: httpRes.StatusCode,
		Headers:    headers,
		Body:       payload,
		Metadata: map[string]any{
			"duration_ms": time.Since(startedAt).Milliseconds(),
			"kind":        KindREST,
		},
	}, nil
}

// resolveURL joins path onto BaseURL. Absolute paths with a scheme are used as is.
func (a *RESTAdapter) resolveURL(path string) (*url.URL, error) {
	path = strings.TrimSpace(path)
	target, err := url.Parse(path)
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request path",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "path": path},
		)
	}
	if target.IsAbs() {
		return target, nil
	}
	base := strings.TrimSpace(a.BaseURL)
	if base == "" {
		if path == "" {
			return nil, transportError(
				"transport: request url is required",
				goerrors.CategoryBadInput,
				http.StatusBadRequest,
				map[string]any{"adapter": KindREST},
			)
		}
		return nil, transportError(
			"transport: relative path requires a base url",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "path": path},
		)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid base url",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "base_url": base},
		)
	}
	joined := *baseURL
	joined.Path = strings.TrimRight(baseURL.Path, "/") + "/" + strings.TrimLeft(target.Path, "/")
	joined.RawPath = ""
	query := baseURL.Query()
	for key, values := range target.Query() {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	joined.RawQuery = query.Encode()
	return &joined, nil
}

// wait blocks on the limiter. A wait that cannot finish before the deadline
// is reported as a deadline error.
func (a *RESTAdapter) wait(ctx context.Context) error {
	if a.Limiter == nil {
		return nil
	}
	if err := a.Limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("transport: rate limit: %w: %w", context.DeadlineExceeded, err)
	}
	return nil
}

func executeError(err error, method string, target string) error {
	metadata := map[string]any{"adapter": KindREST, "method": method, "url": target}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return transportWrapError(err, goerrors.CategoryExternal, "transport: request timed out", http.StatusGatewayTimeout, metadata)
	case errors.Is(err, context.Canceled):
		return transportWrapError(err, goerrors.CategoryExternal, "transport: request canceled", core.StatusClientClosedRequest, metadata)
	default:
		return transportWrapError(err, goerrors.CategoryExternal, "transport: execute http request", http.StatusBadGateway, metadata)
	}
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, adapterLimit int64) int64 {
	if requestLimit > 0 {
		return requestLimit
	}
	if adapterLimit > 0 {
		return adapterLimit
	}
	return core.DefaultResponseBodyLimit
}

var _ Adapter = (*RESTAdapter)(nil)
