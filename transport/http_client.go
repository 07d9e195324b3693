package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/goliatone/go-reauth/core"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/publicsuffix"
)

const KindRetryingREST = "retrying_rest"

// NewHTTPClient builds the client used by the REST adapter. Unless disabled,
// it carries a cookie jar so session cookies set by the login and refresh
// endpoints are replayed on later calls.
func NewHTTPClient(cfg core.TransportConfig) (*http.Client, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if client.Timeout <= 0 {
		client.Timeout = core.DefaultTransportTimeout
	}
	if cfg.DisableCookieJar {
		return client, nil
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("transport: create cookie jar: %w", err)
	}
	client.Jar = jar
	return client, nil
}

// NewRetryingHTTPClient wraps NewHTTPClient with connection-level retries.
// HTTP statuses are never retried here: a 401 must reach the renewal
// coordinator and a failed refresh is terminal for its cycle.
func NewRetryingHTTPClient(cfg core.TransportConfig) (*http.Client, error) {
	base, err := NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	rcClient := retryablehttp.NewClient()
	rcClient.HTTPClient = base
	rcClient.RetryMax = cfg.RetryMax
	rcClient.RetryWaitMin = cfg.RetryWaitMin
	rcClient.RetryWaitMax = cfg.RetryWaitMax
	rcClient.CheckRetry = retryConnectionErrors
	rcClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rcClient.Logger = nil

	// The jar stays on the inner client so cookies are attached once per attempt.
	httpClient := rcClient.StandardClient()
	httpClient.Timeout = base.Timeout
	return httpClient, nil
}

func retryConnectionErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
