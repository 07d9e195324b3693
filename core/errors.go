package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ReauthErrorBadInput        = "REAUTH_BAD_INPUT"
	ReauthErrorUnauthorized    = "REAUTH_UNAUTHORIZED"
	ReauthErrorForbidden       = "REAUTH_FORBIDDEN"
	ReauthErrorNotFound        = "REAUTH_NOT_FOUND"
	ReauthErrorRateLimited     = "REAUTH_RATE_LIMITED"
	ReauthErrorRenewalFailed   = "REAUTH_RENEWAL_FAILED"
	ReauthErrorSessionEnded    = "REAUTH_SESSION_ENDED"
	ReauthErrorExternalFailure = "REAUTH_EXTERNAL_FAILURE"
	ReauthErrorTimeout         = "REAUTH_TIMEOUT"
	ReauthErrorCanceled        = "REAUTH_CANCELED"
	ReauthErrorInternal        = "REAUTH_INTERNAL_ERROR"
)

// StatusClientClosedRequest is reported when the caller canceled the request.
const StatusClientClosedRequest = 499

var ErrNoCredential = errors.New("core: no session credential")

type NormalizedErrorData struct {
	Msg string `json:"msg"`
}

// NormalizedError is the single error shape returned to callers of Client.
type NormalizedError struct {
	Status   int                 `json:"status"`
	Data     NormalizedErrorData `json:"data"`
	TextCode string              `json:"-"`
	cause    error
}

func (e *NormalizedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("reauth: %d %s", e.Status, e.Data.Msg)
}

func (e *NormalizedError) Message() string {
	if e == nil {
		return ""
	}
	return e.Data.Msg
}

func (e *NormalizedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// ServiceError converts the normalized error into a go-errors envelope.
func (e *NormalizedError) ServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	category := categoryForStatus(e.Status)
	textCode := e.TextCode
	if strings.TrimSpace(textCode) == "" {
		textCode = textCodeForStatus(e.Status)
	}
	var rich *goerrors.Error
	if e.cause != nil {
		rich = goerrors.Wrap(e.cause, category, e.Data.Msg)
	} else {
		rich = goerrors.New(e.Data.Msg, category)
	}
	return rich.WithCode(e.Status).WithTextCode(textCode)
}

func AsNormalizedError(err error) (*NormalizedError, bool) {
	var normalized *NormalizedError
	if errors.As(err, &normalized) && normalized != nil {
		return normalized, true
	}
	return nil, false
}

// NormalizeError maps any transport-level error into a NormalizedError.
// Only remote response bodies contribute a message; every other shape gets
// the fallback. It never panics and unknown shapes produce a 500.
func NormalizeError(err error, fallback string) (normalized *NormalizedError) {
	if err == nil {
		return nil
	}
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = DefaultErrorMessage
	}
	defer func() {
		if recover() != nil {
			normalized = newNormalizedError(http.StatusInternalServerError, fallback, ReauthErrorInternal, err)
		}
	}()

	if existing, ok := AsNormalizedError(err); ok {
		return existing
	}

	var responseErr *ResponseError
	if errors.As(err, &responseErr) && responseErr != nil {
		status := responseErr.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		message := messageFromBody(responseErr.Body)
		if message == "" {
			message = fallback
		}
		return newNormalizedError(status, message, textCodeForStatus(status), err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newNormalizedError(http.StatusGatewayTimeout, fallback, ReauthErrorTimeout, err)
	case errors.Is(err, context.Canceled):
		return newNormalizedError(StatusClientClosedRequest, fallback, ReauthErrorCanceled, err)
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		status := rich.Code
		if status == 0 {
			status = httpStatusForCategory(rich.Category)
		}
		textCode := strings.TrimSpace(rich.TextCode)
		if textCode == "" {
			textCode = textCodeForStatus(status)
		}
		// Envelope messages are written for developers; the cause keeps them.
		return newNormalizedError(status, fallback, textCode, err)
	}

	return newNormalizedError(http.StatusInternalServerError, fallback, ReauthErrorInternal, err)
}

func newNormalizedError(status int, message string, textCode string, cause error) *NormalizedError {
	return &NormalizedError{
		Status:   status,
		Data:     NormalizedErrorData{Msg: message},
		TextCode: textCode,
		cause:    cause,
	}
}

// messageFromBody reads msg, then message, then a string error field.
func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"msg", "message", "error"} {
		if value, ok := payload[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	if data, ok := payload["data"].(map[string]any); ok {
		if value, ok := data["msg"].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func newReauthError(message string, category goerrors.Category, code int, textCode string) *goerrors.Error {
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
}

func wrapReauthError(source error, category goerrors.Category, message string, code int, textCode string) *goerrors.Error {
	if source == nil {
		return newReauthError(message, category, code, textCode)
	}
	return goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
}

func textCodeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return ReauthErrorUnauthorized
	case status == http.StatusForbidden:
		return ReauthErrorForbidden
	case status == http.StatusNotFound:
		return ReauthErrorNotFound
	case status == http.StatusTooManyRequests:
		return ReauthErrorRateLimited
	case status == http.StatusGatewayTimeout:
		return ReauthErrorTimeout
	case status == StatusClientClosedRequest:
		return ReauthErrorCanceled
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		return ReauthErrorExternalFailure
	case status >= 400 && status < 500:
		return ReauthErrorBadInput
	default:
		return ReauthErrorInternal
	}
}

func categoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return goerrors.CategoryExternal
	case status >= 400 && status < 500:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryInternal
	}
}

func httpStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
