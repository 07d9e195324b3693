package transport

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-reauth/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category, code))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category, code))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category, code int) string {
	switch code {
	case core.StatusClientClosedRequest:
		return core.ReauthErrorCanceled
	case http.StatusGatewayTimeout:
		return core.ReauthErrorTimeout
	}
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ReauthErrorBadInput
	case goerrors.CategoryAuth:
		return core.ReauthErrorUnauthorized
	case goerrors.CategoryAuthz:
		return core.ReauthErrorForbidden
	case goerrors.CategoryRateLimit:
		return core.ReauthErrorRateLimited
	case goerrors.CategoryExternal:
		return core.ReauthErrorExternalFailure
	default:
		return core.ReauthErrorInternal
	}
}
