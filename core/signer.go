package core

import (
	"context"
	"strings"
)

// BearerSigner sets "<Scheme> <credential>" on the configured header.
type BearerSigner struct {
	HeaderName string
	Scheme     string
}

func NewBearerSigner(headerName string, scheme string) BearerSigner {
	return BearerSigner{HeaderName: headerName, Scheme: scheme}
}

func (s BearerSigner) Sign(_ context.Context, req Request, credential Credential) (Request, error) {
	signed := req.Clone()
	token := strings.TrimSpace(credential.String())
	if token == "" {
		return signed, nil
	}
	header := strings.TrimSpace(s.HeaderName)
	if header == "" {
		header = DefaultAuthHeader
	}
	value := token
	if scheme := strings.TrimSpace(s.Scheme); scheme != "" {
		value = scheme + " " + token
	}
	signed.Headers[header] = value
	return signed, nil
}

type SignerFunc func(ctx context.Context, req Request, credential Credential) (Request, error)

func (f SignerFunc) Sign(ctx context.Context, req Request, credential Credential) (Request, error) {
	return f(ctx, req, credential)
}
