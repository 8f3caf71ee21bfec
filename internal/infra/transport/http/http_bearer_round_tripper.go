package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	context_ "github.com/mkrupp/storefront/internal/infra/context"
	"github.com/mkrupp/storefront/internal/infra/logging"
)

// CredentialStore is the read side of the durable key/value storage.
type CredentialStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// BearerRoundTripper attaches the stored credential to every outgoing
// request as "Authorization: Bearer <token>" and propagates the trace ID.
// A 401 answer to a request that carried a credential calls OnUnauthorized
// with that credential, which may since have been replaced.
type BearerRoundTripper struct {
	Next           http.RoundTripper
	Store          CredentialStore
	TokenKey       string
	OnUnauthorized func(ctx context.Context, credential string)
	Log            logging.Logger
}

var _ http.RoundTripper = (*BearerRoundTripper)(nil)

// NewBearerRoundTripper wraps next, which defaults to http.DefaultTransport.
func NewBearerRoundTripper(
	next http.RoundTripper,
	store CredentialStore,
	tokenKey string,
	onUnauthorized func(ctx context.Context, credential string),
) *BearerRoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return &BearerRoundTripper{
		Next:           next,
		Store:          store,
		TokenKey:       tokenKey,
		OnUnauthorized: onUnauthorized,
		Log:            logging.GetLogger("infra.transport.http.bearer"),
	}
}

// NewBearerClient returns an http.Client whose transport is a BearerRoundTripper.
func NewBearerClient(store CredentialStore, tokenKey string, onUnauthorized func(ctx context.Context, credential string)) *http.Client {
	//nolint:exhaustruct
	return &http.Client{
		Transport: NewBearerRoundTripper(nil, store, tokenKey, onUnauthorized),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *BearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, ok, err := t.Store.Get(ctx, t.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	credential := strings.TrimSpace(string(token))
	authorized := ok && credential != ""

	req = req.Clone(ctx)

	if authorized {
		req.Header.Set("Authorization", authorizationValue(credential))
	}

	if traceID, ok := context_.TraceIDFromContext(ctx); ok && req.Header.Get(TraceIDHeader) == "" {
		req.Header.Set(TraceIDHeader, traceID)
	}

	resp, err := t.Next.RoundTrip(req)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if resp.StatusCode == http.StatusUnauthorized && authorized && t.OnUnauthorized != nil {
		t.Log.WarnContext(ctx, "credential rejected", "uri", req.URL.String())
		t.OnUnauthorized(ctx, credential)
	}

	return resp, nil
}

// authorizationValue keeps credentials that already carry a scheme.
func authorizationValue(credential string) string {
	if strings.Contains(credential, " ") {
		return credential
	}

	return "Bearer " + credential
}
