package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mkrupp/storefront/internal/domain"
	context_ "github.com/mkrupp/storefront/internal/infra/context"
	"github.com/mkrupp/storefront/internal/infra/logging"
	. "github.com/mkrupp/storefront/internal/infra/transport/http"
	"github.com/mkrupp/storefront/internal/repo/kv"
)

type staticSession struct {
	identity *domain.Identity
}

func (s staticSession) Identity() (domain.Identity, bool) {
	if s.identity == nil {
		return domain.Identity{}, false
	}

	return *s.identity, true
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	admin := &domain.Identity{DisplayName: "A", Email: "admin@gamezone.cl", Role: domain.RoleAdmin}
	customer := &domain.Identity{DisplayName: "C", Email: "c@gamezone.cl", Role: domain.RoleCustomer}

	tests := []struct {
		name       string
		identity   *domain.Identity
		roles      []domain.Role
		wantStatus int
	}{
		{name: "anonymous", identity: nil, wantStatus: http.StatusUnauthorized},
		{name: "any logged in", identity: customer, wantStatus: http.StatusOK},
		{name: "allowed role", identity: admin, roles: []domain.Role{domain.RoleAdmin, domain.RoleStaff}, wantStatus: http.StatusOK},
		{name: "forbidden role", identity: customer, roles: []domain.Role{domain.RoleAdmin, domain.RoleStaff}, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				email, ok := context_.UserEmailFromContext(r.Context())
				if !ok || email != tt.identity.Email {
					t.Errorf("user email = %q, %v", email, ok)
				}

				w.WriteHeader(http.StatusOK)
			})

			handler := RequireRole(next, staticSession{identity: tt.identity}, logging.NewNopLogger(), tt.roles...)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	var seen string

	handler := TracingMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = context_.TraceIDFromContext(r.Context())
	}))

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceIDHeader, "abc")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if seen != "abc" || rec.Header().Get(TraceIDHeader) != "abc" {
			t.Errorf("trace id = %q, header = %q", seen, rec.Header().Get(TraceIDHeader))
		}
	})

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if seen == "" || seen != rec.Header().Get(TraceIDHeader) {
			t.Errorf("trace id = %q, header = %q", seen, rec.Header().Get(TraceIDHeader))
		}
	})
}

func TestRescueingMiddleware(t *testing.T) {
	t.Parallel()

	handler := RescueingMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestBearerRoundTripper(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		token           string
		status          int
		wantAuth        string
		wantInvalidated bool
	}{
		{name: "no token", status: http.StatusOK, wantAuth: ""},
		{name: "bearer token", token: "tok", status: http.StatusOK, wantAuth: "Bearer tok"},
		{name: "scheme kept", token: "Basic YTpi", status: http.StatusOK, wantAuth: "Basic YTpi"},
		{name: "rejected token", token: "tok", status: http.StatusUnauthorized, wantAuth: "Bearer tok", wantInvalidated: true},
		{name: "anonymous 401", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != tt.wantAuth {
					t.Errorf("Authorization = %q, want %q", got, tt.wantAuth)
				}

				if got := r.Header.Get(TraceIDHeader); got != "trace-1" {
					t.Errorf("trace header = %q", got)
				}

				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			store := kv.NewMemoryKVRepository()
			if tt.token != "" {
				_ = store.Set(context.Background(), "auth_token", []byte(tt.token))
			}

			var (
				invalidated atomic.Bool
				rejected    atomic.Value
			)

			client := &http.Client{
				Transport: NewBearerRoundTripper(server.Client().Transport, store, "auth_token", func(_ context.Context, credential string) {
					invalidated.Store(true)
					rejected.Store(credential)
				}),
			}

			ctx := context_.WithTraceID(context.Background(), "trace-1")

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/ordenes", nil)
			if err != nil {
				t.Fatal(err)
			}

			resp, err := client.Do(req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			_ = resp.Body.Close()

			if invalidated.Load() != tt.wantInvalidated {
				t.Errorf("invalidated = %v, want %v", invalidated.Load(), tt.wantInvalidated)
			}

			if tt.wantInvalidated && rejected.Load() != tt.token {
				t.Errorf("rejected credential = %v, want %q", rejected.Load(), tt.token)
			}
		})
	}
}
