package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/homedcloud/homed-cloud/internal/auth"
	"github.com/homedcloud/homed-cloud/internal/device"
	"github.com/homedcloud/homed-cloud/internal/fulfillment"
	"github.com/homedcloud/homed-cloud/internal/infrastructure/config"
	"github.com/homedcloud/homed-cloud/internal/infrastructure/logging"
)

const testJWTSecret = "api-test-secret-32-characters-long!!"

// stubUsers resolves every id to a user, mimicking a linked account.
type stubUsers struct{}

func (stubUsers) Create(context.Context, *auth.User) error { return nil }

func (stubUsers) GetByID(_ context.Context, id string) (*auth.User, error) {
	return &auth.User{ID: id, Name: "Test"}, nil
}

func (stubUsers) List(context.Context) ([]auth.User, error) { return nil, nil }
func (stubUsers) Delete(context.Context, string) error      { return nil }
func (stubUsers) Count(context.Context) (int, error)        { return 0, nil }

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	repo := device.NewRepository(nil)
	router := fulfillment.NewRouter(repo, stubUsers{}, nil, 10*time.Millisecond, nil)
	t.Cleanup(router.Close)

	s, err := New(Deps{
		Security: config.SecurityConfig{JWT: config.JWTConfig{Secret: testJWTSecret}},
		Logger:   logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test"),
		Users:    stubUsers{},
		Router:   router,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, s.buildRouter()
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()

	token, err := auth.GenerateAccessToken(&auth.User{ID: userID}, testJWTSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return "Bearer " + token
}

func TestHealth(t *testing.T) {
	_, handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s, want status ok", rec.Body.String())
	}
}

func TestFulfillmentRequiresToken(t *testing.T) {
	_, handler := newTestServer(t)

	tests := map[string]string{
		"no header":   "",
		"not bearer":  "Basic abc",
		"bad token":   "Bearer not.a.jwt",
		"wrong parts": "Bearer",
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/fulfillment",
				strings.NewReader(`{"requestId":"r","inputs":[{"intent":"action.devices.SYNC"}]}`))
			if header != "" {
				req.Header.Set("Authorization", header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestFulfillmentSync(t *testing.T) {
	_, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/fulfillment",
		strings.NewReader(`{"requestId":"req-9","inputs":[{"intent":"action.devices.SYNC"}]}`))
	req.Header.Set("Authorization", bearerToken(t, "u-1"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"agentUserId":"u-1"`) {
		t.Errorf("body = %s, want agentUserId u-1", body)
	}
	if !strings.Contains(body, `"requestId":"req-9"`) {
		t.Errorf("body = %s, want requestId echoed", body)
	}
}

func TestFulfillmentInvalidRequest(t *testing.T) {
	_, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/fulfillment",
		strings.NewReader(`{"requestId":"r","inputs":[]}`))
	req.Header.Set("Authorization", bearerToken(t, "u-1"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	_, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-me")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "trace-me" {
		t.Errorf("X-Request-ID = %q, want trace-me", got)
	}
}
