package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"messagely/internal/common/security"
	"messagely/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	metrics.Recorder
	mu       sync.Mutex
	statuses []int
}

func (c *countingRecorder) RecordHTTPRequest(_ string, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, status)
}

func newProtectedRouter(issuer *security.TokenIssuer, logger *slog.Logger, rec metrics.Recorder) http.Handler {
	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(logger, rec))
	r.Use(jwtauth.Verifier(issuer.Auth()))
	r.Group(func(p chi.Router) {
		p.Use(Authenticator)
		p.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
			username, _ := GetUsernameFromContext(r.Context())
			w.Write([]byte(username))
		})
		p.With(EnsureCorrectUser).Get("/users/{username}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func doGet(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAuthenticator(t *testing.T) {
	issuer := security.NewTokenIssuer([]byte("secret"), time.Hour)
	other := security.NewTokenIssuer([]byte("other-secret"), time.Hour)
	h := newProtectedRouter(issuer, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), metrics.Nop())

	good, err := issuer.Issue("alice")
	require.NoError(t, err)
	forged, err := other.Issue("alice")
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"valid token", good, http.StatusOK, "alice"},
		{"missing token", "", http.StatusUnauthorized, ""},
		{"wrong signature", forged, http.StatusUnauthorized, ""},
		{"garbage", "not.a.token", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(h, "/whoami", tt.token)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestEnsureCorrectUser(t *testing.T) {
	issuer := security.NewTokenIssuer([]byte("secret"), time.Hour)
	h := newProtectedRouter(issuer, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), metrics.Nop())
	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, doGet(h, "/users/alice", token).Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(h, "/users/bob", token).Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(h, "/users/alice", "").Code)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := &countingRecorder{Recorder: metrics.Nop()}
	issuer := security.NewTokenIssuer([]byte("secret"), time.Hour)
	h := newProtectedRouter(issuer, logger, rec)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)
	doGet(h, "/whoami", token)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/whoami", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "alice", entry["username"])
	assert.Contains(t, entry, "duration_ms")

	buf.Reset()
	doGet(h, "/whoami", "")
	entry = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.NotContains(t, entry, "username")

	assert.Equal(t, []int{200, 401}, rec.statuses)
}
