package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/noteful/apiserver/config"
	"github.com/noteful/apiserver/internal/auth"
	"github.com/noteful/apiserver/internal/events"
	"github.com/noteful/apiserver/internal/metrics"
	"github.com/noteful/apiserver/internal/store/memstore"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	ms := memstore.New()
	tokens, err := auth.NewTokenManager(config.AuthConfig{JWTSecret: "server-secret", JWTExpiry: time.Hour})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Dependencies{
		Users:   ms.Users(),
		Tags:    ms.Tags(),
		Notes:   ms.Notes(),
		Health:  okPinger{},
		Hasher:  auth.NewHasher(bcrypt.MinCost),
		Tokens:  tokens,
		Events:  events.Nop{},
		Metrics: metrics.New(),
		Log:     logger,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRouter_RegisterLoginAndTag(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/api/users", "", `{"username":"demo","password":"password123","fullname":"Demo"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post(t, srv.URL+"/api/login", "", `{"username":"demo","password":"password123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		AuthToken string `json:"authToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))

	resp = post(t, srv.URL+"/api/tags", login.AuthToken, `{"name":"inbox"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/api/tags/"))
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/tags")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "noteful_http_requests_total")
	assert.Contains(t, string(body), `status="401"`)
}

func TestRouter_MountsEveryAPIGroup(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/api/users", "", `{"username":"demo","password":"password123"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = post(t, srv.URL+"/api/login", "", `{"username":"demo","password":"password123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		AuthToken string `json:"authToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))

	resp = post(t, srv.URL+"/api/refresh", login.AuthToken, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, path := range []string{"/api/tags", "/api/notes"} {
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+login.AuthToken)
		got, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = got.Body.Close()
		assert.Equal(t, http.StatusOK, got.StatusCode, path)
	}

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/users", nil)
	require.NoError(t, err)
	got, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, got.StatusCode)
}

func TestRouter_UnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]any{"status": float64(404), "message": "Not Found"}, body)
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("loud").GetLevel())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), config.Config{Auth: config.AuthConfig{JWTExpiry: time.Hour}})
	assert.EqualError(t, err, "JWT_SECRET is required")
}
