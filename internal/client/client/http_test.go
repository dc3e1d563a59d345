package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) Token(context.Context) (string, error) { return s.token, s.err }

func newTestClient(t *testing.T, h http.HandlerFunc, tokens TokenSource) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL, tokens)
	require.NoError(t, err)
	return c
}

func TestDo_SendsPayloadAndBearer(t *testing.T) {
	var (
		gotMethod, gotPath, gotAuth, gotType string
		gotBody                              []byte
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"id":17,"status":"draft"}`))
	}, staticToken{token: "abc"})

	resp, err := c.Do(context.Background(), http.MethodPost, "/timesheets/create", json.RawMessage(`{"year":2024,"month":3}`))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/timesheets/create", gotPath)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"year":2024,"month":3}`, string(gotBody))
	assert.JSONEq(t, `{"id":17,"status":"draft"}`, string(resp))
}

func TestDo_KeepsQuery(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("review_notes")
		w.WriteHeader(http.StatusNoContent)
	}, nil)

	resp, err := c.Do(context.Background(), http.MethodPost, "/timesheets/4/reject?review_notes=wrong+hours", nil)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, "wrong hours", gotQuery)
}

func TestDo_TokenError(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true }, staticToken{err: errors.New("no token")})

	_, err := c.Do(context.Background(), http.MethodGet, "/timesheets/", nil)
	require.ErrorContains(t, err, "credential")
	assert.False(t, called)
}

func TestDo_MapsStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		body   string
		want   error
		detail string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`, ErrUnauthorized, "Could not validate credentials"},
		{"forbidden", http.StatusForbidden, `{"detail":"Not enough permissions"}`, ErrRejected, "Not enough permissions"},
		{"bad request", http.StatusBadRequest, `{"detail":"Timesheet already exists"}`, ErrRejected, "Timesheet already exists"},
		{"validation", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","month"]}]}`, ErrRejected, `[{"loc":["body","month"]}]`},
		{"internal", http.StatusInternalServerError, `oops`, ErrServer, "oops"},
		{"gateway", http.StatusBadGateway, ``, ErrUnavailable, ""},
		{"unavailable", http.StatusServiceUnavailable, ``, ErrUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}, nil)

			_, err := c.Do(context.Background(), http.MethodGet, "/timesheets/", nil)
			require.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
		})
	}
}

func TestDo_ConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, nil)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/timesheets/", nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDo_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewHTTPClient(srv.URL, nil, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/timesheets/", nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDo_CallerCancelIsNotUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Do(ctx, http.MethodGet, "/timesheets/", nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestPing(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		var gotAuth, gotPath string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth, gotPath = r.Header.Get("Authorization"), r.URL.Path
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		}, staticToken{token: "abc"})

		require.NoError(t, c.Ping(context.Background()))
		assert.Empty(t, gotAuth)
		assert.Equal(t, "/health", gotPath)
	})

	t.Run("unexpected body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
		}, nil)
		require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
	})
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("localhost:8000", nil)
	require.Error(t, err)
}

func TestDo_WithTokenOverridesSource(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}, staticToken{err: errors.New("no token stored")})

	_, err := c.Do(WithToken(context.Background(), "candidate"), http.MethodGet, "/auth/me", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer candidate", gotAuth)
}

func TestOffline(t *testing.T) {
	c := Offline()

	_, err := c.Do(context.Background(), http.MethodGet, "/timesheets/", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
	assert.NoError(t, c.Close())
}
