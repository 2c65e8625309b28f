package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

func writeEnvelope(w http.ResponseWriter, status int, data any, apiErr *apierror.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": apiErr == nil,
		"data":    data,
		"error":   apiErr,
	})
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := New(server.URL)
	require.NoError(t, err)
	return c
}

func TestRefreshCoalescesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/token", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeEnvelope(w, http.StatusOK, model.TokenPair{AccessToken: "rotated"}, nil)
	})
	c := newTestClient(t, mux)

	const callers = 10
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)

	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			tokens[i], errs[i] = c.Refresh(context.Background())
		}(i)
	}

	started.Wait()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "rotated", tokens[i])
	}
	assert.Equal(t, "rotated", c.AccessToken())
}

func TestRetriesOnceAfterUnauthorized(t *testing.T) {
	var refreshes atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeEnvelope(w, http.StatusOK, model.TokenPair{AccessToken: "fresh"}, nil)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeEnvelope(w, http.StatusUnauthorized, nil, apierror.Unauthorized("token expired"))
			return
		}
		writeEnvelope(w, http.StatusOK, model.AuthUser{ID: "u1", Email: "b@x.com", Role: model.RoleBuyer}, nil)
	})
	c := newTestClient(t, mux)
	c.setAccessToken("stale")

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", user.Email)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestRefreshFailureIsReturned(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/token", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, nil, apierror.Forbidden("refresh token is not valid"))
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil, apierror.Unauthorized("token expired"))
	})
	c := newTestClient(t, mux)

	_, err := c.Me(context.Background())
	require.Error(t, err)

	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.CodeForbidden, apiErr.Code)
	assert.Equal(t, http.StatusForbidden, apiErr.HTTPStatus)
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/bid/bids", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, nil, apierror.Conflict("You have already placed a bid on this project", ""))
	})
	c := newTestClient(t, mux)

	_, err := c.PlaceBid(context.Background(), model.CreateBidRequest{ProjectID: "p1", Amount: "150", EstimatedTime: "3 days", Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, apierror.CodeConflict, apierror.CodeOf(err))
	assert.Contains(t, err.Error(), "already placed a bid")
}

func TestLoginStoresAccessToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "r1", Path: "/"})
		writeEnvelope(w, http.StatusOK, model.TokenPair{AccessToken: "a1-" + req.Email}, nil)
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("refreshToken")
		if assert.NoError(t, err) {
			assert.Equal(t, "r1", cookie.Value)
		}
		writeEnvelope(w, http.StatusOK, map[string]bool{"loggedOut": true}, nil)
	})
	c := newTestClient(t, mux)

	tokens, err := c.Login(context.Background(), "b@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a1-b@x.com", tokens.AccessToken)
	assert.Equal(t, "a1-b@x.com", c.AccessToken())

	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, c.AccessToken())
}
