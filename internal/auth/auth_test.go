package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	verifier := StaticVerifier{"tok-alice": {ID: "alice"}}

	var gotUser User
	var called bool
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotUser, _ = UserFrom(r.Context())
	}))

	cases := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{name: "valid token", header: "Bearer tok-alice", wantStatus: http.StatusOK, wantUser: "alice"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not a bearer token", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			gotUser = User{}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantUser != "" {
				assert.True(t, called)
				assert.Equal(t, tc.wantUser, gotUser.ID)
			} else {
				assert.False(t, called, "handler must not run for rejected requests")
			}
		})
	}
}

func TestRemoteVerifier(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id": "alice"}`))
	}))
	defer authSrv.Close()

	v := NewRemoteVerifier(authSrv.URL)

	u, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	require.Equal(t, "alice", u.ID)

	_, err = v.Verify(context.Background(), "bad")
	require.ErrorIs(t, err, ErrInvalidToken)
}
