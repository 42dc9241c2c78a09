// Package auth validates bearer tokens against the external auth service and
// attaches the resolved identity to the request context. Session issuance
// lives outside this backend.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

// User is the resolved identity an authenticated request acts as.
type User struct {
	ID string `json:"id"`
}

// Verifier resolves a bearer token to a user.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

type ctxKey struct{}

// Middleware rejects requests without a valid bearer token and attaches the
// resolved user to the request context.
func Middleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			user, err := v.Verify(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFrom returns the identity attached by Middleware.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}

// RemoteVerifier asks the external auth service who a token belongs to.
type RemoteVerifier struct {
	url    string
	client *http.Client
}

func NewRemoteVerifier(url string) *RemoteVerifier {
	return &RemoteVerifier{url: url, client: &http.Client{Timeout: 5 * time.Second}}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, ErrInvalidToken
	}
	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil || u.ID == "" {
		return User{}, ErrInvalidToken
	}
	return u, nil
}

// StaticVerifier maps tokens to users directly. Dev and test use only.
type StaticVerifier map[string]User

func (v StaticVerifier) Verify(_ context.Context, token string) (User, error) {
	u, ok := v[token]
	if !ok {
		return User{}, ErrInvalidToken
	}
	return u, nil
}
