package client

import (
	"context"
	"net/http"

	"golang.org/x/sync/singleflight"

	"freelance-market/internal/model"
)

const refreshKey = "refresh"

// TokenRefresher coalesces concurrent refreshes into a single request. The
// server keeps one refresh token per user, so two parallel rotations with the
// same cookie would make the second one fail.
type TokenRefresher struct {
	client *Client
	group  singleflight.Group
}

func (r *TokenRefresher) Refresh(ctx context.Context) (string, error) {
	result := r.group.DoChan(refreshKey, func() (any, error) {
		var tokens model.TokenPair
		if err := r.client.do(context.WithoutCancel(ctx), http.MethodPost, "/api/auth/token", nil, &tokens, false); err != nil {
			return "", err
		}
		r.client.setAccessToken(tokens.AccessToken)
		return tokens.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
