// Package client is a small Go client for the marketplace HTTP API. It keeps
// session cookies in a jar and refreshes the access token once on a 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL   string
	http      *http.Client
	refresher *TokenRefresher

	mu          sync.RWMutex
	accessToken string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. A cookie jar is added if it
// has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}

	c.refresher = &TokenRefresher{client: c}
	return c, nil
}

// AccessToken returns the token sent as a bearer credential.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Client) setAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (model.AuthUser, error) {
	var user model.AuthUser
	err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &user, false)
	return user, err
}

func (c *Client) Login(ctx context.Context, email string, password string) (model.TokenPair, error) {
	var tokens model.TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", model.LoginRequest{Email: email, Password: password}, &tokens, false); err != nil {
		return model.TokenPair{}, err
	}
	c.setAccessToken(tokens.AccessToken)
	return tokens, nil
}

// Refresh rotates the session. Concurrent callers share one request.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.refresher.Refresh(ctx)
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, false)
	c.setAccessToken("")
	return err
}

func (c *Client) Me(ctx context.Context) (model.AuthUser, error) {
	var user model.AuthUser
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user, true)
	return user, err
}

func (c *Client) CreateProject(ctx context.Context, req model.CreateProjectRequest) (model.Project, error) {
	var project model.Project
	err := c.do(ctx, http.MethodPost, "/api/project/projects", req, &project, true)
	return project, err
}

func (c *Client) MyProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := c.do(ctx, http.MethodGet, "/api/project/projects", nil, &projects, true)
	return projects, err
}

func (c *Client) OpenProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := c.do(ctx, http.MethodGet, "/api/project/projects/open", nil, &projects, true)
	return projects, err
}

func (c *Client) AssignSeller(ctx context.Context, projectID string, sellerID string) (model.Project, error) {
	var project model.Project
	err := c.do(ctx, http.MethodPut, "/api/project/projects/"+projectID, model.AssignSellerRequest{SellerID: sellerID}, &project, true)
	return project, err
}

func (c *Client) CompleteProject(ctx context.Context, projectID string) (model.Project, error) {
	var project model.Project
	req := model.UpdateStatusRequest{Status: string(model.StatusCompleted)}
	err := c.do(ctx, http.MethodPut, "/api/project/projects/"+projectID+"/status", req, &project, true)
	return project, err
}

func (c *Client) PlaceBid(ctx context.Context, req model.CreateBidRequest) (model.Bid, error) {
	var bid model.Bid
	err := c.do(ctx, http.MethodPost, "/api/bid/bids", req, &bid, true)
	return bid, err
}

func (c *Client) ProjectBids(ctx context.Context, projectID string) ([]model.Bid, error) {
	var bids []model.Bid
	err := c.do(ctx, http.MethodGet, "/api/bid/projects/"+projectID+"/bids", nil, &bids, true)
	return bids, err
}

type envelope struct {
	Success bool               `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Error   *apierror.APIError `json:"error"`
}

// do sends one API call. When retry is set a 401 triggers a single refresh
// and the request is replayed.
func (c *Client) do(ctx context.Context, method string, path string, body any, out any, retry bool) error {
	var raw []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		raw = encoded
	}

	resp, err := c.send(ctx, method, path, raw)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && retry {
		resp.Body.Close()
		if _, err := c.refresher.Refresh(ctx); err != nil {
			return err
		}
		resp, err = c.send(ctx, method, path, raw)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp, out)
}

func (c *Client) send(ctx context.Context, method string, path string, raw []byte) (*http.Response, error) {
	var reader io.Reader
	if raw != nil {
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeEnvelope(resp *http.Response, out any) error {
	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = apierror.New(apierror.CodeInternal, http.StatusText(resp.StatusCode), "", resp.StatusCode)
		}
		apiErr.HTTPStatus = resp.StatusCode
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
