// Package client talks to the tooltrack REST API on behalf of one signed-in
// user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/model"
)

const defaultTimeout = 10 * time.Second

// ErrNotSignedIn is returned by calls that need a token when the session is empty.
var ErrNotSignedIn = errors.New("client: not signed in")

// APIError is a non-2xx reply carrying the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// Client is a REST client bound to a Session.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request failures.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client for the API rooted at baseURL (e.g. http://host:8080/api/v1).
func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: session,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "api_client").Logger()
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session { return c.session }

// Login exchanges credentials for a token. It does not touch the session;
// LoginFlow decides when the identity is stored.
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	body := model.LoginRequest{Username: username, Password: password}

	var resp model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", false, body, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, &apperr.AuthError{}
		}
		return nil, &apperr.FetchError{Op: "login", Err: err}
	}
	return &resp, nil
}

// Logout revokes the token server side and ends the local session. The local
// session is ended even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	var remote error
	if c.session.Token() != "" {
		remote = c.do(ctx, http.MethodPost, "/auth/logout", true, nil, nil)
	}
	if err := c.session.End(ctx); err != nil {
		return err
	}
	if remote != nil {
		return &apperr.FetchError{Op: "logout", Err: remote}
	}
	return nil
}

// MyPermissions returns the caller's permission set. A missing set, either a
// 404 or a null body, is nil without an error.
func (c *Client) MyPermissions(ctx context.Context) (*model.PermissionSet, error) {
	var set *model.PermissionSet
	err := c.do(ctx, http.MethodGet, "/settings/permissions/me", true, nil, &set)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, &apperr.FetchError{Op: "permissions", Err: err}
	}
	return set, nil
}

// PermissionsForCurrentCaller lets the client act as the resolver's source.
func (c *Client) PermissionsForCurrentCaller(ctx context.Context) (*model.PermissionSet, error) {
	return c.MyPermissions(ctx)
}

// ListPermissions returns every stored permission set.
func (c *Client) ListPermissions(ctx context.Context) ([]model.PermissionSet, error) {
	var out struct {
		Permissions []model.PermissionSet `json:"permissions"`
	}
	if err := c.do(ctx, http.MethodGet, "/settings/permissions", true, nil, &out); err != nil {
		return nil, &apperr.FetchError{Op: "list permissions", Err: err}
	}
	return out.Permissions, nil
}

// UpdatePermissions replaces the given role sets and returns what the server stored.
func (c *Client) UpdatePermissions(ctx context.Context, sets []model.PermissionSet) ([]model.PermissionSet, error) {
	var out struct {
		Permissions []model.PermissionSet `json:"permissions"`
	}
	req := model.UpdatePermissionsRequest{Permissions: sets}
	if err := c.do(ctx, http.MethodPatch, "/settings/permissions", true, req, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			verr := &apperr.ValidationError{}
			for field, msg := range apiErr.Fields {
				verr.Fields = append(verr.Fields, apperr.FieldError{Field: field, Message: msg})
			}
			return nil, verr
		}
		return nil, &apperr.FetchError{Op: "update permissions", Err: err}
	}
	return out.Permissions, nil
}

// do sends one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, auth bool, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.session.Token()
		if token == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s (status %d): %w", method, path, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Fields = env.Error.Fields
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
