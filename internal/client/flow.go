package client

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/navigation"
)

// LoginFlow signs a user in and sends them to their landing page.
type LoginFlow struct {
	client   *Client
	resolver *navigation.Resolver
	log      zerolog.Logger
}

// NewLoginFlow creates a LoginFlow.
func NewLoginFlow(c *Client, resolver *navigation.Resolver, log zerolog.Logger) *LoginFlow {
	return &LoginFlow{
		client:   c,
		resolver: resolver,
		log:      log.With().Str("component", "login_flow").Logger(),
	}
}

// Run logs in, stores the session, waits until the store reports the write
// as complete and then resolves and performs exactly one navigation. Login
// errors are returned as is; permission fetch errors are absorbed by the
// resolver.
func (f *LoginFlow) Run(ctx context.Context, username, password string, nav navigation.Navigator) (string, error) {
	resp, err := f.client.Login(ctx, username, password)
	if err != nil {
		return "", err
	}

	session := f.client.Session()
	if err := session.Establish(ctx, resp.Token, resp.User); err != nil {
		return "", err
	}

	select {
	case <-session.Ready():
	case <-ctx.Done():
		return "", ctx.Err()
	}

	route := f.resolver.ResolveAndNavigate(ctx, resp.User.Role, f.client, nav)
	f.log.Info().Str("username", username).Str("role", resp.User.Role.String()).Str("route", route).Msg("signed in")
	return route, nil
}
