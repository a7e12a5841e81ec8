// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package kratos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	ory "github.com/ory/client-go"

	"github.com/canonical/session-service/internal/logging"
	"github.com/canonical/session-service/internal/monitoring"
	"github.com/canonical/session-service/internal/tracing"
	"github.com/canonical/session-service/internal/types"
)

// Kratos self-service UI message IDs, see
// https://www.ory.sh/docs/kratos/concepts/ui-messages
const (
	msgInvalidCredentials = "4000006"
	msgAddressNotVerified = "4000010"
)

// Client adapts the Kratos self-service (public) API to the identity
// provider contract the session controller consumes. It tracks a single
// principal's session token and republishes Kratos lifecycle transitions
// as ordered events.
type Client struct {
	client *ory.APIClient

	mu           sync.Mutex
	sessionToken string
	lastSession  *types.IdentitySession

	events      chan types.LifecycleEvent
	subscribers []func(types.LifecycleEvent)
	closeOnce   sync.Once

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewClient(kratosPublicURL string, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Client {
	conf := ory.NewConfiguration()
	conf.Servers = ory.ServerConfigurations{{URL: kratosPublicURL}}

	c := &Client{
		client:  ory.NewAPIClient(conf),
		events:  make(chan types.LifecycleEvent, 16),
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}

	// One dispatcher goroutine keeps delivery in emission order.
	go c.dispatch()

	return c
}

// Subscribe registers a callback for lifecycle events. Events are
// delivered sequentially in emission order.
func (c *Client) Subscribe(fn func(types.LifecycleEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.events)
	})
}

func (c *Client) dispatch() {
	for ev := range c.events {
		c.mu.Lock()
		subs := make([]func(types.LifecycleEvent), len(c.subscribers))
		copy(subs, c.subscribers)
		c.mu.Unlock()

		for _, fn := range subs {
			fn(ev)
		}
	}
}

func (c *Client) emit(ev types.LifecycleEvent) {
	c.events <- ev
}

// SetSessionToken seeds the client with a previously persisted token, so
// a restarted process can recover its session during initialization.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = token
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

// GetCurrentSession asks Kratos whether the held token still maps to a
// session. Returns nil without error when there is no session.
func (c *Client) GetCurrentSession(ctx context.Context) (*types.IdentitySession, error) {
	ctx, span := c.tracer.Start(ctx, "kratos.Client.GetCurrentSession")
	defer span.End()

	token := c.token()
	if token == "" {
		return nil, nil
	}

	session, resp, err := c.client.FrontendAPI.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			// Token no longer honored remotely.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check session: %w", err)
	}

	s := sessionFromOry(session)

	c.mu.Lock()
	c.lastSession = s
	c.mu.Unlock()

	return s, nil
}

// GetCurrentIdentity returns the identity behind the current session.
func (c *Client) GetCurrentIdentity(ctx context.Context) (*types.Identity, error) {
	ctx, span := c.tracer.Start(ctx, "kratos.Client.GetCurrentIdentity")
	defer span.End()

	session, err := c.GetCurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Identity == nil {
		return nil, nil
	}

	return session.Identity, nil
}

// SignInWithPassword runs the native login flow. Credential failures come
// back as typed outcomes; only transport-level problems surface as errors.
func (c *Client) SignInWithPassword(ctx context.Context, email, secret string) (types.SignInOutcome, error) {
	ctx, span := c.tracer.Start(ctx, "kratos.Client.SignInWithPassword")
	defer span.End()

	flow, _, err := c.client.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return types.SignInUnknown, fmt.Errorf("failed to create login flow: %w", err)
	}

	body := ory.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&ory.UpdateLoginFlowWithPasswordMethod{
		Method:     "password",
		Identifier: email,
		Password:   secret,
	})

	login, resp, err := c.client.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(body).
		Execute()
	if err != nil {
		outcome := classifyCredentialError(resp, err)
		if outcome == types.SignInUnknown {
			c.logger.Errorf("login flow failed: %v", err)
		}
		c.logger.Security().AuthFailure(email, string(outcome))
		return outcome, nil
	}

	c.mu.Lock()
	if login.SessionToken != nil {
		c.sessionToken = *login.SessionToken
	}
	c.lastSession = sessionFromOry(&login.Session)
	identity := c.lastSession.Identity
	c.mu.Unlock()

	c.logger.Security().AuthSuccess(email)
	c.emit(types.LifecycleEvent{Type: types.EventSignedIn, Identity: identity})

	return types.SignInSuccess, nil
}

// SignUp runs the native registration flow. Metadata is passed through to
// the identity traits so a suggested display name survives signup.
func (c *Client) SignUp(ctx context.Context, email, secret string, metadata map[string]any) (types.SignInOutcome, error) {
	ctx, span := c.tracer.Start(ctx, "kratos.Client.SignUp")
	defer span.End()

	flow, _, err := c.client.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return types.SignInUnknown, fmt.Errorf("failed to create registration flow: %w", err)
	}

	traits := map[string]interface{}{"email": email}
	for k, v := range metadata {
		traits[k] = v
	}

	body := ory.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&ory.UpdateRegistrationFlowWithPasswordMethod{
		Method:   "password",
		Password: secret,
		Traits:   traits,
	})

	registration, resp, err := c.client.FrontendAPI.UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(body).
		Execute()
	if err != nil {
		outcome := classifyCredentialError(resp, err)
		if outcome == types.SignInUnknown {
			c.logger.Errorf("registration flow failed: %v", err)
		}
		return outcome, nil
	}

	c.mu.Lock()
	if registration.SessionToken != nil {
		c.sessionToken = *registration.SessionToken
	}
	var identity *types.Identity
	if registration.Session != nil {
		c.lastSession = sessionFromOry(registration.Session)
		identity = c.lastSession.Identity
	}
	c.mu.Unlock()

	// Some deployments require email verification before a session is
	// issued; only emit signed-in when Kratos actually handed one out.
	if identity != nil {
		c.emit(types.LifecycleEvent{Type: types.EventSignedIn, Identity: identity})
	}

	return types.SignInSuccess, nil
}

// SignOut invalidates the remote session. A remote session that is
// already gone is not an error; local state is cleared regardless.
func (c *Client) SignOut(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "kratos.Client.SignOut")
	defer span.End()

	token := c.token()

	var remoteErr error
	if token != "" {
		resp, err := c.client.FrontendAPI.PerformNativeLogout(ctx).
			PerformNativeLogoutBody(*ory.NewPerformNativeLogoutBody(token)).
			Execute()
		if err != nil {
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden) {
				// Already signed out remotely.
				c.logger.Debugf("remote session already gone: %v", err)
			} else {
				remoteErr = fmt.Errorf("failed to perform logout: %w", err)
			}
		}
	}

	c.mu.Lock()
	c.sessionToken = ""
	c.lastSession = nil
	c.mu.Unlock()

	c.emit(types.LifecycleEvent{Type: types.EventSignedOut})

	return remoteErr
}

// RefreshSession re-validates the current token against Kratos and emits
// a token-refreshed event when the session is still live.
func (c *Client) RefreshSession(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "kratos.Client.RefreshSession")
	defer span.End()

	session, err := c.GetCurrentSession(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("no session to refresh")
	}

	c.emit(types.LifecycleEvent{Type: types.EventTokenRefreshed, Identity: session.Identity})
	return nil
}

func sessionFromOry(s *ory.Session) *types.IdentitySession {
	if s == nil {
		return nil
	}

	out := &types.IdentitySession{
		ID:        s.Id,
		ExpiresAt: s.ExpiresAt,
	}
	if s.Active != nil {
		out.Active = *s.Active
	}
	if s.Identity != nil {
		out.Identity = identityFromOry(s.Identity)
	}

	return out
}

func identityFromOry(id *ory.Identity) *types.Identity {
	identity := &types.Identity{ID: id.Id, Metadata: map[string]any{}}

	if traits, ok := id.Traits.(map[string]interface{}); ok {
		for k, v := range traits {
			if k == "email" {
				if email, ok := v.(string); ok {
					identity.Email = email
					continue
				}
			}
			identity.Metadata[k] = v
		}
	}

	return identity
}

// classifyCredentialError maps a failed self-service flow to a typed,
// user-displayable outcome.
func classifyCredentialError(resp *http.Response, err error) types.SignInOutcome {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return types.SignInRateLimited
	}

	var apiErr *ory.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		body := string(apiErr.Body())
		switch {
		case strings.Contains(body, msgAddressNotVerified):
			return types.SignInEmailUnconfirmed
		case strings.Contains(body, msgInvalidCredentials):
			return types.SignInInvalidCredentials
		}
	}

	if resp != nil && (resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized) {
		return types.SignInInvalidCredentials
	}

	return types.SignInUnknown
}
