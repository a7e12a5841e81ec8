// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/canonical/session-service/internal/logging"
	"github.com/canonical/session-service/internal/monitoring"
	"github.com/canonical/session-service/internal/tracing"
	"github.com/canonical/session-service/internal/types"
)

type State string

const (
	StateUninitialized   State = "uninitialized"
	StateResolving       State = "resolving"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

var (
	ErrNotAuthenticated   = fmt.Errorf("no authenticated session")
	ErrNoTenantScope      = fmt.Errorf("platform admins carry no tenant scope")
	ErrTenantNotPermitted = fmt.Errorf("tenant is not among the user's memberships")
)

// Snapshot is the fully formed session state handed to subscribers.
// User is non-nil only when State is authenticated.
type Snapshot struct {
	State State
	User  *types.ApplicationUser
}

// Controller drives the session lifecycle. It owns the current
// snapshot: a single writer replaces it atomically, readers and
// subscribers only ever see complete snapshots.
type Controller struct {
	provider IdentityProviderInterface
	resolver ResolverInterface

	mu          sync.RWMutex
	state       State
	user        *types.ApplicationUser
	epoch       uint64
	initialized bool
	subscribers []func(Snapshot)

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewController(
	provider IdentityProviderInterface,
	resolver ResolverInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Controller {
	return &Controller{
		provider: provider,
		resolver: resolver,
		state:    StateUninitialized,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}

// Initialize restores the session from the identity store. Lifecycle
// events arriving before it completes are dropped.
func (c *Controller) Initialize(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "session.Controller.Initialize")
	defer span.End()

	defer func() {
		c.mu.Lock()
		c.initialized = true
		c.mu.Unlock()
	}()

	remote, err := c.provider.GetCurrentSession(ctx)
	if err != nil {
		c.logger.Errorf("failed to query existing session: %s", err)
		c.publish(StateUnauthenticated, nil)
		return err
	}
	if remote == nil {
		c.publish(StateUnauthenticated, nil)
		return nil
	}
	if !remote.Valid() {
		// A dead remote session gets invalidated rather than ignored.
		if err := c.provider.SignOut(ctx); err != nil {
			c.logger.Warnf("failed to invalidate expired session: %s", err)
		}
		c.publish(StateUnauthenticated, nil)
		return nil
	}

	c.resolve(ctx, remote.Identity)
	return nil
}

// HandleLifecycleEvent reacts to identity store events. The identity
// store delivers them in order through a single dispatcher.
func (c *Controller) HandleLifecycleEvent(ctx context.Context, ev types.LifecycleEvent) {
	ctx, span := c.tracer.Start(ctx, "session.Controller.HandleLifecycleEvent")
	defer span.End()

	c.mu.RLock()
	ready := c.initialized
	c.mu.RUnlock()
	if !ready {
		c.logger.Debugf("dropping %s event before initialization", ev.Type)
		return
	}

	switch ev.Type {
	case types.EventSignedOut:
		c.publish(StateUnauthenticated, nil)
	case types.EventSignedIn, types.EventTokenRefreshed:
		identity := ev.Identity
		if identity == nil {
			remote, err := c.provider.GetCurrentSession(ctx)
			if err != nil || !remote.Valid() {
				c.forceSignOut(ctx)
				return
			}
			identity = remote.Identity
		}
		c.resolve(ctx, identity)
	default:
		c.logger.Warnf("ignoring unknown lifecycle event %q", ev.Type)
	}
}

// SignIn checks credentials against the identity store. Session state
// is not touched here, the resulting lifecycle event drives resolution.
func (c *Controller) SignIn(ctx context.Context, email, secret string) (types.SignInOutcome, error) {
	ctx, span := c.tracer.Start(ctx, "session.Controller.SignIn")
	defer span.End()

	return c.provider.SignInWithPassword(ctx, email, secret)
}

func (c *Controller) SignUp(ctx context.Context, email, secret string, metadata map[string]any) (types.SignInOutcome, error) {
	ctx, span := c.tracer.Start(ctx, "session.Controller.SignUp")
	defer span.End()

	return c.provider.SignUp(ctx, email, secret, metadata)
}

// SignOut invalidates the remote session when one exists. Local state
// is cleared whatever the remote outcome.
func (c *Controller) SignOut(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "session.Controller.SignOut")
	defer span.End()

	err := c.provider.SignOut(ctx)
	if err != nil {
		c.logger.Errorf("remote sign-out failed, clearing local session anyway: %s", err)
	}
	c.publish(StateUnauthenticated, nil)
	return err
}

// Refresh re-resolves the current identity against the backing stores.
func (c *Controller) Refresh(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "session.Controller.Refresh")
	defer span.End()

	if err := c.provider.RefreshSession(ctx); err != nil {
		c.forceSignOut(ctx)
		return err
	}

	remote, err := c.provider.GetCurrentSession(ctx)
	if err != nil {
		c.forceSignOut(ctx)
		return err
	}
	if !remote.Valid() {
		c.forceSignOut(ctx)
		return ErrNotAuthenticated
	}

	c.resolve(ctx, remote.Identity)
	return nil
}

// SwitchTenant rescopes the session to another of the user's tenants.
// It is synchronous and never talks to the identity store. The
// tenantID is attacker-controllable, membership is enforced here.
func (c *Controller) SwitchTenant(tenantID string) error {
	c.mu.Lock()

	if c.state != StateAuthenticated || c.user == nil {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if c.user.Profile.GlobalRole == types.GlobalRolePlatformAdmin {
		c.mu.Unlock()
		return ErrNoTenantScope
	}

	membership := c.user.MembershipFor(tenantID)
	if membership == nil || membership.Tenant == nil {
		c.mu.Unlock()
		return ErrTenantNotPermitted
	}

	rescoped := *c.user
	rescoped.ActiveTenant = membership.Tenant
	c.user = &rescoped

	snapshot := Snapshot{State: c.state, User: c.user}
	subscribers := make([]func(Snapshot), len(c.subscribers))
	copy(subscribers, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
	return nil
}

func (c *Controller) CurrentUser() *types.ApplicationUser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{State: c.state, User: c.user}
}

// Subscribe registers a snapshot listener. Listeners are invoked
// outside the controller lock and must not block for long.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// resolve runs the resolver for the identity and publishes the result.
// Each run is tagged with an epoch, a completion that lost the race to
// a newer run is discarded so stale data never overwrites fresh data.
func (c *Controller) resolve(ctx context.Context, identity *types.Identity) {
	ctx, span := c.tracer.Start(ctx, "session.Controller.resolve")
	defer span.End()

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.state = StateResolving
	c.mu.Unlock()

	user, err := c.resolver.Resolve(ctx, identity)

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debugf("discarding stale resolution (epoch %d)", epoch)
		return
	}
	c.mu.Unlock()

	if err != nil {
		// Fail closed: a session that cannot be resolved is no session.
		c.logger.Errorf("session resolution failed, signing out: %s", err)
		c.forceSignOut(ctx)
		return
	}

	c.publishIfCurrent(epoch, StateAuthenticated, user)
}

func (c *Controller) forceSignOut(ctx context.Context) {
	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Warnf("forced sign-out failed remotely: %s", err)
	}
	c.publish(StateUnauthenticated, nil)
}

func (c *Controller) publish(state State, user *types.ApplicationUser) {
	c.mu.Lock()
	// Any direct publish supersedes in-flight resolutions.
	c.epoch++
	c.state = state
	c.user = user
	snapshot := Snapshot{State: state, User: user}
	subscribers := make([]func(Snapshot), len(c.subscribers))
	copy(subscribers, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}

func (c *Controller) publishIfCurrent(epoch uint64, state State, user *types.ApplicationUser) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debugf("discarding stale resolution (epoch %d)", epoch)
		return
	}
	c.state = state
	c.user = user
	snapshot := Snapshot{State: state, User: user}
	subscribers := make([]func(Snapshot), len(c.subscribers))
	copy(subscribers, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}
