// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/canonical/session-service/internal/logging"
	"github.com/canonical/session-service/internal/monitoring"
	"github.com/canonical/session-service/internal/storage"
	"github.com/canonical/session-service/internal/tracing"
	"github.com/canonical/session-service/internal/types"
)

// Resolver turns a raw identity into a fully scoped ApplicationUser:
// profile, memberships, active tenant, promoted global role.
type Resolver struct {
	storage StorageInterface
	authz   AuthzInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewResolver(
	storage StorageInterface,
	authz AuthzInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Resolver {
	return &Resolver{
		storage: storage,
		authz:   authz,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, identity *types.Identity) (*types.ApplicationUser, error) {
	ctx, span := r.tracer.Start(ctx, "session.Resolver.Resolve")
	defer span.End()

	if identity == nil || identity.ID == "" {
		return nil, fmt.Errorf("cannot resolve empty identity")
	}

	profile, err := r.resolveProfile(ctx, identity)
	if err != nil {
		return nil, err
	}

	user := &types.ApplicationUser{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Profile:    profile,
	}

	// Platform admins are never scoped to a tenant, their memberships
	// are irrelevant to the session.
	if profile.GlobalRole == types.GlobalRolePlatformAdmin {
		return user, nil
	}

	memberships, err := r.storage.ListMemberships(ctx, identity.ID)
	if err != nil {
		// A session with no tenant scope is still a session.
		r.logger.Errorf("failed to list memberships for %s, continuing unscoped: %s", identity.ID, err)
		memberships = nil
	}
	user.Memberships = memberships

	if len(memberships) > 0 {
		user.ActiveTenant = memberships[0].Tenant
	}

	r.promote(ctx, user)
	r.mirror(ctx, user)

	return user, nil
}

func (r *Resolver) resolveProfile(ctx context.Context, identity *types.Identity) (*types.Profile, error) {
	ctx, span := r.tracer.Start(ctx, "session.Resolver.resolveProfile")
	defer span.End()

	profile, err := r.storage.GetProfile(ctx, identity.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch profile for %s: %w", identity.ID, err)
	}

	fresh := &types.Profile{
		ID:          identity.ID,
		DisplayName: deriveDisplayName(identity),
		GlobalRole:  types.GlobalRoleMember,
	}

	created, err := r.storage.CreateProfile(ctx, fresh)
	if err != nil {
		// The profile write failed but the identity is authenticated.
		// Carry a transient profile rather than failing the session.
		r.logger.Errorf("failed to create profile for %s, using transient profile: %s", identity.ID, err)
		fresh.Transient = true
		return fresh, nil
	}
	return created, nil
}

// promote applies the ownership promotion: a plain member holding an
// owner membership anywhere becomes a tenant_admin. The persisted role
// is a denormalized cache, the write is best-effort and the in-memory
// role is promoted regardless.
func (r *Resolver) promote(ctx context.Context, user *types.ApplicationUser) {
	ctx, span := r.tracer.Start(ctx, "session.Resolver.promote")
	defer span.End()

	if user.Profile.GlobalRole != types.GlobalRoleMember {
		return
	}

	ownsATenant := false
	for _, m := range user.Memberships {
		if m.Role == types.TenantRoleOwner {
			ownsATenant = true
			break
		}
	}
	if !ownsATenant {
		return
	}

	if err := r.storage.UpdateProfileRole(ctx, user.IdentityID, types.GlobalRoleTenantAdmin); err != nil {
		r.logger.Errorf("failed to persist promotion for %s: %s", user.IdentityID, err)
	}
	user.Profile.GlobalRole = types.GlobalRoleTenantAdmin
}

func (r *Resolver) mirror(ctx context.Context, user *types.ApplicationUser) {
	ctx, span := r.tracer.Start(ctx, "session.Resolver.mirror")
	defer span.End()

	if len(user.Memberships) == 0 {
		return
	}

	memberships := make([]types.Membership, len(user.Memberships))
	for i, m := range user.Memberships {
		memberships[i] = *m
	}
	if err := r.authz.MirrorMemberships(ctx, user.IdentityID, memberships); err != nil {
		r.logger.Errorf("failed to mirror memberships for %s: %s", user.IdentityID, err)
	}
}

func deriveDisplayName(identity *types.Identity) string {
	if name, ok := identity.Metadata["name"].(string); ok && name != "" {
		return name
	}
	if at := strings.Index(identity.Email, "@"); at > 0 {
		return identity.Email[:at]
	}
	return "User"
}
