// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import (
	"context"

	"github.com/canonical/session-service/internal/types"
)

// IdentityProviderInterface is the slice of the identity store the
// session machinery needs.
type IdentityProviderInterface interface {
	GetCurrentSession(ctx context.Context) (*types.IdentitySession, error)
	SignInWithPassword(ctx context.Context, email, secret string) (types.SignInOutcome, error)
	SignUp(ctx context.Context, email, secret string, metadata map[string]any) (types.SignInOutcome, error)
	SignOut(ctx context.Context) error
	RefreshSession(ctx context.Context) error
}

type StorageInterface interface {
	GetProfile(ctx context.Context, id string) (*types.Profile, error)
	CreateProfile(ctx context.Context, p *types.Profile) (*types.Profile, error)
	UpdateProfileRole(ctx context.Context, id string, role types.GlobalRole) error
	ListMemberships(ctx context.Context, identityID string) ([]*types.Membership, error)
}

type AuthzInterface interface {
	MirrorMemberships(ctx context.Context, userID string, memberships []types.Membership) error
}

type ResolverInterface interface {
	Resolve(ctx context.Context, identity *types.Identity) (*types.ApplicationUser, error)
}

// ControllerInterface is what the HTTP facade consumes.
type ControllerInterface interface {
	Initialize(ctx context.Context) error
	SignIn(ctx context.Context, email, secret string) (types.SignInOutcome, error)
	SignUp(ctx context.Context, email, secret string, metadata map[string]any) (types.SignInOutcome, error)
	SignOut(ctx context.Context) error
	Refresh(ctx context.Context) error
	SwitchTenant(tenantID string) error
	CurrentUser() *types.ApplicationUser
	State() State
	Subscribe(fn func(Snapshot))
}
