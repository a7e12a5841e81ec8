// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"

	"github.com/canonical/session-service/internal/types"
)

type StorageInterface interface {
	GetProfile(ctx context.Context, id string) (*types.Profile, error)
	CreateProfile(ctx context.Context, p *types.Profile) (*types.Profile, error)
	UpdateProfile(ctx context.Context, p *types.Profile, paths []string) error
	UpdateProfileRole(ctx context.Context, id string, role types.GlobalRole) error

	ListMemberships(ctx context.Context, identityID string) ([]*types.Membership, error)
	AddMember(ctx context.Context, tenantID, identityID string, role types.TenantRole) (string, error)

	GetTenantByID(ctx context.Context, id string) (*types.Tenant, error)
	ListTenants(ctx context.Context) ([]*types.Tenant, error)
	CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error)
}
