// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package webhooks

import (
	"context"

	"github.com/ory/hydra/v2/oauth2"

	"github.com/canonical/session-service/internal/types"
)

// StorageInterface is the subset of internal/storage the webhooks need.
type StorageInterface interface {
	CreateProfile(ctx context.Context, p *types.Profile) (*types.Profile, error)
	CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error)
	AddMember(ctx context.Context, tenantID, identityID string, role types.TenantRole) (string, error)
	ListMemberships(ctx context.Context, identityID string) ([]*types.Membership, error)
}

// AuthorizerInterface is the subset of internal/authorization the
// webhooks need.
type AuthorizerInterface interface {
	AssignTenantRole(ctx context.Context, tenantID, userID string, role types.TenantRole) error
}

type ServiceInterface interface {
	HandleRegistration(ctx context.Context, identityID, email, name string) error
	HandleTokenHook(ctx context.Context, req *oauth2.TokenHookRequest) (*TokenHookResponse, error)
}
