// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"context"

	"github.com/canonical/session-service/internal/types"
)

// ControllerInterface is the slice of the session controller the HTTP
// facade drives.
type ControllerInterface interface {
	SignIn(ctx context.Context, email, secret string) (types.SignInOutcome, error)
	SignUp(ctx context.Context, email, secret string, metadata map[string]any) (types.SignInOutcome, error)
	SignOut(ctx context.Context) error
	Refresh(ctx context.Context) error
	SwitchTenant(tenantID string) error
	CurrentUser() *types.ApplicationUser
}

type StorageInterface interface {
	ListTenants(ctx context.Context) ([]*types.Tenant, error)
}
