// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"github.com/canonical/session-service/internal/types"
	"github.com/canonical/session-service/pkg/policy"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"omitempty,max=128"`
}

type SwitchTenantRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
}

// OutcomeResponse reports a typed credential outcome. Credential
// failures are outcomes for the caller to display, not errors.
type OutcomeResponse struct {
	Outcome types.SignInOutcome `json:"outcome"`
}

type MeResponse struct {
	User *types.ApplicationUser `json:"user"`
}

type CapabilitiesResponse struct {
	Capabilities []policy.Capability `json:"capabilities"`
	Scope        policy.Scope        `json:"scope"`
}

type TenantsResponse struct {
	Tenants []*types.Tenant `json:"tenants"`
}

type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}
