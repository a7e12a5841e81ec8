// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package policy holds the capability table that maps roles to what the
// console lets them do. The table is the single authority for
// authorization decisions made in process; the OpenFGA mirror is a
// denormalized copy of the same facts.
package policy

import (
	"github.com/canonical/session-service/internal/types"
)

type Capability string

const (
	// Platform capabilities. Granted to platform admins only.
	CapabilityViewAllTenants   Capability = "platform.tenants.view"
	CapabilityManageAllTenants Capability = "platform.tenants.manage"

	// Tenant capabilities. Granted by the role held on the active tenant.
	CapabilityViewDashboard          Capability = "tenant.dashboard.view"
	CapabilityManageSales            Capability = "tenant.sales.manage"
	CapabilityManageCustomers        Capability = "tenant.customers.manage"
	CapabilitySendMessages           Capability = "tenant.messages.send"
	CapabilityManageProducts         Capability = "tenant.products.manage"
	CapabilityViewReports            Capability = "tenant.reports.view"
	CapabilityManageTeam             Capability = "tenant.team.manage"
	CapabilityConfigureNotifications Capability = "tenant.notifications.configure"
)

var platformCapabilities = map[Capability]bool{
	CapabilityViewAllTenants:   true,
	CapabilityManageAllTenants: true,
}

// tenantRoleCapabilities is deliberately an explicit table rather than
// role comparisons scattered through handlers. A missing entry means
// denied.
var tenantRoleCapabilities = map[types.TenantRole]map[Capability]bool{
	types.TenantRoleOwner: {
		CapabilityViewDashboard:          true,
		CapabilityManageSales:            true,
		CapabilityManageCustomers:        true,
		CapabilitySendMessages:           true,
		CapabilityManageProducts:         true,
		CapabilityViewReports:            true,
		CapabilityManageTeam:             true,
		CapabilityConfigureNotifications: true,
	},
	types.TenantRoleManager: {
		CapabilityViewDashboard:   true,
		CapabilityManageSales:     true,
		CapabilityManageCustomers: true,
		CapabilitySendMessages:    true,
		CapabilityManageProducts:  true,
		CapabilityViewReports:     true,
	},
	types.TenantRoleOperator: {
		CapabilityViewDashboard:   true,
		CapabilityManageSales:     true,
		CapabilityManageCustomers: true,
		CapabilitySendMessages:    true,
	},
	types.TenantRoleViewer: {
		CapabilityViewDashboard: true,
		CapabilityViewReports:   true,
	},
	// Plain members work the tenant day to day, same as operators.
	types.TenantRoleMember: {
		CapabilityViewDashboard:   true,
		CapabilityManageSales:     true,
		CapabilityManageCustomers: true,
		CapabilitySendMessages:    true,
	},
}

// IsPlatformCapability reports whether c is scoped to the platform
// rather than to a single tenant.
func IsPlatformCapability(c Capability) bool {
	return platformCapabilities[c]
}

// Allowed decides whether the user may exercise the capability.
//
// Platform capabilities require the platform_admin global role. Tenant
// capabilities require an active tenant and a membership on it; a
// platform admin carries no tenant scope and is denied them.
func Allowed(user *types.ApplicationUser, c Capability) bool {
	if user == nil || user.Profile == nil {
		return false
	}

	if IsPlatformCapability(c) {
		return user.Profile.GlobalRole == types.GlobalRolePlatformAdmin
	}

	if user.Profile.GlobalRole == types.GlobalRolePlatformAdmin {
		return false
	}
	if user.ActiveTenant == nil {
		return false
	}

	membership := user.MembershipFor(user.ActiveTenant.ID)
	if membership == nil {
		return false
	}

	return tenantRoleCapabilities[membership.Role][c]
}

// Capabilities lists every capability the user holds, in a stable order.
func Capabilities(user *types.ApplicationUser) []Capability {
	all := []Capability{
		CapabilityViewAllTenants,
		CapabilityManageAllTenants,
		CapabilityViewDashboard,
		CapabilityManageSales,
		CapabilityManageCustomers,
		CapabilitySendMessages,
		CapabilityManageProducts,
		CapabilityViewReports,
		CapabilityManageTeam,
		CapabilityConfigureNotifications,
	}

	var granted []Capability
	for _, c := range all {
		if Allowed(user, c) {
			granted = append(granted, c)
		}
	}
	return granted
}

type ScopeKind string

const (
	ScopeNone     ScopeKind = "none"
	ScopePlatform ScopeKind = "platform"
	ScopeTenant   ScopeKind = "tenant"
)

// Scope is the slice of the system a session may touch.
type Scope struct {
	Kind     ScopeKind `json:"kind"`
	TenantID string    `json:"tenant_id,omitempty"`
}

// AccessibleScope returns the scope of the user's session: the whole
// platform for platform admins, the active tenant for everyone else,
// none when there is no user or no active tenant.
func AccessibleScope(user *types.ApplicationUser) Scope {
	if user == nil || user.Profile == nil {
		return Scope{Kind: ScopeNone}
	}
	if user.Profile.GlobalRole == types.GlobalRolePlatformAdmin {
		return Scope{Kind: ScopePlatform}
	}
	if user.ActiveTenant == nil {
		return Scope{Kind: ScopeNone}
	}
	return Scope{Kind: ScopeTenant, TenantID: user.ActiveTenant.ID}
}
