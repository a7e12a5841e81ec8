// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package policy

import (
	"testing"

	"github.com/canonical/session-service/internal/types"
)

func userWithRole(role types.TenantRole) *types.ApplicationUser {
	tenant := &types.Tenant{ID: "tenant-1", Name: "Acme", Status: types.TenantStatusActive}
	return &types.ApplicationUser{
		IdentityID: "id-1",
		Email:      "ana@biz.com",
		Profile:    &types.Profile{ID: "id-1", DisplayName: "ana", GlobalRole: types.GlobalRoleMember},
		Memberships: []*types.Membership{
			{ID: "m-1", TenantID: "tenant-1", KratosIdentityID: "id-1", Role: role, Tenant: tenant},
		},
		ActiveTenant: tenant,
	}
}

func platformAdmin() *types.ApplicationUser {
	return &types.ApplicationUser{
		IdentityID: "id-admin",
		Email:      "root@platform.io",
		Profile:    &types.Profile{ID: "id-admin", GlobalRole: types.GlobalRolePlatformAdmin},
	}
}

func TestAllowedTenantRoles(t *testing.T) {
	testCases := []struct {
		name       string
		role       types.TenantRole
		capability Capability
		expected   bool
	}{
		{"owner - team management", types.TenantRoleOwner, CapabilityManageTeam, true},
		{"owner - notifications", types.TenantRoleOwner, CapabilityConfigureNotifications, true},
		{"manager - reports", types.TenantRoleManager, CapabilityViewReports, true},
		{"manager - products", types.TenantRoleManager, CapabilityManageProducts, true},
		{"manager - denied team management", types.TenantRoleManager, CapabilityManageTeam, false},
		{"manager - denied notifications", types.TenantRoleManager, CapabilityConfigureNotifications, false},
		{"operator - sales", types.TenantRoleOperator, CapabilityManageSales, true},
		{"operator - customers", types.TenantRoleOperator, CapabilityManageCustomers, true},
		{"operator - messaging", types.TenantRoleOperator, CapabilitySendMessages, true},
		{"operator - denied products", types.TenantRoleOperator, CapabilityManageProducts, false},
		{"operator - denied reports", types.TenantRoleOperator, CapabilityViewReports, false},
		{"operator - denied team management", types.TenantRoleOperator, CapabilityManageTeam, false},
		{"viewer - dashboard", types.TenantRoleViewer, CapabilityViewDashboard, true},
		{"viewer - reports", types.TenantRoleViewer, CapabilityViewReports, true},
		{"viewer - denied sales", types.TenantRoleViewer, CapabilityManageSales, false},
		{"member - sales", types.TenantRoleMember, CapabilityManageSales, true},
		{"member - denied products", types.TenantRoleMember, CapabilityManageProducts, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			user := userWithRole(tc.role)
			if got := Allowed(user, tc.capability); got != tc.expected {
				t.Errorf("Allowed(%s, %s) = %v, expected %v", tc.role, tc.capability, got, tc.expected)
			}
		})
	}
}

func TestAllowedPlatformCapabilities(t *testing.T) {
	if !Allowed(platformAdmin(), CapabilityViewAllTenants) {
		t.Error("expected platform admin to hold platform capabilities")
	}
	if Allowed(userWithRole(types.TenantRoleOwner), CapabilityViewAllTenants) {
		t.Error("expected tenant owner to be denied platform capabilities")
	}
}

func TestPlatformAdminDeniedTenantCapabilities(t *testing.T) {
	admin := platformAdmin()
	for _, c := range []Capability{CapabilityViewDashboard, CapabilityManageSales, CapabilityManageTeam} {
		if Allowed(admin, c) {
			t.Errorf("expected platform admin to be denied tenant capability %s", c)
		}
	}
}

func TestAllowedWithoutScope(t *testing.T) {
	if Allowed(nil, CapabilityViewDashboard) {
		t.Error("expected nil user to be denied")
	}

	noTenant := userWithRole(types.TenantRoleOwner)
	noTenant.ActiveTenant = nil
	if Allowed(noTenant, CapabilityViewDashboard) {
		t.Error("expected user without active tenant to be denied")
	}

	noMembership := userWithRole(types.TenantRoleOwner)
	noMembership.Memberships = nil
	if Allowed(noMembership, CapabilityViewDashboard) {
		t.Error("expected user without membership on active tenant to be denied")
	}
}

func TestCapabilities(t *testing.T) {
	owner := Capabilities(userWithRole(types.TenantRoleOwner))
	if len(owner) != 8 {
		t.Errorf("expected owner to hold 8 capabilities, got %d: %v", len(owner), owner)
	}

	admin := Capabilities(platformAdmin())
	if len(admin) != 2 {
		t.Errorf("expected platform admin to hold 2 capabilities, got %d: %v", len(admin), admin)
	}

	if got := Capabilities(nil); got != nil {
		t.Errorf("expected no capabilities for nil user, got %v", got)
	}
}

func TestAccessibleScope(t *testing.T) {
	testCases := []struct {
		name     string
		user     *types.ApplicationUser
		expected Scope
	}{
		{"nil user", nil, Scope{Kind: ScopeNone}},
		{"platform admin", platformAdmin(), Scope{Kind: ScopePlatform}},
		{"tenant member", userWithRole(types.TenantRoleMember), Scope{Kind: ScopeTenant, TenantID: "tenant-1"}},
		{
			"no active tenant",
			&types.ApplicationUser{Profile: &types.Profile{GlobalRole: types.GlobalRoleMember}},
			Scope{Kind: ScopeNone},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AccessibleScope(tc.user); got != tc.expected {
				t.Errorf("AccessibleScope() = %+v, expected %+v", got, tc.expected)
			}
		})
	}
}
