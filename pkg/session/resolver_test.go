// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	"github.com/canonical/session-service/internal/storage"
	"github.com/canonical/session-service/internal/types"
)

//go:generate mockgen -build_flags=--mod=mod -package session -destination ./mock_interfaces.go -source=./interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package session -destination ./mock_logger.go -source=../../internal/logging/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package session -destination ./mock_monitor.go -source=../../internal/monitoring/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package session -destination ./mock_tracing.go -source=../../internal/tracing/interfaces.go

func setupResolverMocks(t *testing.T) (*MockStorageInterface, *MockAuthzInterface, *MockLoggerInterface, *Resolver) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockStorage := NewMockStorageInterface(ctrl)
	mockAuthz := NewMockAuthzInterface(ctrl)
	mockTracer := NewMockTracingInterface(ctrl)
	mockMonitor := NewMockMonitorInterface(ctrl)
	mockLogger := NewMockLoggerInterface(ctrl)

	mockTracer.EXPECT().Start(gomock.Any(), gomock.Any()).
		Return(context.Background(), trace.SpanFromContext(context.Background())).AnyTimes()

	r := NewResolver(mockStorage, mockAuthz, mockTracer, mockMonitor, mockLogger)
	return mockStorage, mockAuthz, mockLogger, r
}

func tenant(id, name string) *types.Tenant {
	return &types.Tenant{ID: id, Name: name, Status: types.TenantStatusActive}
}

func membership(id, tenantID, identityID string, role types.TenantRole) *types.Membership {
	return &types.Membership{
		ID:               id,
		TenantID:         tenantID,
		KratosIdentityID: identityID,
		Role:             role,
		Tenant:           tenant(tenantID, "Tenant "+tenantID),
	}
}

func TestResolverCreatesProfileWithDerivedDisplayName(t *testing.T) {
	testCases := []struct {
		name         string
		identity     *types.Identity
		expectedName string
	}{
		{
			name:         "from metadata name",
			identity:     &types.Identity{ID: "u1", Email: "ana@biz.com", Metadata: map[string]any{"name": "Ana Lima"}},
			expectedName: "Ana Lima",
		},
		{
			name:         "from email local part",
			identity:     &types.Identity{ID: "u1", Email: "ana@biz.com"},
			expectedName: "ana",
		},
		{
			name:         "fallback",
			identity:     &types.Identity{ID: "u1"},
			expectedName: "User",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockStorage, _, _, r := setupResolverMocks(t)

			mockStorage.EXPECT().GetProfile(gomock.Any(), "u1").Return(nil, storage.ErrNotFound)
			mockStorage.EXPECT().CreateProfile(gomock.Any(), gomock.Any()).DoAndReturn(
				func(ctx context.Context, p *types.Profile) (*types.Profile, error) {
					if p.DisplayName != tc.expectedName {
						t.Errorf("expected display name %q, got %q", tc.expectedName, p.DisplayName)
					}
					if p.GlobalRole != types.GlobalRoleMember {
						t.Errorf("expected global role member, got %s", p.GlobalRole)
					}
					return p, nil
				},
			)
			mockStorage.EXPECT().ListMemberships(gomock.Any(), "u1").Return(nil, nil)

			user, err := r.Resolve(context.Background(), tc.identity)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Profile.DisplayName != tc.expectedName {
				t.Errorf("expected display name %q, got %q", tc.expectedName, user.Profile.DisplayName)
			}
			if user.ActiveTenant != nil {
				t.Errorf("expected no active tenant, got %v", user.ActiveTenant)
			}
		})
	}
}

func TestResolverFallsBackToTransientProfile(t *testing.T) {
	mockStorage, _, mockLogger, r := setupResolverMocks(t)

	identity := &types.Identity{ID: "u1", Email: "ana@biz.com"}

	mockStorage.EXPECT().GetProfile(gomock.Any(), "u1").Return(nil, storage.ErrNotFound)
	mockStorage.EXPECT().CreateProfile(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
	mockStorage.EXPECT().ListMemberships(gomock.Any(), "u1").Return(nil, nil)
	mockLogger.EXPECT().Errorf(gomock.Any(), gomock.Any(), gomock.Any())

	user, err := r.Resolve(context.Background(), identity)
	if err != nil {
		t.Fatalf("expected session to survive profile write failure, got %v", err)
	}
	if !user.Profile.Transient {
		t.Error("expected transient profile marker")
	}
	if user.Profile.DisplayName != "ana" {
		t.Errorf("expected display name ana, got %q", user.Profile.DisplayName)
	}
}

func TestResolverPlatformAdminSkipsTenantScope(t *testing.T) {
	mockStorage, _, _, r := setupResolverMocks(t)

	identity := &types.Identity{ID: "u3", Email: "root@platform.io"}
	profile := &types.Profile{ID: "u3", DisplayName: "root", GlobalRole: types.GlobalRolePlatformAdmin}

	mockStorage.EXPECT().GetProfile(gomock.Any(), "u3").Return(profile, nil)
	// No ListMemberships expectation: platform admins are not scoped.

	user, err := r.Resolve(context.Background(), identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ActiveTenant != nil {
		t.Errorf("expected nil active tenant for platform admin, got %v", user.ActiveTenant)
	}
	if user.Memberships != nil {
		t.Errorf("expected no memberships for platform admin, got %v", user.Memberships)
	}
}

func TestResolverFirstMembershipBecomesActiveTenant(t *testing.T) {
	mockStorage, mockAuthz, _, r := setupResolverMocks(t)

	identity := &types.Identity{ID: "u1", Email: "ana@biz.com"}
	profile := &types.Profile{ID: "u1", DisplayName: "ana", GlobalRole: types.GlobalRoleMember}
	memberships := []*types.Membership{
		membership("m1", "t1", "u1", types.TenantRoleMember),
		membership("m2", "t2", "u1", types.TenantRoleViewer),
	}

	mockStorage.EXPECT().GetProfile(gomock.Any(), "u1").Return(profile, nil)
	mockStorage.EXPECT().ListMemberships(gomock.Any(), "u1").Return(memberships, nil)
	mockAuthz.EXPECT().MirrorMemberships(gomock.Any(), "u1", gomock.Any()).Return(nil)

	user, err := r.Resolve(context.Background(), identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ActiveTenant == nil || user.ActiveTenant.ID != "t1" {
		t.Errorf("expected active tenant t1, got %v", user.ActiveTenant)
	}
	if user.Profile.GlobalRole != types.GlobalRoleMember {
		t.Errorf("expected global role member, got %s", user.Profile.GlobalRole)
	}
}

func TestResolverPromotesOwnerToTenantAdmin(t *testing.T) {
	mockStorage, mockAuthz, _, r := setupResolverMocks(t)

	identity := &types.Identity{ID: "u2", Email: "bo@corp.com"}
	profile := &types.Profile{ID: "u2", DisplayName: "bo", GlobalRole: types.GlobalRoleMember}
	memberships := []*types.Membership{
		membership("m1", "t1", "u2", types.TenantRoleOwner),
	}

	mockStorage.EXPECT().GetProfile(gomock.Any(), "u2").Return(profile, nil)
	mockStorage.EXPECT().ListMemberships(gomock.Any(), "u2").Return(memberships, nil)
	mockStorage.EXPECT().UpdateProfileRole(gomock.Any(), "u2", types.GlobalRoleTenantAdmin).Return(nil)
	mockAuthz.EXPECT().MirrorMemberships(gomock.Any(), "u2", gomock.Any()).Return(nil)

	user, err := r.Resolve(context.Background(), identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Profile.GlobalRole != types.GlobalRoleTenantAdmin {
		t.Errorf("expected promotion to tenant_admin, got %s", user.Profile.GlobalRole)
	}
}

func TestResolverPromotionIsIdempotent(t *testing.T) {
	mockStorage, mockAuthz, _, r := setupResolverMocks(t)

	identity := &types.Identity{ID: "u2", Email: "bo@corp.com"}
	profile := &types.Profile{ID: "u2", DisplayName: "bo", GlobalRole: types.GlobalRoleTenantAdmin}
	memberships := []*types.Membership{
		membership("m1", "t1", "u2", types.TenantRoleOwner),
	}

	mockStorage.EXPECT().GetProfile(gomock.Any(), "u2").Return(profile, nil)
	mockStorage.EXPECT().ListMemberships(gomock.Any(), "u2").Return(memberships, nil)
	// No UpdateProfileRole expectation: an already promoted profile is
	// left alone.
	mockAuthz.EXPECT().MirrorMemberships(gomock.Any(), "u2", gomock.Any()).Return(nil)

	user, err := r.Resolve(context.Background(), identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Profile.GlobalRole != types.GlobalRoleTenantAdmin {
		t.Errorf("expected tenant_admin, got %s", user.Profile.GlobalRole)
	}
}

func TestResolverPromotesInMemoryWhenPersistFails(t *testing.T) {
	mockStorage, mockAuthz, mockLogger, r := setupResolverMocks(t)

	identity := &types.Identity{ID: "u2", Email: "bo@corp.com"}
	profile := &types.Profile{ID: "u2", DisplayName: "bo", GlobalRole: types.GlobalRoleMember}
	memberships := []*types.Membership{
		membership("m1", "t1", "u2", types.TenantRoleOwner),
	}

	mockStorage.EXPECT().GetProfile(gomock.Any(), "u2").Return(profile, nil)
	mockStorage.EXPECT().ListMemberships(gomock.Any(), "u2").Return(memberships, nil)
	mockStorage.EXPECT().UpdateProfileRole(gomock.Any(), "u2", types.GlobalRoleTenantAdmin).Return(errors.New("db down"))
	mockAuthz.EXPECT().MirrorMemberships(gomock.Any(), "u2", gomock.Any()).Return(nil)
	mockLogger.EXPECT().Errorf(gomock.Any(), gomock.Any(), gomock.Any())

	user, err := r.Resolve(context.Background(), identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Profile.GlobalRole != types.GlobalRoleTenantAdmin {
		t.Errorf("expected in-memory promotion despite persist failure, got %s", user.Profile.GlobalRole)
	}
}

func TestResolverSurvivesMembershipListFailure(t *testing.T) {
	mockStorage, _, mockLogger, r := setupResolverMocks(t)

	identity := &types.Identity{ID: "u1", Email: "ana@biz.com"}
	profile := &types.Profile{ID: "u1", DisplayName: "ana", GlobalRole: types.GlobalRoleMember}

	mockStorage.EXPECT().GetProfile(gomock.Any(), "u1").Return(profile, nil)
	mockStorage.EXPECT().ListMemberships(gomock.Any(), "u1").Return(nil, errors.New("db down"))
	mockLogger.EXPECT().Errorf(gomock.Any(), gomock.Any(), gomock.Any())

	user, err := r.Resolve(context.Background(), identity)
	if err != nil {
		t.Fatalf("expected session to survive membership failure, got %v", err)
	}
	if user.ActiveTenant != nil {
		t.Errorf("expected unscoped session, got active tenant %v", user.ActiveTenant)
	}
}

func TestResolverSurvivesMirrorFailure(t *testing.T) {
	mockStorage, mockAuthz, mockLogger, r := setupResolverMocks(t)

	identity := &types.Identity{ID: "u1", Email: "ana@biz.com"}
	profile := &types.Profile{ID: "u1", DisplayName: "ana", GlobalRole: types.GlobalRoleMember}
	memberships := []*types.Membership{
		membership("m1", "t1", "u1", types.TenantRoleMember),
	}

	mockStorage.EXPECT().GetProfile(gomock.Any(), "u1").Return(profile, nil)
	mockStorage.EXPECT().ListMemberships(gomock.Any(), "u1").Return(memberships, nil)
	mockAuthz.EXPECT().MirrorMemberships(gomock.Any(), "u1", gomock.Any()).Return(errors.New("fga down"))
	mockLogger.EXPECT().Errorf(gomock.Any(), gomock.Any(), gomock.Any())

	user, err := r.Resolve(context.Background(), identity)
	if err != nil {
		t.Fatalf("expected session to survive mirror failure, got %v", err)
	}
	if user.ActiveTenant == nil || user.ActiveTenant.ID != "t1" {
		t.Errorf("expected active tenant t1, got %v", user.ActiveTenant)
	}
}

func TestResolverFailsOnProfileFetchError(t *testing.T) {
	mockStorage, _, _, r := setupResolverMocks(t)

	identity := &types.Identity{ID: "u1", Email: "ana@biz.com"}

	mockStorage.EXPECT().GetProfile(gomock.Any(), "u1").Return(nil, errors.New("db down"))

	if _, err := r.Resolve(context.Background(), identity); err == nil {
		t.Error("expected error on profile fetch failure")
	}
}

func TestResolverRejectsEmptyIdentity(t *testing.T) {
	_, _, _, r := setupResolverMocks(t)

	if _, err := r.Resolve(context.Background(), nil); err == nil {
		t.Error("expected error for nil identity")
	}
	if _, err := r.Resolve(context.Background(), &types.Identity{}); err == nil {
		t.Error("expected error for identity without ID")
	}
}
