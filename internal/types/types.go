// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"time"
)

// GlobalRole is the tenant-independent role stored on a Profile.
type GlobalRole string

const (
	GlobalRolePlatformAdmin GlobalRole = "platform_admin"
	GlobalRoleTenantAdmin   GlobalRole = "tenant_admin"
	GlobalRoleMember        GlobalRole = "member"
)

// TenantRole is the role an identity holds within a single tenant.
type TenantRole string

const (
	TenantRoleOwner    TenantRole = "owner"
	TenantRoleManager  TenantRole = "manager"
	TenantRoleOperator TenantRole = "operator"
	TenantRoleViewer   TenantRole = "viewer"
	TenantRoleMember   TenantRole = "member"
)

// TenantStatus tracks where a tenant is in its commercial lifecycle.
type TenantStatus string

const (
	TenantStatusTrial     TenantStatus = "trial"
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusCancelled TenantStatus = "cancelled"
)

type Tenant struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	PlanTier  string       `db:"plan_tier" json:"plan_tier"`
	Status    TenantStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Profile is the durable per-identity record. Exactly one exists per
// Kratos identity; its ID is the Kratos identity ID.
type Profile struct {
	ID          string     `db:"id" json:"id"`
	DisplayName string     `db:"display_name" json:"display_name"`
	AvatarURL   string     `db:"avatar_url" json:"avatar_url,omitempty"`
	GlobalRole  GlobalRole `db:"global_role" json:"global_role"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	// Transient marks a profile that could not be persisted and lives
	// only in the current session snapshot.
	Transient bool `db:"-" json:"-"`
}

type Membership struct {
	ID               string     `db:"id" json:"id"`
	TenantID         string     `db:"tenant_id" json:"tenant_id"`
	KratosIdentityID string     `db:"kratos_identity_id" json:"kratos_identity_id"`
	Role             TenantRole `db:"role" json:"role"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`

	// Tenant is populated on joined reads.
	Tenant *Tenant `db:"-" json:"tenant,omitempty"`
}

// Identity is the principal as reported by the identity provider.
// Metadata carries the raw signup traits (e.g. a suggested name).
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IdentitySession is a remote session as reported by the identity provider.
type IdentitySession struct {
	ID        string     `json:"id"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Identity  *Identity  `json:"identity,omitempty"`
}

// Valid reports whether the remote session is usable right now.
func (s *IdentitySession) Valid() bool {
	if s == nil || !s.Active {
		return false
	}
	if s.ExpiresAt != nil && s.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// ApplicationUser is the fully resolved session principal. Snapshots are
// replaced wholesale, never mutated in place.
type ApplicationUser struct {
	IdentityID  string        `json:"identity_id"`
	Email       string        `json:"email"`
	Profile     *Profile      `json:"profile"`
	Memberships []*Membership `json:"memberships"`

	// ActiveTenant is nil for platform admins, who are never scoped to
	// a tenant. For everyone else it is one of the membership tenants.
	ActiveTenant *Tenant `json:"active_tenant,omitempty"`
}

// MembershipFor returns the user's membership on the given tenant, or nil.
func (u *ApplicationUser) MembershipFor(tenantID string) *Membership {
	for _, m := range u.Memberships {
		if m.TenantID == tenantID {
			return m
		}
	}
	return nil
}

// SignInOutcome is the typed result of a credential check. Credential
// failures are outcomes, not errors: they are user-displayable and leave
// session state untouched.
type SignInOutcome string

const (
	SignInSuccess            SignInOutcome = "success"
	SignInInvalidCredentials SignInOutcome = "invalid_credentials"
	SignInRateLimited        SignInOutcome = "rate_limited"
	SignInEmailUnconfirmed   SignInOutcome = "email_unconfirmed"
	SignInUnknown            SignInOutcome = "unknown"
)

// LifecycleEventType enumerates the events the identity provider emits.
type LifecycleEventType string

const (
	EventSignedIn       LifecycleEventType = "signed_in"
	EventSignedOut      LifecycleEventType = "signed_out"
	EventTokenRefreshed LifecycleEventType = "token_refreshed"
)

type LifecycleEvent struct {
	Type     LifecycleEventType
	Identity *Identity
}
