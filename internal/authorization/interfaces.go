// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"context"

	fga "github.com/openfga/go-sdk"
	"github.com/openfga/go-sdk/client"

	"github.com/canonical/session-service/internal/openfga"
	"github.com/canonical/session-service/internal/types"
)

type AuthorizerInterface interface {
	ListObjects(context.Context, string, string, string) ([]string, error)
	Check(context.Context, string, string, string, ...openfga.Tuple) (bool, error)
	FilterObjects(context.Context, string, string, string, []string) ([]string, error)
	ValidateModel(context.Context) error

	AssignTenantRole(context.Context, string, string, types.TenantRole) error
	RemoveTenantRole(context.Context, string, string, types.TenantRole) error
	// AssignPlatformAdmin grants a user admin access to every tenant
	// linked to the given platform group.
	AssignPlatformAdmin(context.Context, string, string) error
	// LinkTenantToPlatform binds a tenant to a platform group so that
	// platform admins can reach it.
	LinkTenantToPlatform(context.Context, string, string) error
	// MirrorMemberships reconciles the relation tuples for a user with
	// the memberships held in the relational store.
	MirrorMemberships(context.Context, string, []types.Membership) error

	DeleteTenant(context.Context, string) error
	CheckTenantAccess(context.Context, string, string, string) (bool, error)
}

type AuthzClientInterface interface {
	ListObjects(context.Context, string, string, string) ([]string, error)
	Check(context.Context, string, string, string, ...openfga.Tuple) (bool, error)
	ReadModel(context.Context) (*fga.AuthorizationModel, error)
	CompareModel(context.Context, fga.AuthorizationModel) (bool, error)
	ReadTuples(context.Context, string, string, string, string) (*client.ClientReadResponse, error)
	WriteTuple(ctx context.Context, user, relation, object string) error
	DeleteTuple(ctx context.Context, user, relation, object string) error
	WriteTuples(context.Context, ...openfga.Tuple) error
	DeleteTuples(context.Context, ...openfga.Tuple) error
}
