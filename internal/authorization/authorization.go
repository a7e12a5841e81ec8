// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"context"
	"fmt"
	"slices"

	"github.com/canonical/session-service/internal/logging"
	"github.com/canonical/session-service/internal/monitoring"
	"github.com/canonical/session-service/internal/openfga"
	"github.com/canonical/session-service/internal/tracing"
	"github.com/canonical/session-service/internal/types"
)

var ErrInvalidAuthModel = fmt.Errorf("invalid authorization model schema")

type Authorizer struct {
	client AuthzClientInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (a *Authorizer) Check(ctx context.Context, user string, relation string, object string, contextualTuples ...openfga.Tuple) (bool, error) {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.Check")
	defer span.End()

	return a.client.Check(ctx, user, relation, object, contextualTuples...)
}

func (a *Authorizer) ListObjects(ctx context.Context, user string, relation string, objectType string) ([]string, error) {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.ListObjects")
	defer span.End()

	return a.client.ListObjects(ctx, user, relation, objectType)
}

func (a *Authorizer) FilterObjects(ctx context.Context, user string, relation string, objectType string, objs []string) ([]string, error) {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.FilterObjects")
	defer span.End()

	allowedObjs, err := a.ListObjects(ctx, user, relation, objectType)
	if err != nil {
		return nil, err
	}

	var ret []string
	for _, obj := range allowedObjs {
		if slices.Contains(objs, obj) {
			ret = append(ret, obj)
		}
	}
	return ret, nil
}

func (a *Authorizer) ValidateModel(ctx context.Context) error {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.ValidateModel")
	defer span.End()

	v0AuthzModel := NewAuthorizationModelProvider("v0")
	model := *v0AuthzModel.GetModel()

	eq, err := a.client.CompareModel(ctx, model)
	if err != nil {
		return err
	}
	if !eq {
		return ErrInvalidAuthModel
	}
	return nil
}

func (a *Authorizer) AssignTenantRole(ctx context.Context, tenantId, userId string, role types.TenantRole) error {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.AssignTenantRole")
	defer span.End()

	relation, err := RelationForRole(role)
	if err != nil {
		return err
	}
	return a.client.WriteTuple(ctx, UserTuple(userId), relation, TenantTuple(tenantId))
}

func (a *Authorizer) RemoveTenantRole(ctx context.Context, tenantId, userId string, role types.TenantRole) error {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.RemoveTenantRole")
	defer span.End()

	relation, err := RelationForRole(role)
	if err != nil {
		return err
	}
	return a.client.DeleteTuple(ctx, UserTuple(userId), relation, TenantTuple(tenantId))
}

func (a *Authorizer) AssignPlatformAdmin(ctx context.Context, platformId, userId string) error {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.AssignPlatformAdmin")
	defer span.End()

	return a.client.WriteTuple(ctx, UserTuple(userId), ADMIN_RELATION, PlatformTuple(platformId))
}

func (a *Authorizer) LinkTenantToPlatform(ctx context.Context, tenantId, platformId string) error {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.LinkTenantToPlatform")
	defer span.End()

	return a.client.WriteTuple(ctx, PlatformTuple(platformId), PLATFORM_RELATION, TenantTuple(tenantId))
}

// MirrorMemberships writes the missing role tuples for a user. Tuples
// are only added, never removed, a revoked membership goes through
// RemoveTenantRole at revocation time.
func (a *Authorizer) MirrorMemberships(ctx context.Context, userId string, memberships []types.Membership) error {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.MirrorMemberships")
	defer span.End()

	var missing []openfga.Tuple
	for _, m := range memberships {
		relation, err := RelationForRole(m.Role)
		if err != nil {
			a.logger.Errorf("skipping membership %s: %s", m.ID, err)
			continue
		}
		ok, err := a.client.Check(ctx, UserTuple(userId), relation, TenantTuple(m.TenantID))
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, *openfga.NewTuple(UserTuple(userId), relation, TenantTuple(m.TenantID)))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return a.client.WriteTuples(ctx, missing...)
}

func (a *Authorizer) CheckTenantAccess(ctx context.Context, tenantId, userId, relation string) (bool, error) {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.CheckTenantAccess")
	defer span.End()

	return a.Check(ctx, UserTuple(userId), relation, TenantTuple(tenantId))
}

func (a *Authorizer) DeleteTenant(ctx context.Context, tenantId string) error {
	ctx, span := a.tracer.Start(ctx, "authorization.Authorizer.DeleteTenant")
	defer span.End()

	cToken := ""
	for {
		r, err := a.client.ReadTuples(ctx, "", "", TenantTuple(tenantId), cToken)
		if err != nil {
			a.logger.Errorf("error when retrieving tuples: %s", err)
			return err
		}
		if len(r.Tuples) == 0 {
			break
		}
		ts := make([]openfga.Tuple, len(r.Tuples))
		for i, t := range r.Tuples {
			ts[i] = *openfga.NewTuple(t.Key.User, t.Key.Relation, t.Key.Object)
		}
		if err := a.client.DeleteTuples(ctx, ts...); err != nil {
			a.logger.Errorf("error when deleting tuples %v: %s", ts, err)
			return err
		}
		if r.ContinuationToken == "" {
			break
		}
		cToken = r.ContinuationToken
	}
	return nil
}

func NewAuthorizer(client AuthzClientInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Authorizer {
	authorizer := new(Authorizer)
	authorizer.client = client
	authorizer.tracer = tracer
	authorizer.monitor = monitor
	authorizer.logger = logger

	return authorizer
}
