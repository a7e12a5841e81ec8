// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package webhooks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ory/hydra/v2/oauth2"

	"github.com/canonical/session-service/internal/logging"
	"github.com/canonical/session-service/internal/monitoring"
	"github.com/canonical/session-service/internal/storage"
	"github.com/canonical/session-service/internal/tracing"
	"github.com/canonical/session-service/internal/types"
)

type Service struct {
	storage         StorageInterface
	authz           AuthorizerInterface
	selfServiceOrgs bool

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewService(
	storage StorageInterface,
	authz AuthorizerInterface,
	selfServiceOrgs bool,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		storage:         storage,
		authz:           authz,
		selfServiceOrgs: selfServiceOrgs,
		tracer:          tracer,
		monitor:         monitor,
		logger:          logger,
	}
}

// HandleRegistration runs after Kratos persists a new identity. It
// creates the initial profile and, for self-service signups, a
// personal tenant owned by the new identity. Kratos retries the hook,
// duplicate writes are treated as already done.
func (s *Service) HandleRegistration(ctx context.Context, identityID, email, name string) error {
	ctx, span := s.tracer.Start(ctx, "webhooks.Service.HandleRegistration")
	defer span.End()

	s.logger.Debugf("handling registration for identity %s with email %s", identityID, email)

	if identityID == "" || email == "" {
		return fmt.Errorf("identity ID or email is empty")
	}

	profile := &types.Profile{
		ID:          identityID,
		DisplayName: displayName(name, email),
		GlobalRole:  types.GlobalRoleMember,
	}
	if _, err := s.storage.CreateProfile(ctx, profile); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("failed to create profile: %w", err)
		}
	}

	if !s.selfServiceOrgs {
		return nil
	}

	tenant := &types.Tenant{
		Name: fmt.Sprintf("%s's Org", email),
	}
	newTenant, err := s.storage.CreateTenant(ctx, tenant)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if _, err := s.storage.AddMember(ctx, newTenant.ID, identityID, types.TenantRoleOwner); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("failed to add member: %w", err)
		}
	}

	if err := s.authz.AssignTenantRole(ctx, newTenant.ID, identityID, types.TenantRoleOwner); err != nil {
		return fmt.Errorf("failed to assign tenant owner in authz: %w", err)
	}

	s.logger.Infof("provisioned tenant %s for identity %s", newTenant.ID, identityID)
	return nil
}

// HandleTokenHook enriches Hydra-issued tokens with the subject's
// tenant memberships so downstream services can authorize without a
// round-trip.
func (s *Service) HandleTokenHook(ctx context.Context, req *oauth2.TokenHookRequest) (*TokenHookResponse, error) {
	ctx, span := s.tracer.Start(ctx, "webhooks.Service.HandleTokenHook")
	defer span.End()

	s.logger.Debugf("handling token hook request")

	if req == nil || req.Session == nil {
		return nil, fmt.Errorf("token hook request carries no session")
	}
	subject := req.Session.GetSubject()
	if subject == "" {
		return nil, fmt.Errorf("token hook session carries no subject")
	}

	s.logger.Debugf("enriching token claims for subject %s", subject)

	memberships, err := s.storage.ListMemberships(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	resp := &TokenHookResponse{
		Session: TokenHookSession{
			AccessToken: map[string]interface{}{},
			IDToken:     map[string]interface{}{},
		},
	}

	if len(memberships) == 0 {
		return resp, nil
	}

	tenantIDs := make([]string, len(memberships))
	roles := make(map[string]string, len(memberships))
	for i, m := range memberships {
		tenantIDs[i] = m.TenantID
		roles[m.TenantID] = string(m.Role)
	}

	for _, claims := range []map[string]interface{}{resp.Session.AccessToken, resp.Session.IDToken} {
		claims["tenants"] = tenantIDs
		claims["tenant_roles"] = roles
	}
	return resp, nil
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return "User"
}
