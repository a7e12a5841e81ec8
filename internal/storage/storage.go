// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/canonical/session-service/internal/db"
	"github.com/canonical/session-service/internal/logging"
	"github.com/canonical/session-service/internal/monitoring"
	"github.com/canonical/session-service/internal/tracing"
	"github.com/canonical/session-service/internal/types"
)

var _ StorageInterface = (*Storage)(nil)

type Storage struct {
	db db.DBClientInterface

	logger  logging.LoggerInterface
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
}

func NewStorage(c db.DBClientInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Storage {
	s := new(Storage)

	s.db = c

	s.logger = logger
	s.tracer = tracer
	s.monitor = monitor

	return s
}

func (s *Storage) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetProfile")
	defer span.End()

	var p types.Profile
	err := s.db.Statement(ctx).
		Select("id", "display_name", "avatar_url", "global_role", "created_at", "updated_at").
		From("profiles").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.GlobalRole, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

func (s *Storage) CreateProfile(ctx context.Context, p *types.Profile) (*types.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateProfile")
	defer span.End()

	var created types.Profile
	err := s.db.Statement(ctx).
		Insert("profiles").
		Columns("id", "display_name", "avatar_url", "global_role").
		Values(p.ID, p.DisplayName, p.AvatarURL, p.GlobalRole).
		Suffix("RETURNING id, display_name, avatar_url, global_role, created_at, updated_at").
		QueryRowContext(ctx).
		Scan(&created.ID, &created.DisplayName, &created.AvatarURL, &created.GlobalRole, &created.CreatedAt, &created.UpdatedAt)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	return &created, nil
}

// UpdateProfile updates the fields named in paths, PATCH style. Unknown
// paths are ignored.
func (s *Storage) UpdateProfile(ctx context.Context, p *types.Profile, paths []string) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateProfile")
	defer span.End()

	updateMap := make(map[string]interface{})
	for _, path := range paths {
		switch path {
		case "display_name":
			updateMap["display_name"] = p.DisplayName
		case "avatar_url":
			updateMap["avatar_url"] = p.AvatarURL
		case "global_role":
			updateMap["global_role"] = p.GlobalRole
		}
	}

	if len(updateMap) == 0 {
		return nil
	}
	updateMap["updated_at"] = sq.Expr("now()")

	_, err := s.db.Statement(ctx).
		Update("profiles").
		SetMap(updateMap).
		Where(sq.Eq{"id": p.ID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

func (s *Storage) UpdateProfileRole(ctx context.Context, id string, role types.GlobalRole) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateProfileRole")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("profiles").
		Set("global_role", role).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to update profile role: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListMemberships returns the identity's memberships joined with their
// tenants, oldest membership first. The ordering is load-bearing: the
// first row is the default active tenant on session establishment.
func (s *Storage) ListMemberships(ctx context.Context, identityID string) ([]*types.Membership, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListMemberships")
	defer span.End()

	query := s.db.Statement(ctx).
		Select(
			"m.id", "m.tenant_id", "m.kratos_identity_id", "m.role", "m.created_at",
			"t.id", "t.name", "t.plan_tier", "t.status", "t.created_at",
		).
		From("memberships m").
		Join("tenants t ON t.id = m.tenant_id").
		Where(sq.Eq{"m.kratos_identity_id": identityID}).
		OrderBy("m.created_at ASC")

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*types.Membership
	for rows.Next() {
		var m types.Membership
		var t types.Tenant
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.KratosIdentityID, &m.Role, &m.CreatedAt,
			&t.ID, &t.Name, &t.PlanTier, &t.Status, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		m.Tenant = &t
		memberships = append(memberships, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return memberships, nil
}

func (s *Storage) AddMember(ctx context.Context, tenantID, identityID string, role types.TenantRole) (string, error) {
	ctx, span := s.tracer.Start(ctx, "storage.AddMember")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate membership ID: %w", err)
	}

	_, err = s.db.Statement(ctx).
		Insert("memberships").
		Columns("id", "tenant_id", "kratos_identity_id", "role").
		Values(id.String(), tenantID, identityID, role).
		ExecContext(ctx)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return "", ErrDuplicateKey
		}
		if IsForeignKeyViolation(err) {
			return "", ErrForeignKeyViolation
		}
		return "", fmt.Errorf("failed to add member: %w", err)
	}

	return id.String(), nil
}

func (s *Storage) GetTenantByID(ctx context.Context, id string) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetTenantByID")
	defer span.End()

	var t types.Tenant
	err := s.db.Statement(ctx).
		Select("id", "name", "plan_tier", "status", "created_at").
		From("tenants").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&t.ID, &t.Name, &t.PlanTier, &t.Status, &t.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &t, nil
}

func (s *Storage) ListTenants(ctx context.Context) ([]*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListTenants")
	defer span.End()

	query := s.db.Statement(ctx).
		Select("id", "name", "plan_tier", "status", "created_at").
		From("tenants").
		OrderBy("created_at ASC")

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*types.Tenant
	for rows.Next() {
		var t types.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.PlanTier, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tenants, nil
}

func (s *Storage) CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateTenant")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate tenant ID: %w", err)
	}

	status := t.Status
	if status == "" {
		status = types.TenantStatusTrial
	}

	var created types.Tenant
	err = s.db.Statement(ctx).
		Insert("tenants").
		Columns("id", "name", "plan_tier", "status").
		Values(id.String(), t.Name, t.PlanTier, status).
		Suffix("RETURNING id, name, plan_tier, status, created_at").
		QueryRowContext(ctx).
		Scan(&created.ID, &created.Name, &created.PlanTier, &created.Status, &created.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to insert tenant: %w", err)
	}

	return &created, nil
}
