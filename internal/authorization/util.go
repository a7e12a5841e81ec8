// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"fmt"

	"github.com/canonical/session-service/internal/types"
)

const (
	OWNER_RELATION    = "owner"
	MANAGER_RELATION  = "manager"
	OPERATOR_RELATION = "operator"
	VIEWER_RELATION   = "viewer"
	MEMBER_RELATION   = "member"

	PLATFORM_RELATION = "platform"
	ADMIN_RELATION    = "admin"

	CAN_VIEW_PERMISSION   = "can_view"
	CAN_EDIT_PERMISSION   = "can_edit"
	CAN_CREATE_PERMISSION = "can_create"
	CAN_DELETE_PERMISSION = "can_delete"
)

func UserTuple(userId string) string {
	return "user:" + userId
}

func TenantTuple(tenantId string) string {
	return "tenant:" + tenantId
}

func PlatformTuple(platformId string) string {
	return "platform:" + platformId
}

// RelationForRole maps a tenant role to its relation in the store. The
// strings happen to coincide today, the mapping keeps them decoupled.
func RelationForRole(role types.TenantRole) (string, error) {
	switch role {
	case types.TenantRoleOwner:
		return OWNER_RELATION, nil
	case types.TenantRoleManager:
		return MANAGER_RELATION, nil
	case types.TenantRoleOperator:
		return OPERATOR_RELATION, nil
	case types.TenantRoleViewer:
		return VIEWER_RELATION, nil
	case types.TenantRoleMember:
		return MEMBER_RELATION, nil
	default:
		return "", fmt.Errorf("unknown tenant role %q", role)
	}
}
