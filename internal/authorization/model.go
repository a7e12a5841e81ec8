// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"encoding/json"
	"fmt"

	fga "github.com/openfga/go-sdk"
	"github.com/openfga/language/pkg/go/transformer"
)

const v0Schema = `model
  schema 1.1

type user

type platform
  relations
    define admin: [user]

type tenant
  relations
    define platform: [platform]
    define owner: [user]
    define manager: [user]
    define operator: [user]
    define viewer: [user]
    define member: [user]
    define can_view: owner or manager or operator or viewer or member or admin from platform
    define can_edit: owner or manager or operator or member or admin from platform
    define can_create: owner or manager or admin from platform
    define can_delete: owner or admin from platform
`

type AuthorizationModelProvider struct {
	version string
}

func (p *AuthorizationModelProvider) GetModel() *fga.AuthorizationModel {
	switch p.version {
	case "v0":
		return mustParseModel(v0Schema)
	default:
		panic(fmt.Sprintf("unknown authorization model version %q", p.version))
	}
}

func mustParseModel(schema string) *fga.AuthorizationModel {
	j, err := transformer.TransformDSLToJSON(schema)
	if err != nil {
		panic(fmt.Sprintf("invalid authorization model schema: %s", err))
	}

	model := new(fga.AuthorizationModel)
	if err := json.Unmarshal([]byte(j), model); err != nil {
		panic(fmt.Sprintf("invalid authorization model json: %s", err))
	}
	return model
}

func NewAuthorizationModelProvider(version string) *AuthorizationModelProvider {
	p := new(AuthorizationModelProvider)
	p.version = version

	return p
}
