// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package webhooks

type KratosIdentity struct {
	ID     string       `json:"id"`
	Traits KratosTraits `json:"traits"`
}

type KratosTraits struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// TokenHookResponse is the shape Hydra expects back from its token
// hook webhook: extra claims keyed per token type.
type TokenHookResponse struct {
	Session TokenHookSession `json:"session"`
}

type TokenHookSession struct {
	AccessToken map[string]interface{} `json:"access_token"`
	IDToken     map[string]interface{} `json:"id_token"`
}
