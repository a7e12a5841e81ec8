// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/canonical/session-service/internal/logging"
	"github.com/canonical/session-service/internal/monitoring"
	"github.com/canonical/session-service/internal/tracing"
	"github.com/canonical/session-service/internal/types"
	"github.com/canonical/session-service/pkg/authentication"
	"github.com/canonical/session-service/pkg/policy"
	"github.com/canonical/session-service/pkg/session"
)

type API struct {
	controller   ControllerInterface
	storage      StorageInterface
	validate     *validator.Validate
	loginLimiter *rate.Limiter

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewAPI(
	controller ControllerInterface,
	storage StorageInterface,
	loginRateLimit float64,
	loginRateBurst int,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *API {
	return &API{
		controller:   controller,
		storage:      storage,
		validate:     validator.New(),
		loginLimiter: rate.NewLimiter(rate.Limit(loginRateLimit), loginRateBurst),
		tracer:       tracer,
		monitor:      monitor,
		logger:       logger,
	}
}

func (a *API) RegisterEndpoints(mux *chi.Mux) {
	mux.Post("/api/v0/auth/login", a.login)
	mux.Post("/api/v0/auth/register", a.register)
	mux.Post("/api/v0/auth/logout", a.logout)
	mux.Post("/api/v0/auth/refresh", a.refresh)
	mux.Get("/api/v0/me", a.me)
	mux.Post("/api/v0/me/tenant", a.switchTenant)
	mux.Get("/api/v0/me/capabilities", a.capabilities)
}

// RegisterAdminEndpoints mounts the platform admin surface behind the
// given authentication middleware.
func (a *API) RegisterAdminEndpoints(mux *chi.Mux, authn func(http.Handler) http.Handler) {
	mux.With(authn).Get("/api/v0/tenants", a.listTenants)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.API.login")
	defer span.End()

	var payload LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	if err := a.validate.Struct(payload); err != nil {
		a.badRequest(w, err.Error())
		return
	}

	if !a.loginLimiter.Allow() {
		a.writeJSON(w, http.StatusTooManyRequests, OutcomeResponse{Outcome: types.SignInRateLimited})
		return
	}

	outcome, err := a.controller.SignIn(ctx, payload.Email, payload.Password)
	if err != nil {
		a.logger.Errorf("sign-in failed: %v", err)
		a.writeError(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	a.writeJSON(w, outcomeStatus(outcome), OutcomeResponse{Outcome: outcome})
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.API.register")
	defer span.End()

	var payload RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	if err := a.validate.Struct(payload); err != nil {
		a.badRequest(w, err.Error())
		return
	}

	metadata := map[string]any{}
	if payload.Name != "" {
		metadata["name"] = payload.Name
	}

	outcome, err := a.controller.SignUp(ctx, payload.Email, payload.Password, metadata)
	if err != nil {
		a.logger.Errorf("sign-up failed: %v", err)
		a.writeError(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	a.writeJSON(w, outcomeStatus(outcome), OutcomeResponse{Outcome: outcome})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.API.logout")
	defer span.End()

	// Local session state is cleared even when the remote sign-out
	// fails, so a failure here is still a signed-out caller.
	if err := a.controller.SignOut(ctx); err != nil {
		a.logger.Errorf("remote sign-out failed: %v", err)
		a.writeError(w, http.StatusBadGateway, "remote sign-out failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.API.refresh")
	defer span.End()

	if err := a.controller.Refresh(ctx); err != nil {
		a.writeError(w, http.StatusUnauthorized, "session refresh failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "web.API.me")
	defer span.End()

	user := a.controller.CurrentUser()
	if user == nil {
		a.writeError(w, http.StatusUnauthorized, "no authenticated session")
		return
	}

	a.writeJSON(w, http.StatusOK, MeResponse{User: user})
}

func (a *API) switchTenant(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "web.API.switchTenant")
	defer span.End()

	var payload SwitchTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	if err := a.validate.Struct(payload); err != nil {
		a.badRequest(w, err.Error())
		return
	}

	if err := a.controller.SwitchTenant(payload.TenantID); err != nil {
		switch {
		case errors.Is(err, session.ErrNotAuthenticated):
			a.writeError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, session.ErrNoTenantScope), errors.Is(err, session.ErrTenantNotPermitted):
			a.writeError(w, http.StatusForbidden, err.Error())
		default:
			a.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	a.writeJSON(w, http.StatusOK, MeResponse{User: a.controller.CurrentUser()})
}

func (a *API) capabilities(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "web.API.capabilities")
	defer span.End()

	user := a.controller.CurrentUser()
	if user == nil {
		a.writeError(w, http.StatusUnauthorized, "no authenticated session")
		return
	}

	a.writeJSON(w, http.StatusOK, CapabilitiesResponse{
		Capabilities: policy.Capabilities(user),
		Scope:        policy.AccessibleScope(user),
	})
}

func (a *API) listTenants(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.API.listTenants")
	defer span.End()

	// A verified machine-to-machine subject or a platform admin
	// session may list tenants, nobody else.
	if _, ok := authentication.GetUserID(ctx); !ok {
		if !policy.Allowed(a.controller.CurrentUser(), policy.CapabilityViewAllTenants) {
			a.writeError(w, http.StatusForbidden, "missing platform capability")
			return
		}
	}

	tenants, err := a.storage.ListTenants(ctx)
	if err != nil {
		a.logger.Errorf("failed to list tenants: %v", err)
		a.writeError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}

	a.writeJSON(w, http.StatusOK, TenantsResponse{Tenants: tenants})
}

func outcomeStatus(outcome types.SignInOutcome) int {
	switch outcome {
	case types.SignInSuccess:
		return http.StatusOK
	case types.SignInInvalidCredentials, types.SignInEmailUnconfirmed:
		return http.StatusUnauthorized
	case types.SignInRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Errorf("failed to encode response: %v", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, ErrorResponse{Status: status, Message: message})
}

func (a *API) badRequest(w http.ResponseWriter, message string) {
	a.writeError(w, http.StatusBadRequest, message)
}
