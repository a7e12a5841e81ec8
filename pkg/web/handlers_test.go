// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	"github.com/canonical/session-service/internal/types"
	"github.com/canonical/session-service/pkg/authentication"
	"github.com/canonical/session-service/pkg/policy"
	"github.com/canonical/session-service/pkg/session"
)

//go:generate mockgen -build_flags=--mod=mod -package web -destination ./mock_interfaces.go -source=./interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package web -destination ./mock_logger.go -source=../../internal/logging/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package web -destination ./mock_monitor.go -source=../../internal/monitoring/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package web -destination ./mock_tracing.go -source=../../internal/tracing/interfaces.go

func setupAPI(t *testing.T, loginRateLimit float64, loginRateBurst int) (*MockControllerInterface, *MockStorageInterface, *API) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockController := NewMockControllerInterface(ctrl)
	mockStorage := NewMockStorageInterface(ctrl)
	mockTracer := NewMockTracingInterface(ctrl)
	mockMonitor := NewMockMonitorInterface(ctrl)
	mockLogger := NewMockLoggerInterface(ctrl)

	mockTracer.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
			return ctx, trace.SpanFromContext(ctx)
		}).AnyTimes()
	mockLogger.EXPECT().Errorf(gomock.Any(), gomock.Any()).AnyTimes()

	api := NewAPI(mockController, mockStorage, loginRateLimit, loginRateBurst, mockTracer, mockMonitor, mockLogger)

	return mockController, mockStorage, api
}

func serve(api *API, req *http.Request) *httptest.ResponseRecorder {
	mux := chi.NewMux()
	api.RegisterEndpoints(mux)
	api.RegisterAdminEndpoints(mux, func(next http.Handler) http.Handler { return next })

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestAPI_Login(t *testing.T) {
	testCases := []struct {
		name           string
		body           interface{}
		setupMocks     func(*MockControllerInterface)
		expectedStatus int
	}{
		{
			name: "success",
			body: LoginRequest{Email: "ana@example.com", Password: "secret"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SignIn(gomock.Any(), "ana@example.com", "secret").Return(types.SignInSuccess, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "invalid credentials",
			body: LoginRequest{Email: "ana@example.com", Password: "wrong"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SignIn(gomock.Any(), "ana@example.com", "wrong").Return(types.SignInInvalidCredentials, nil)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "remote rate limit",
			body: LoginRequest{Email: "ana@example.com", Password: "secret"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SignIn(gomock.Any(), "ana@example.com", "secret").Return(types.SignInRateLimited, nil)
			},
			expectedStatus: http.StatusTooManyRequests,
		},
		{
			name:           "missing email",
			body:           LoginRequest{Password: "secret"},
			setupMocks:     func(mockController *MockControllerInterface) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			body:           nil,
			setupMocks:     func(mockController *MockControllerInterface) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "identity provider unavailable",
			body: LoginRequest{Email: "ana@example.com", Password: "secret"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SignIn(gomock.Any(), "ana@example.com", "secret").Return(types.SignInUnknown, errors.New("kratos down"))
			},
			expectedStatus: http.StatusBadGateway,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockController, _, api := setupAPI(t, 5, 10)
			tc.setupMocks(mockController)

			var body *bytes.Buffer
			if tc.body == nil {
				body = bytes.NewBufferString("not-json")
			} else {
				body = jsonBody(t, tc.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v0/auth/login", body)
			w := serve(api, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("expected status %d, got %d. Body: %s", tc.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestAPI_LoginRateLimited(t *testing.T) {
	// A zero limiter rejects every attempt before the controller is hit.
	_, _, api := setupAPI(t, 0, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v0/auth/login",
		jsonBody(t, LoginRequest{Email: "ana@example.com", Password: "secret"}))
	w := serve(api, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}

	var resp OutcomeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Outcome != types.SignInRateLimited {
		t.Errorf("expected outcome %q, got %q", types.SignInRateLimited, resp.Outcome)
	}
}

func TestAPI_Register(t *testing.T) {
	testCases := []struct {
		name           string
		body           RegisterRequest
		setupMocks     func(*MockControllerInterface)
		expectedStatus int
	}{
		{
			name: "success with name",
			body: RegisterRequest{Email: "ana@example.com", Password: "longenough", Name: "Ana Lima"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SignUp(gomock.Any(), "ana@example.com", "longenough", map[string]any{"name": "Ana Lima"}).
					Return(types.SignInSuccess, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "success without name",
			body: RegisterRequest{Email: "ana@example.com", Password: "longenough"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SignUp(gomock.Any(), "ana@example.com", "longenough", map[string]any{}).
					Return(types.SignInSuccess, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "password too short",
			body:           RegisterRequest{Email: "ana@example.com", Password: "short"},
			setupMocks:     func(mockController *MockControllerInterface) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockController, _, api := setupAPI(t, 5, 10)
			tc.setupMocks(mockController)

			req := httptest.NewRequest(http.MethodPost, "/api/v0/auth/register", jsonBody(t, tc.body))
			w := serve(api, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("expected status %d, got %d. Body: %s", tc.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestAPI_Logout(t *testing.T) {
	mockController, _, api := setupAPI(t, 5, 10)
	mockController.EXPECT().SignOut(gomock.Any()).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v0/auth/logout", nil)
	w := serve(api, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestAPI_LogoutRemoteFailure(t *testing.T) {
	mockController, _, api := setupAPI(t, 5, 10)
	mockController.EXPECT().SignOut(gomock.Any()).Return(errors.New("kratos down"))

	req := httptest.NewRequest(http.MethodPost, "/api/v0/auth/logout", nil)
	w := serve(api, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, w.Code)
	}
}

func TestAPI_Refresh(t *testing.T) {
	testCases := []struct {
		name           string
		refreshErr     error
		expectedStatus int
	}{
		{name: "success", refreshErr: nil, expectedStatus: http.StatusOK},
		{name: "expired session", refreshErr: session.ErrNotAuthenticated, expectedStatus: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockController, _, api := setupAPI(t, 5, 10)
			mockController.EXPECT().Refresh(gomock.Any()).Return(tc.refreshErr)

			req := httptest.NewRequest(http.MethodPost, "/api/v0/auth/refresh", nil)
			w := serve(api, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("expected status %d, got %d", tc.expectedStatus, w.Code)
			}
		})
	}
}

func TestAPI_Me(t *testing.T) {
	user := &types.ApplicationUser{
		IdentityID: "user-1",
		Email:      "ana@example.com",
		Profile:    &types.Profile{ID: "user-1", GlobalRole: types.GlobalRoleMember},
	}

	testCases := []struct {
		name           string
		user           *types.ApplicationUser
		expectedStatus int
	}{
		{name: "authenticated", user: user, expectedStatus: http.StatusOK},
		{name: "unauthenticated", user: nil, expectedStatus: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockController, _, api := setupAPI(t, 5, 10)
			mockController.EXPECT().CurrentUser().Return(tc.user)

			req := httptest.NewRequest(http.MethodGet, "/api/v0/me", nil)
			w := serve(api, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("expected status %d, got %d", tc.expectedStatus, w.Code)
			}

			if tc.user != nil {
				var resp MeResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.User == nil || resp.User.IdentityID != tc.user.IdentityID {
					t.Errorf("unexpected user in response: %+v", resp.User)
				}
			}
		})
	}
}

func TestAPI_SwitchTenant(t *testing.T) {
	tenant := &types.Tenant{ID: "tenant-2", Name: "Tenant 2"}
	rescoped := &types.ApplicationUser{
		IdentityID:   "user-1",
		Profile:      &types.Profile{ID: "user-1", GlobalRole: types.GlobalRoleMember},
		ActiveTenant: tenant,
	}

	testCases := []struct {
		name           string
		body           interface{}
		setupMocks     func(*MockControllerInterface)
		expectedStatus int
	}{
		{
			name: "success",
			body: SwitchTenantRequest{TenantID: "tenant-2"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SwitchTenant("tenant-2").Return(nil)
				mockController.EXPECT().CurrentUser().Return(rescoped)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not authenticated",
			body: SwitchTenantRequest{TenantID: "tenant-2"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SwitchTenant("tenant-2").Return(session.ErrNotAuthenticated)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "platform admin has no tenant scope",
			body: SwitchTenantRequest{TenantID: "tenant-2"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SwitchTenant("tenant-2").Return(session.ErrNoTenantScope)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "foreign tenant",
			body: SwitchTenantRequest{TenantID: "tenant-9"},
			setupMocks: func(mockController *MockControllerInterface) {
				mockController.EXPECT().SwitchTenant("tenant-9").Return(session.ErrTenantNotPermitted)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing tenant id",
			body:           SwitchTenantRequest{},
			setupMocks:     func(mockController *MockControllerInterface) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockController, _, api := setupAPI(t, 5, 10)
			tc.setupMocks(mockController)

			req := httptest.NewRequest(http.MethodPost, "/api/v0/me/tenant", jsonBody(t, tc.body))
			w := serve(api, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("expected status %d, got %d. Body: %s", tc.expectedStatus, w.Code, w.Body.String())
			}

			if tc.expectedStatus == http.StatusOK {
				var resp MeResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.User == nil || resp.User.ActiveTenant == nil || resp.User.ActiveTenant.ID != "tenant-2" {
					t.Errorf("expected active tenant tenant-2, got %+v", resp.User)
				}
			}
		})
	}
}

func TestAPI_Capabilities(t *testing.T) {
	tenant := &types.Tenant{ID: "tenant-1", Name: "Tenant 1"}
	owner := &types.ApplicationUser{
		IdentityID: "user-1",
		Profile:    &types.Profile{ID: "user-1", GlobalRole: types.GlobalRoleMember},
		Memberships: []*types.Membership{
			{TenantID: "tenant-1", KratosIdentityID: "user-1", Role: types.TenantRoleOwner, Tenant: tenant},
		},
		ActiveTenant: tenant,
	}

	mockController, _, api := setupAPI(t, 5, 10)
	mockController.EXPECT().CurrentUser().Return(owner)

	req := httptest.NewRequest(http.MethodGet, "/api/v0/me/capabilities", nil)
	w := serve(api, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp CapabilitiesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Capabilities) != 8 {
		t.Errorf("expected owner to hold 8 capabilities, got %d", len(resp.Capabilities))
	}
	if resp.Scope.Kind != policy.ScopeTenant || resp.Scope.TenantID != "tenant-1" {
		t.Errorf("unexpected scope: %+v", resp.Scope)
	}
}

func TestAPI_ListTenants(t *testing.T) {
	tenants := []*types.Tenant{
		{ID: "tenant-1", Name: "Tenant 1"},
		{ID: "tenant-2", Name: "Tenant 2"},
	}
	admin := &types.ApplicationUser{
		IdentityID: "admin-1",
		Profile:    &types.Profile{ID: "admin-1", GlobalRole: types.GlobalRolePlatformAdmin},
	}
	member := &types.ApplicationUser{
		IdentityID: "user-1",
		Profile:    &types.Profile{ID: "user-1", GlobalRole: types.GlobalRoleMember},
	}

	t.Run("platform admin session", func(t *testing.T) {
		mockController, mockStorage, api := setupAPI(t, 5, 10)
		mockController.EXPECT().CurrentUser().Return(admin)
		mockStorage.EXPECT().ListTenants(gomock.Any()).Return(tenants, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v0/tenants", nil)
		w := serve(api, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var resp TenantsResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Tenants) != 2 {
			t.Errorf("expected 2 tenants, got %d", len(resp.Tenants))
		}
	})

	t.Run("verified machine subject", func(t *testing.T) {
		_, mockStorage, api := setupAPI(t, 5, 10)
		mockStorage.EXPECT().ListTenants(gomock.Any()).Return(tenants, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v0/tenants", nil)
		req = req.WithContext(authentication.WithUserID(req.Context(), "svc-account"))
		w := serve(api, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
	})

	t.Run("member denied", func(t *testing.T) {
		mockController, _, api := setupAPI(t, 5, 10)
		mockController.EXPECT().CurrentUser().Return(member)

		req := httptest.NewRequest(http.MethodGet, "/api/v0/tenants", nil)
		w := serve(api, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		mockController, mockStorage, api := setupAPI(t, 5, 10)
		mockController.EXPECT().CurrentUser().Return(admin)
		mockStorage.EXPECT().ListTenants(gomock.Any()).Return(nil, errors.New("storage error"))

		req := httptest.NewRequest(http.MethodGet, "/api/v0/tenants", nil)
		w := serve(api, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}
