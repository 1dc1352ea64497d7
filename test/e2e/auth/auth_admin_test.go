package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type identityResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Active     bool   `json:"active"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

func createIdentity(t *testing.T, srv *testServer, adminToken, email, password, role string) identityResponse {
	t.Helper()

	var created identityResponse
	status := postJSON(t, srv.URL+"/v1/admin/identities", adminToken,
		map[string]string{"email": email, "password": password, "role": role}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	return created
}

func TestAdmin_CreateAndFetchIdentity(t *testing.T) {
	srv := setupAuthServer(t)
	admin := login(t, srv, adminEmail, adminPassword)

	created := createIdentity(t, srv, admin.AccessToken, "viewer@example.com", "Viewer123!", "viewer")
	require.Equal(t, "viewer@example.com", created.Email)
	require.Equal(t, "viewer", created.Role)
	require.True(t, created.Active)
	require.False(t, created.MFAEnabled)

	var fetched identityResponse
	status := doJSON(t, http.MethodGet, srv.URL+"/v1/admin/identities/"+created.ID, admin.AccessToken, nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, created.ID, fetched.ID)

	// The new account can log in.
	login(t, srv, "viewer@example.com", "Viewer123!")
}

func TestAdmin_NonAdminForbidden(t *testing.T) {
	srv := setupAuthServer(t)
	admin := login(t, srv, adminEmail, adminPassword)

	createIdentity(t, srv, admin.AccessToken, "viewer@example.com", "Viewer123!", "viewer")
	viewer := login(t, srv, "viewer@example.com", "Viewer123!")

	var errResp errorResponse
	status := postJSON(t, srv.URL+"/v1/admin/identities", viewer.AccessToken,
		map[string]string{"email": "other@example.com", "password": "Other123!", "role": "viewer"}, &errResp)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "forbidden", errResp.Error)
}

func TestAdmin_AnonymousUnauthorized(t *testing.T) {
	srv := setupAuthServer(t)

	status := postJSON(t, srv.URL+"/v1/admin/identities", "",
		map[string]string{"email": "x@example.com", "password": "X123!abc", "role": "viewer"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestAdmin_DeactivationBlocksLoginAndRefresh(t *testing.T) {
	srv := setupAuthServer(t)
	admin := login(t, srv, adminEmail, adminPassword)

	created := createIdentity(t, srv, admin.AccessToken, "operator@example.com", "Operator123!", "operator")
	operator := login(t, srv, "operator@example.com", "Operator123!")

	status := doJSON(t, http.MethodPut, srv.URL+"/v1/admin/identities/"+created.ID+"/active",
		admin.AccessToken, map[string]bool{"active": false}, nil)
	require.Equal(t, http.StatusOK, status)

	// Fresh logins fail indistinguishably from bad credentials.
	var errResp errorResponse
	status = postJSON(t, srv.URL+"/v1/auth/login", "",
		loginBody{Email: "operator@example.com", Password: "Operator123!"}, &errResp)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "invalid_credentials", errResp.Error)

	// Refresh re-checks the active flag.
	status = postJSON(t, srv.URL+"/v1/auth/refresh", "",
		map[string]string{"refresh_token": operator.RefreshToken}, &errResp)
	require.Equal(t, http.StatusUnauthorized, status)

	// Reactivation restores access.
	status = doJSON(t, http.MethodPut, srv.URL+"/v1/admin/identities/"+created.ID+"/active",
		admin.AccessToken, map[string]bool{"active": true}, nil)
	require.Equal(t, http.StatusOK, status)
	login(t, srv, "operator@example.com", "Operator123!")
}

func TestAdmin_DuplicateEmailConflict(t *testing.T) {
	srv := setupAuthServer(t)
	admin := login(t, srv, adminEmail, adminPassword)

	createIdentity(t, srv, admin.AccessToken, "dup@example.com", "Dup123!abc", "viewer")

	var errResp errorResponse
	status := postJSON(t, srv.URL+"/v1/admin/identities", admin.AccessToken,
		map[string]string{"email": "DUP@example.com", "password": "Dup123!abc", "role": "viewer"}, &errResp)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "email_taken", errResp.Error)
}
