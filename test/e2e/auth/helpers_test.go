package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/opsdesk/opsdesk/internal/auth/http"
	"github.com/opsdesk/opsdesk/internal/auth/service"
	"github.com/opsdesk/opsdesk/internal/auth/store/drivers/sqlite"
	"github.com/opsdesk/opsdesk/pkg/cryptox"
	"github.com/opsdesk/opsdesk/pkg/jwtx"
	"github.com/opsdesk/opsdesk/pkg/slogx"
	"github.com/opsdesk/opsdesk/pkg/totpx"
)

/*
 * Common constants and helpers for auth service end-to-end tests. The full
 * stack runs in-process: a temp-file sqlite store behind the real services
 * and router, served through httptest.
 */

const (
	testIssuer     = "opsdesk-auth-test"
	testSecret     = "e2e-signing-secret-0123456789abcdef"
	testTOTPIssuer = "OpsDesk"

	adminEmail    = "admin@example.com"
	adminPassword = "Admin123!"
)

// testHasher keeps Argon2id cheap so the suite stays fast; production params
// only change work factors, not behavior.
var testHasher = cryptox.NewHasher(cryptox.Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
})

type testServer struct {
	*httptest.Server

	store *sqlite.Store
}

// setupAuthServer builds the whole service in-process and seeds the admin
// identity. Each call gets its own database and rate limit buckets.
func setupAuthServer(t *testing.T) *testServer {
	t.Helper()

	logger := slogx.New(slogx.Config{
		Service: "opsdesk-auth",
		Version: "e2e",
		Env:     "test",
		Level:   "error",
		Format:  "text",
	})

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	issuer, err := jwtx.NewIssuer([]byte(testSecret), testIssuer)
	require.NoError(t, err)

	totp := totpx.New(testTOTPIssuer, 1)

	authService, err := service.NewAuthService(
		st.Identities(),
		st.AuditEvents(),
		testHasher,
		totp,
		issuer,
		time.Minute,
		time.Hour,
	)
	require.NoError(t, err)

	seeder := &service.SeedService{Identities: st.Identities(), Hasher: testHasher}
	_, err = seeder.EnsureAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	router := httpapi.NewRouter(issuer, "e2e", st, logger)
	router.AuthService = authService
	router.MFAService = &service.MFAService{
		Identities: st.Identities(),
		Audit:      st.AuditEvents(),
		TOTP:       totp,
	}
	router.AdminService = &service.AdminService{
		Identities: st.Identities(),
		Hasher:     testHasher,
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, store: st}
}

// postJSON sends a JSON POST and decodes the response body into out (when out
// is non-nil). Returns the status code.
func postJSON(t *testing.T, url, bearer string, body, out any) int {
	t.Helper()
	return doJSON(t, http.MethodPost, url, bearer, body, out)
}

func doJSON(t *testing.T, method, url, bearer string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

type enrollResponse struct {
	Secret  string `json:"secret"`
	URI     string `json:"uri"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

type loginBody struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	TOTPCode    string `json:"totp_code,omitempty"`
	WithRefresh bool   `json:"with_refresh,omitempty"`
}

// login authenticates and returns the token pair, failing the test on any
// non-200 answer.
func login(t *testing.T, srv *testServer, email, password string) tokenResponse {
	t.Helper()

	var tokens tokenResponse
	status := postJSON(t, srv.URL+"/v1/auth/login", "",
		loginBody{Email: email, Password: password, WithRefresh: true}, &tokens)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, tokens.AccessToken)
	return tokens
}
