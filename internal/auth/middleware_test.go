package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

func TestRequireAuthPopulatesContext(t *testing.T) {
	fake, _ := newFakeClients(t, "acme", "s3cret", "company", true)
	svc := newTestService(t, fake)
	companyID := uuid.NewString()
	token, _, err := svc.signAccessToken(Principal{ClientID: "acme", CompanyID: companyID, Role: RoleAdmin})
	require.NoError(t, err)

	var seenTenant, seenSubject string
	handler := Middleware{Service: svc}.RequireAuth(RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTenant, _ = tenant.From(r.Context())
		seenSubject, _ = common.Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, companyID, seenTenant)
	require.Equal(t, "acme", seenSubject)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	fake, _ := newFakeClients(t, "acme", "s3cret", "company", true)
	handler := Middleware{Service: newTestService(t, fake)}.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	fake, _ := newFakeClients(t, "acme", "s3cret", "company", true)
	svc := newTestService(t, fake)
	token, _, err := svc.signAccessToken(Principal{ClientID: "acme", CompanyID: uuid.NewString(), Role: RoleCounterparty})
	require.NoError(t, err)

	handler := Middleware{Service: svc}.RequireAuth(RequireRole(RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTokenHandler(t *testing.T) {
	fake, _ := newFakeClients(t, "acme", "s3cret", "company", true)
	h := &Handler{Service: newTestService(t, fake)}

	rec := httptest.NewRecorder()
	h.Token(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
		strings.NewReader(`{"client_id":"acme","client_secret":"s3cret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data TokenResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)
	require.Equal(t, RoleCompany, body.Data.Role)

	rec = httptest.NewRecorder()
	h.Token(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{"client_id":"acme"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
