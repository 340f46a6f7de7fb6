package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-invoice/internal/auth"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

type stubStore struct {
	lastInsert db.InsertAuditLogParams
	called     bool
}

func (s *stubStore) InsertAuditLog(_ context.Context, arg db.InsertAuditLogParams) error {
	s.called = true
	s.lastInsert = arg
	return nil
}

func (s *stubStore) ListAuditLogs(context.Context, db.ListAuditLogsParams) ([]db.AuditLog, error) {
	return nil, nil
}

func TestServiceRecord(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true, SamplingRate: 1}
	companyID := uuid.New()

	req := httptest.NewRequest(http.MethodPut, "https://api.test/api/v1/settings/invoice?dry=1", nil)
	req.Header.Set("User-Agent", "tester")
	req.Header.Set("X-Request-ID", "req-123")
	req.RemoteAddr = "10.0.0.2:54321"
	ctx := tenant.With(req.Context(), companyID.String())
	ctx = obs.WithRoutePattern(ctx, "/api/v1/settings/invoice")
	req = req.WithContext(ctx)

	if err := svc.Record(req.Context(), Actor{Kind: ActorKindClient, ID: "client-1"}, "", "", "", req, http.StatusOK, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !store.called {
		t.Fatal("expected store to be called")
	}
	got := store.lastInsert
	if got.ActorKind != string(ActorKindClient) || got.ActorID.String != "client-1" {
		t.Fatalf("unexpected actor: %s/%+v", got.ActorKind, got.ActorID)
	}
	if !got.CompanyID.Valid || uuid.UUID(got.CompanyID.Bytes) != companyID {
		t.Fatalf("expected company to be stored, got %+v", got.CompanyID)
	}
	if got.Action != "PUT /api/v1/settings/invoice" {
		t.Fatalf("unexpected action: %s", got.Action)
	}
	if got.ResourceType != "settings.invoice" {
		t.Fatalf("unexpected resource type: %s", got.ResourceType)
	}
	if !got.IP.Valid || got.IP.String != "10.0.0.2" {
		t.Fatalf("expected ip capture, got %+v", got.IP)
	}
	if !got.RequestID.Valid || got.RequestID.String != "req-123" {
		t.Fatalf("expected request id, got %+v", got.RequestID)
	}
	var meta map[string]string
	if err := json.Unmarshal(got.Metadata, &meta); err != nil {
		t.Fatalf("metadata json: %v", err)
	}
	if meta["query"] != "dry=1" {
		t.Fatalf("unexpected metadata query: %s", meta["query"])
	}
}

func TestServiceRecordDisabled(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: false}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := svc.Record(req.Context(), Actor{}, "", "", "", req, http.StatusOK, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.called {
		t.Fatal("expected no insert when disabled")
	}
}

func TestMiddlewareRecordsPrincipalAndStatus(t *testing.T) {
	store := &stubStore{}
	rec := HTTPRecorder{Service: &Service{Store: store, Enabled: true}}
	r := chi.NewRouter()
	r.With(rec.Middleware(HTTPConfig{Action: "invoice.status", ResourceType: "invoice", ResourceIDParam: "id"})).
		Patch("/invoices/{id}/status", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})

	req := httptest.NewRequest(http.MethodPatch, "/invoices/abc/status", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{ClientID: "client-9", Role: auth.RoleCompany}))
	r.ServeHTTP(httptest.NewRecorder(), req)

	if !store.called {
		t.Fatal("expected an audit entry")
	}
	if store.lastInsert.Status != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", store.lastInsert.Status)
	}
	if store.lastInsert.ResourceID.String != "abc" || store.lastInsert.Action != "invoice.status" {
		t.Fatalf("unexpected entry: %+v", store.lastInsert)
	}
	if store.lastInsert.ActorID.String != "client-9" {
		t.Fatalf("unexpected actor: %+v", store.lastInsert.ActorID)
	}
	if store.lastInsert.CompanyID.Valid {
		t.Fatal("no tenant in context, company must be null")
	}
}

func TestMiddlewareTakesCreatedIDFromLocation(t *testing.T) {
	store := &stubStore{}
	rec := HTTPRecorder{Service: &Service{Store: store, Enabled: true, SamplingRate: 1}}
	r := chi.NewRouter()
	r.With(rec.Middleware(HTTPConfig{Action: "invoice.create", ResourceType: "invoice", ResourceIDParam: "id"})).
		Post("/invoices", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Location", "/api/v1/invoices/6b0e1d9c-7a35-4f0e-9d2a-0c4f1b2e3a4d")
			w.WriteHeader(http.StatusCreated)
		})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/invoices", nil))

	if store.lastInsert.ResourceID.String != "6b0e1d9c-7a35-4f0e-9d2a-0c4f1b2e3a4d" {
		t.Fatalf("expected id from Location, got %+v", store.lastInsert.ResourceID)
	}
}

func TestMiddlewareDisabledServicePassesThrough(t *testing.T) {
	store := &stubStore{}
	rec := HTTPRecorder{Service: &Service{Store: store}}
	called := false
	h := rec.Middleware(HTTPConfig{Action: "settings.update"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/settings/invoice", nil))
	if !called || store.called {
		t.Fatalf("expected handler only, called=%v audited=%v", called, store.called)
	}
}
