package common_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/noah-isme/backend-invoice/internal/common"
)

func TestWriteErrorUsesAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	err := fmt.Errorf("wrap: %w", common.NotFound("INVOICE_NOT_FOUND", "invoice not found"))
	common.WriteError(rr, err)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "INVOICE_NOT_FOUND" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, errors.New("pq: password authentication failed"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := rr.Body.String(); got == "" || strings.Contains(got, "password") {
		t.Fatalf("internal error leaked: %s", got)
	}
}
