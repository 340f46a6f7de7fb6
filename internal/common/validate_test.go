package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string   `json:"name" validate:"required"`
	Mode  string   `json:"mode" validate:"oneof=a b"`
	Items []string `json:"items" validate:"min=1,dive,required"`
}

func TestDecodeJSONValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":"c","items":[]}`))
	var dst sampleRequest
	err := DecodeJSON(req, &dst)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)

	fields, ok := appErr.Details.([]FieldError)
	require.True(t, ok)
	names := map[string]string{}
	for _, f := range fields {
		names[f.Field] = f.Rule
	}
	require.Equal(t, "required", names["name"])
	require.Equal(t, "oneof", names["mode"])
	require.Equal(t, "min", names["items"])
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	var dst sampleRequest
	err := DecodeJSON(req, &dst)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "BAD_REQUEST", appErr.Code)
}

func TestDecodeJSONAccepts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","mode":"a","items":["1"]}`))
	var dst sampleRequest
	require.NoError(t, DecodeJSON(req, &dst))
	require.Equal(t, "x", dst.Name)
}
