package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
)

type sampleBody struct {
	Email string `json:"email" validate:"required,email"`
	Price int64  `json:"diamond_price" validate:"gte=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	var body sampleBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","diamond_price":5}`))
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, int64(5), body.Price)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","diamond_price":-1}`))
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"email": "must be a valid email", "diamond_price": "must be at least 0"}, typed.Details())

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","extra":true}`))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestQueryParsers(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&include=true&supplier_id="+id.String()+"&order=asc", nil)

	limit, err := ParseQueryInt(req, "limit", 50, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, limit)

	include, err := ParseQueryBool(req, "include")
	require.NoError(t, err)
	assert.True(t, include)

	parsed, err := ParseQueryUUID(req, "supplier_id")
	require.NoError(t, err)
	assert.Equal(t, id, *parsed)

	desc, err := ParseSortOrder(req)
	require.NoError(t, err)
	assert.False(t, desc)

	missing, err := ParseQueryUUID(req, "order_id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	bad := httptest.NewRequest(http.MethodGet, "/?limit=500&include=maybe&supplier_id=x&order=up", nil)
	_, err = ParseQueryInt(bad, "limit", 50, 1, 100)
	assert.Error(t, err)
	_, err = ParseQueryBool(bad, "include")
	assert.Error(t, err)
	_, err = ParseQueryUUID(bad, "supplier_id")
	assert.Error(t, err)
	_, err = ParseSortOrder(bad)
	assert.Error(t, err)
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(req, "supplierId")
	assert.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "héllo", SanitizeString("  héllo  ", 0))
	assert.Equal(t, "hé", SanitizeString("héllo", 2))
}
