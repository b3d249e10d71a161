package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantacontratti/backend/internal/models"
)

type fakeVerifier struct {
	user *models.User
}

func (f *fakeVerifier) VerifyToken(_ context.Context, token string) (*models.User, error) {
	if f.user != nil && token == "good-token" {
		return f.user, nil
	}
	return nil, errors.New("invalid token")
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/leagues", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", BearerToken(r))

	// WebSocket upgrades cannot set headers from the browser.
	r = httptest.NewRequest(http.MethodGet, "/ws?token=ws-token", nil)
	assert.Equal(t, "ws-token", BearerToken(r))

	r = httptest.NewRequest(http.MethodGet, "/api/leagues", nil)
	assert.Equal(t, "", BearerToken(r))
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(&fakeVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leagues", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
}

func TestAuthRejectsBadToken(t *testing.T) {
	handler := Auth(&fakeVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/leagues", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthStoresUserInContext(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "gigi"}
	var got *models.User
	handler := Auth(&fakeVerifier{user: user})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/leagues", nil)
	r.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
}

func TestRespondEnvelopes(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondData(rec, http.StatusCreated, map[string]string{"name": "Lega"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)

	rec = httptest.NewRecorder()
	RespondError(rec, http.StatusConflict, "Giocatore già sotto contratto")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "Giocatore già sotto contratto", env.Message)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	var p payload
	require.NoError(t, DecodeJSON(r, &p))
	assert.Equal(t, "ok", p.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","extra":1}`))
	assert.Error(t, DecodeJSON(r, &p))
}
