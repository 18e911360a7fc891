package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-token-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-token-service/internal/application"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
)

const testAESKeyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) With(fields ...any) domain.Logger                     { return nopLogger{} }

type memoryCache struct {
	entries map[string]*domain.AuthenticatedUserContext
}

func (c *memoryCache) Get(_ context.Context, key string) (*domain.AuthenticatedUserContext, error) {
	if entry, ok := c.entries[key]; ok {
		return entry, nil
	}
	return nil, application.ErrCacheMiss
}

func (c *memoryCache) Set(_ context.Context, key string, value *domain.AuthenticatedUserContext, _ time.Duration) error {
	c.entries[key] = value
	return nil
}

func newHandlerUnderTest(t *testing.T, aesKeyHex string) (http.HandlerFunc, *application.TokenService) {
	t.Helper()
	cfg := &config.Config{Auth: config.AuthConfig{TokenAESKey: aesKeyHex}}
	svc := application.NewTokenService(
		nopLogger{},
		&config.StaticProvider{Config: cfg},
		&memoryCache{entries: make(map[string]*domain.AuthenticatedUserContext)},
		nil,
	)
	return GenerateTokenHandler(svc, nopLogger{}), svc
}

func TestGenerateTokenHandler_Success(t *testing.T) {
	handler, svc := newHandlerUnderTest(t, testAESKeyHex)

	body := `{"company_id":"comp_1","agent_id":"agent_1","user_id":"user_1","expires_in_seconds":3600}`
	req := httptest.NewRequest(http.MethodPost, "/generate-token", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp GenerateTokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)

	// The returned token must decrypt back to the requested identity.
	userCtx, err := svc.ProcessToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "comp_1", userCtx.CompanyID)
	assert.Equal(t, "agent_1", userCtx.AgentID)
	assert.Equal(t, "user_1", userCtx.UserID)
}

func TestGenerateTokenHandler_MethodNotAllowed(t *testing.T) {
	handler, _ := newHandlerUnderTest(t, testAESKeyHex)

	req := httptest.NewRequest(http.MethodGet, "/generate-token", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var er domain.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&er))
	assert.Equal(t, domain.ErrMethodNotAllowed, er.Code)
}

func TestGenerateTokenHandler_MalformedJSON(t *testing.T) {
	handler, _ := newHandlerUnderTest(t, testAESKeyHex)

	req := httptest.NewRequest(http.MethodPost, "/generate-token", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateTokenHandler_MissingFields(t *testing.T) {
	handler, _ := newHandlerUnderTest(t, testAESKeyHex)

	cases := []struct {
		name string
		body string
	}{
		{"missing company_id", `{"agent_id":"a","user_id":"u","expires_in_seconds":60}`},
		{"missing agent_id", `{"company_id":"c","user_id":"u","expires_in_seconds":60}`},
		{"missing user_id", `{"company_id":"c","agent_id":"a","expires_in_seconds":60}`},
		{"zero expiry", `{"company_id":"c","agent_id":"a","user_id":"u","expires_in_seconds":0}`},
		{"negative expiry", `{"company_id":"c","agent_id":"a","user_id":"u","expires_in_seconds":-5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/generate-token", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var er domain.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&er))
			assert.Equal(t, domain.ErrBadRequest, er.Code)
		})
	}
}

func TestGenerateTokenHandler_EncryptionFailure(t *testing.T) {
	// An unconfigured AES key makes issuance fail server-side.
	handler, _ := newHandlerUnderTest(t, "")

	body := `{"company_id":"c","agent_id":"a","user_id":"u","expires_in_seconds":60}`
	req := httptest.NewRequest(http.MethodPost, "/generate-token", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var er domain.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&er))
	assert.Equal(t, domain.ErrInternal, er.Code)
}
