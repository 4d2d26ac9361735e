package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"knkt-backend/pkg/auth"
)

func loggedFields(t *testing.T, logs *observer.ObservedLogs) map[string]zap.Field {
	t.Helper()
	entries := logs.All()
	require.Len(t, entries, 1)
	fields := make(map[string]zap.Field, len(entries[0].Context))
	for _, f := range entries[0].Context {
		fields[f.Key] = f
	}
	return fields
}

func TestLoggerRecordsAuthenticatedUID(t *testing.T) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: "test-secret",
		Issuer:    "knkt-backend",
		Audience:  "knkt-api",
	})
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	handler := Logger(zap.New(core))(
		Authenticate(validator, zap.NewNop())(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})))

	token, err := validator.IssueToken("alice", "alice@example.com", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	fields := loggedFields(t, logs)
	require.Contains(t, fields, "uid")
	assert.Equal(t, "alice", fields["uid"].String)
	assert.Equal(t, "/api/v1/matches", fields["path"].String)
}

func TestLoggerOmitsUIDWhenUnauthenticated(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := Logger(zap.New(core))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	fields := loggedFields(t, logs)
	assert.NotContains(t, fields, "uid")
	assert.Equal(t, int64(http.StatusOK), fields["status"].Integer)
}
