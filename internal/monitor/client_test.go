package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves both the AAD token endpoint and the Logs query
// endpoint from one httptest server.
type fakeBackend struct {
	tokenCalls int32
	queryBody  queryRequest
	queryFunc  func(w http.ResponseWriter)
}

func (f *fakeBackend) handler(t *testing.T, workspaceID string) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "opaque-test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("POST /v1/workspaces/"+workspaceID+"/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer opaque-test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.queryBody))
		f.queryFunc(w)
	})
	return mux
}

func newTestClient(t *testing.T, backend *fakeBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(backend.handler(t, "ws-123"))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		TenantID:     "tenant",
		ClientID:     "client-id",
		ClientSecret: "secret",
		WorkspaceID:  "ws-123",
		Endpoint:     srv.URL,
		AuthEndpoint: srv.URL,
		Timeout:      5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestQueryDecodesPrimaryTable(t *testing.T) {
	backend := &fakeBackend{queryFunc: func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tables": []map[string]any{{
				"name": "PrimaryResult",
				"columns": []map[string]any{
					{"name": "TimeGenerated", "type": "datetime"},
					{"name": "Computer", "type": "string"},
				},
				"rows": [][]any{
					{"2023-01-01T00:00:00Z", "web-01"},
					{"2023-01-02T00:00:00Z", "web-02"},
				},
			}},
		})
	}}
	client := newTestClient(t, backend)

	result, err := client.Query(context.Background(), "Heartbeat | take 2", 36*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "Heartbeat | take 2", backend.queryBody.Query)
	assert.Equal(t, "P1DT12H", backend.queryBody.Timespan)

	require.Equal(t, []Column{
		{Name: "TimeGenerated", Type: "datetime", Ordinal: 0},
		{Name: "Computer", Type: "string", Ordinal: 1},
	}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "web-01", result.Rows[0]["Computer"])
	assert.Equal(t, "2023-01-02T00:00:00Z", result.Rows[1]["TimeGenerated"])
}

func TestQueryEmptyResultIsNotAnError(t *testing.T) {
	backend := &fakeBackend{queryFunc: func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tables": []any{}})
	}}
	client := newTestClient(t, backend)

	result, err := client.Query(context.Background(), "Heartbeat | take 0", time.Hour)
	require.NoError(t, err)
	assert.Empty(t, result.Columns)
	assert.Empty(t, result.Rows)
}

func TestQueryAPIError(t *testing.T) {
	backend := &fakeBackend{queryFunc: func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    "BadArgumentError",
				"message": "The request had some invalid properties",
			},
		})
	}}
	client := newTestClient(t, backend)

	_, err := client.Query(context.Background(), "bogus |||", time.Hour)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BadArgumentError", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "invalid properties")
}

func TestQueryReusesCachedToken(t *testing.T) {
	backend := &fakeBackend{queryFunc: func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tables": []any{}})
	}}
	client := newTestClient(t, backend)

	for i := 0; i < 3; i++ {
		_, err := client.Query(context.Background(), "Heartbeat", time.Hour)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.tokenCalls))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{WorkspaceID: "ws"})
	require.Error(t, err)

	_, err = NewClient(Config{TenantID: "t", ClientID: "c", ClientSecret: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WorkspaceID")
}
