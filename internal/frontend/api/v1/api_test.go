package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sourcerer-app/sourcerer/internal/llm"
	"github.com/sourcerer-app/sourcerer/internal/settings"
)

type testServer struct {
	store *settings.Store
	mux   *chi.Mux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := settings.New(t.TempDir())
	handler := New(store, llm.NewProbe(2*time.Second))
	mux := chi.NewMux()
	mux.Route("/api/v1", func(r chi.Router) {
		handler.ConfigureRoutes(r)
	})
	return &testServer{store: store, mux: mux}
}

func (ts *testServer) request(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	return ts.requestRaw(t, method, target, reader)
}

func (ts *testServer) requestRaw(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)
	return w
}

// parse decodes the response envelope into data when data is non-nil
// and returns the envelope error, which is nil on success responses.
func (ts *testServer) parse(t *testing.T, w *httptest.ResponseRecorder, data any) *Error {
	t.Helper()
	var resp struct {
		Data  json.RawMessage `json:"data"`
		Error *Error          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	if data != nil && len(resp.Data) > 0 && string(resp.Data) != "null" {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp.Error
}

func (ts *testServer) createCustomProvider(t *testing.T, id, key string) {
	t.Helper()
	rec := settings.ProviderRecord{
		ID:            id,
		Type:          settings.TypeCustom,
		BaseURL:       "https://" + id + ".example.com/v1",
		PayloadSchema: llm.SchemaOpenAIChat,
	}
	err := ts.store.SetProvider(context.Background(), rec, settings.Credential{APIKey: key})
	require.NoError(t, err)
}
