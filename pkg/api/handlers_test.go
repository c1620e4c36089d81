package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bencodec/pkg/bencode"
	"github.com/ssargent/bencodec/pkg/storage"
)

const testAPIKey = "test-key"

func setupTestServer(t *testing.T, opts ...bencode.Option) (*Server, http.Handler) {
	t.Helper()

	store, err := storage.NewDocumentStore(t.TempDir(), storage.WithDecoderOptions(opts...))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	config := ServerConfig{
		Bind:           "127.0.0.1",
		APIKey:         testAPIKey,
		MaxBodyBytes:   1024,
		DecoderOptions: opts,
	}
	server := NewServer(store, config, NewMetrics(prometheus.NewRegistry()), zerolog.Nop())
	return server, server.Router()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func responseData(t *testing.T, response APIResponse, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(response.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestHandleHealth(t *testing.T) {
	_, h := setupTestServer(t)

	w := doRequest(t, h, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	assert.True(t, response.Success)
	assert.Equal(t, map[string]interface{}{"status": "healthy"}, response.Data)
}

func TestHandleDecode(t *testing.T) {
	_, h := setupTestServer(t)

	t.Run("canonical dictionary", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/v1/decode", []byte("d3:bar4:spam3:fooi42ee"))
		require.Equal(t, http.StatusOK, w.Code)

		var out DecodeResponse
		responseData(t, decodeResponse(t, w), &out)
		assert.Equal(t, "Dictionary", out.Kind)
		assert.True(t, out.Canonical)
		assert.Equal(t, map[string]interface{}{"bar": "spam", "foo": float64(42)}, out.Value)
	})

	t.Run("non-canonical input", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/v1/decode", []byte("d3:fooi1e3:bari2ee"))
		require.Equal(t, http.StatusOK, w.Code)

		var out DecodeResponse
		responseData(t, decodeResponse(t, w), &out)
		assert.False(t, out.Canonical)
	})

	t.Run("binary string", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/v1/decode", []byte("2:\x00\xff"))
		require.Equal(t, http.StatusOK, w.Code)

		var out DecodeResponse
		responseData(t, decodeResponse(t, w), &out)
		assert.Equal(t, map[string]interface{}{"$base64": "AP8="}, out.Value)
	})

	t.Run("syntax error reports offset", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/v1/decode", []byte("li1e"))
		require.Equal(t, http.StatusBadRequest, w.Code)

		response := decodeResponse(t, w)
		assert.False(t, response.Success)
		assert.Contains(t, response.Error, "unexpected end of input")
		require.NotNil(t, response.Offset)
		assert.Equal(t, int64(4), *response.Offset)
	})

	t.Run("non utf-8 key", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/v1/decode", []byte("d1:\xffi1ee"))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestHandleDecodeStrict(t *testing.T) {
	_, h := setupTestServer(t, bencode.WithStrict())

	w := doRequest(t, h, http.MethodPost, "/api/v1/decode", []byte("i-0e"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeResponse(t, w).Error, "negative zero")
}

func TestHandleEncode(t *testing.T) {
	_, h := setupTestServer(t)

	testCases := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"object", `{"foo": 1, "bar": ["a", -2]}`, http.StatusOK, "d3:barl1:ai-2ee3:fooi1ee"},
		{"base64 marker", `{"$base64": "AP8="}`, http.StatusOK, "2:\x00\xff"},
		{"fraction", `1.5`, http.StatusBadRequest, ""},
		{"boolean", `true`, http.StatusBadRequest, ""},
		{"invalid json", `{`, http.StatusBadRequest, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPost, "/api/v1/encode", []byte(tc.body))
			require.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, ContentTypeBencode, w.Header().Get("Content-Type"))
				assert.Equal(t, tc.want, w.Body.String())
			}
		})
	}
}

func TestHandleValidate(t *testing.T) {
	_, h := setupTestServer(t)

	testCases := []struct {
		name      string
		body      string
		valid     bool
		canonical bool
		offset    *int64
	}{
		{"canonical", "d1:ai1e1:bi2ee", true, true, nil},
		{"unsorted", "d1:bi1e1:ai2ee", true, false, nil},
		{"leading zero", "i01e", true, false, nil},
		{"trailing data", "i1ei2e", false, false, int64Ptr(3)},
		{"bad lead byte", "x", false, false, int64Ptr(0)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPost, "/api/v1/validate", []byte(tc.body))
			require.Equal(t, http.StatusOK, w.Code)

			var out ValidateResponse
			responseData(t, decodeResponse(t, w), &out)
			assert.Equal(t, tc.valid, out.Valid)
			assert.Equal(t, tc.canonical, out.Canonical)
			assert.Equal(t, tc.offset, out.Offset)
			if !tc.valid {
				assert.NotEmpty(t, out.Error)
			}
		})
	}
}

func TestDocumentLifecycle(t *testing.T) {
	_, h := setupTestServer(t)

	// Create from non-canonical input
	w := doRequest(t, h, http.MethodPost, "/api/v1/documents", []byte("d4:sizei3e4:name3:fooe"))
	require.Equal(t, http.StatusOK, w.Code)

	var created DocumentResponse
	responseData(t, decodeResponse(t, w), &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Dictionary", created.Kind)

	docPath := "/api/v1/documents/" + created.ID

	// Read as JSON
	w = doRequest(t, h, http.MethodGet, docPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got DocumentResponse
	responseData(t, decodeResponse(t, w), &got)
	assert.Equal(t, map[string]interface{}{"name": "foo", "size": float64(3)}, got.Value)

	// Read raw canonical bytes
	w = doRequest(t, h, http.MethodGet, docPath+"?format=raw", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentTypeBencode, w.Header().Get("Content-Type"))
	assert.Equal(t, "d4:name3:foo4:sizei3ee", w.Body.String())

	// List
	w = doRequest(t, h, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list DocumentListResponse
	responseData(t, decodeResponse(t, w), &list)
	assert.Equal(t, []string{created.ID}, list.IDs)
	assert.Equal(t, 1, list.Count)

	// Update
	w = doRequest(t, h, http.MethodPut, docPath, []byte("li1ei2ee"))
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, h, http.MethodGet, docPath+"?format=raw", nil)
	assert.Equal(t, "li1ei2ee", w.Body.String())

	// Stats
	w = doRequest(t, h, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats storage.Stats
	responseData(t, decodeResponse(t, w), &stats)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, int64(len("li1ei2ee")), stats.Bytes)

	// Delete
	w = doRequest(t, h, http.MethodDelete, docPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, h, http.MethodGet, docPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentSizeIsCanonical(t *testing.T) {
	_, h := setupTestServer(t)

	w := doRequest(t, h, http.MethodPost, "/api/v1/documents", []byte("li003ee"))
	require.Equal(t, http.StatusOK, w.Code)
	var created DocumentResponse
	responseData(t, decodeResponse(t, w), &created)
	assert.Equal(t, len("li3ee"), created.Size)

	w = doRequest(t, h, http.MethodPut, "/api/v1/documents/"+created.ID, []byte("d1:ai01ee"))
	require.Equal(t, http.StatusOK, w.Code)
	var updated DocumentResponse
	responseData(t, decodeResponse(t, w), &updated)
	assert.Equal(t, len("d1:ai1ee"), updated.Size)

	w = doRequest(t, h, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats storage.Stats
	responseData(t, decodeResponse(t, w), &stats)
	assert.Equal(t, int64(updated.Size), stats.Bytes)
}

func TestDocumentErrors(t *testing.T) {
	_, h := setupTestServer(t)
	missing := "/api/v1/documents/" + ksuid.New().String()

	testCases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"create invalid", http.MethodPost, "/api/v1/documents", "l", http.StatusBadRequest},
		{"get bad id", http.MethodGet, "/api/v1/documents/not-an-id", "", http.StatusBadRequest},
		{"get missing", http.MethodGet, missing, "", http.StatusNotFound},
		{"get bad format", http.MethodGet, missing + "?format=xml", "", http.StatusBadRequest},
		{"update missing", http.MethodPut, missing, "i1e", http.StatusNotFound},
		{"delete missing", http.MethodDelete, missing, "", http.StatusNotFound},
		{"list bad limit", http.MethodGet, "/api/v1/documents?limit=-1", "", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, h, tc.method, tc.path, []byte(tc.body))
			assert.Equal(t, tc.status, w.Code)
			assert.False(t, decodeResponse(t, w).Success)
		})
	}
}

func TestRequestBodyLimit(t *testing.T) {
	_, h := setupTestServer(t)

	body := []byte("2000:" + strings.Repeat("a", 2000))
	w := doRequest(t, h, http.MethodPost, "/api/v1/decode", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func int64Ptr(n int64) *int64 {
	return &n
}
