package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerEndpoints(t *testing.T) {
	_, h := setupTestServer(t)

	t.Run("ui", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "swagger-ui")
	})

	t.Run("json", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/swagger.json", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Equal(t, "/api/v1", doc["basePath"])
		paths, ok := doc["paths"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, paths, "/decode")
		assert.Contains(t, paths, "/documents/{id}")
	})

	t.Run("unknown", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/other", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServerAddr(t *testing.T) {
	server := NewServer(nil, ServerConfig{Bind: "127.0.0.1", Port: 9200}, nil, zerolog.Nop())
	assert.Equal(t, "127.0.0.1:9200", server.Addr())

	server = NewServer(nil, ServerConfig{Bind: "::1", Port: 80}, nil, zerolog.Nop())
	assert.Equal(t, "[::1]:80", server.Addr())
}

func TestServeGracefulShutdown(t *testing.T) {
	server, _ := setupTestServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()

	url := fmt.Sprintf("http://%s/api/v1/health", listener.Addr())
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.DefaultClient.Do(req)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
