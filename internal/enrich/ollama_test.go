package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leptons1618/sia-proto/internal/config"
	"github.com/Leptons1618/sia-proto/internal/health"
	"github.com/Leptons1618/sia-proto/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.LLMConfig{
		URL:                  srv.URL,
		Model:                "llama3",
		TimeoutSeconds:       5,
		ProbeIntervalSeconds: 60,
	}
	return New(cfg, health.New(), zerolog.Nop()), srv
}

func testEvent() model.Event {
	return model.Event{
		EventID:  "cpu_1716112345678",
		TS:       1716112345,
		Severity: model.SeverityCritical,
		Type:     model.TypeCPUHigh,
		Snapshot: json.RawMessage(`{"cpu_percent":97.0}`),
	}
}

func TestAvailableProbesTags(t *testing.T) {
	var probes atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		probes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	assert.True(t, c.Available(context.Background()))
	// Second call within the probe interval hits the cache.
	assert.True(t, c.Available(context.Background()))
	assert.Equal(t, int32(1), probes.Load())
}

func TestAvailableFalseWhenDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	h := health.New()
	c := New(config.LLMConfig{URL: srv.URL, Model: "llama3", TimeoutSeconds: 1, ProbeIntervalSeconds: 60}, h, zerolog.Nop())

	assert.False(t, c.Available(context.Background()))
	assert.False(t, h.Snapshot().EnrichmentAvailable)
}

func TestSuggest(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "cpu_high")
		assert.Contains(t, req.Prompt, "CRITICAL")

		json.NewEncoder(w).Encode(generateResponse{Response: "  kill pid 4242  "})
	}))

	sug, err := c.Suggest(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, "kill pid 4242", sug.Analysis)
	assert.Equal(t, "ollama", sug.Source)
	assert.Equal(t, "llama3", sug.Model)

	_, err = time.Parse(time.RFC3339, sug.Timestamp)
	assert.NoError(t, err)
}

func TestSuggestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(config.LLMConfig{URL: srv.URL, Model: "llama3", TimeoutSeconds: 1, ProbeIntervalSeconds: 60}, health.New(), zerolog.Nop())

	_, err := c.Suggest(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSuggestBadStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))

	_, err := c.Suggest(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSuggestMalformedBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))

	_, err := c.Suggest(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSuggestEmptyResponse(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "   "})
	}))

	_, err := c.Suggest(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
