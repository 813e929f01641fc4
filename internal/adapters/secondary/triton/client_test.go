package triton

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triton-deployer/internal/core/domain"
)

type fakeTriton struct {
	t          *testing.T
	loaded     map[string]domain.ModelConfig
	loadBodies []loadRequest
	failLoad   bool
}

func newFakeTriton(t *testing.T) (*fakeTriton, *httptest.Server) {
	f := &fakeTriton{t: t, loaded: map[string]domain.ModelConfig{}}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v2/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v2/repository/models/{name}/load", func(w http.ResponseWriter, r *http.Request) {
		var body loadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.loadBodies = append(f.loadBodies, body)

		if f.failLoad {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"failed to load 'my_model', failed to poll from model repository"}`))
			return
		}
		cfg := domain.ModelConfig{"name": r.PathValue("name"), "platform": "tensorflow_savedmodel"}
		if raw, ok := body.Parameters["config"]; ok {
			cfg = domain.ModelConfig{}
			require.NoError(t, json.Unmarshal([]byte(raw), &cfg))
		}
		f.loaded[r.PathValue("name")] = cfg
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v2/repository/models/{name}/unload", func(w http.ResponseWriter, r *http.Request) {
		delete(f.loaded, r.PathValue("name"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /v2/models/{name}/config", func(w http.ResponseWriter, r *http.Request) {
		cfg, ok := f.loaded[r.PathValue("name")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Request for unknown model"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(cfg)
	})
	mux.HandleFunc("GET /v2/models/{name}/ready", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := f.loaded[r.PathValue("name")]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestNewClient_URLHandling(t *testing.T) {
	c, err := NewClient("localhost:8000", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.(*tritonClient).baseURL)

	c, err = NewClient("https://triton.example.com/", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "https://triton.example.com", c.(*tritonClient).baseURL)

	_, err = NewClient("", time.Second)
	assert.ErrorIs(t, err, domain.ErrMissingTritonURL)
}

func TestClient_LoadWithConfigThenReady(t *testing.T) {
	fake, srv := newFakeTriton(t)
	c, err := NewClient(strings.TrimPrefix(srv.URL, "http://"), time.Second)
	require.NoError(t, err)
	defer c.Close()

	ctx := t.Context()
	cfg := domain.ModelConfig{
		"max_batch_size": 32,
		"version_policy": map[string]any{"specific": map[string]any{"versions": []any{3}}},
	}
	require.NoError(t, c.LoadModel(ctx, "fashion", cfg))

	require.Len(t, fake.loadBodies, 1)
	assert.JSONEq(t,
		`{"max_batch_size":32,"version_policy":{"specific":{"versions":[3]}}}`,
		fake.loadBodies[0].Parameters["config"])

	ready, err := c.IsModelReady(ctx, "fashion")
	require.NoError(t, err)
	assert.True(t, ready)

	served, err := c.GetModelConfig(ctx, "fashion")
	require.NoError(t, err)
	assert.Equal(t, json.Number("32"), served["max_batch_size"])
}

func TestClient_LoadWithoutConfigOmitsParameters(t *testing.T) {
	fake, srv := newFakeTriton(t)
	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	ctx := t.Context()
	require.NoError(t, c.LoadModel(ctx, "autogen", nil))
	require.Len(t, fake.loadBodies, 1)
	assert.Nil(t, fake.loadBodies[0].Parameters)

	cfg, err := c.GetModelConfig(ctx, "autogen")
	require.NoError(t, err)
	assert.Equal(t, "tensorflow_savedmodel", cfg["platform"])

	require.NoError(t, c.UnloadModel(ctx, "autogen"))
	ready, err := c.IsModelReady(ctx, "autogen")
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestClient_LoadFailureSurfacesServerMessage(t *testing.T) {
	fake, srv := newFakeTriton(t)
	fake.failLoad = true
	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	err = c.LoadModel(t.Context(), "my_model", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to poll from model repository")
}

func TestClient_GetConfigUnknownModel(t *testing.T) {
	_, srv := newFakeTriton(t)
	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = c.GetModelConfig(t.Context(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}

func TestClient_IsServerLive(t *testing.T) {
	_, srv := newFakeTriton(t)
	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	live, err := c.IsServerLive(t.Context())
	require.NoError(t, err)
	assert.True(t, live)

	srv.Close()
	_, err = c.IsServerLive(t.Context())
	assert.ErrorIs(t, err, domain.ErrServerUnavailable)
}
