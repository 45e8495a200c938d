package esm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Logits(t *testing.T) {
	var got forwardRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/forward", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		logits := make([]float64, 33)
		logits[got.Tokens[got.MaskIndex]] = 1 // echo something deterministic
		json.NewEncoder(w).Encode(forwardResponse{Logits: logits})
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), srv.URL, "t30_150M", "")
	require.NoError(t, err)
	assert.Equal(t, "facebook/esm2_t30_150M_UR50D", c.Checkpoint())

	tokens := []int{0, 20, 32, 14, 2}
	logits, err := c.Logits(context.Background(), tokens, 2)
	require.NoError(t, err)
	assert.Len(t, logits, 33)

	assert.Equal(t, "facebook/esm2_t30_150M_UR50D", got.Model)
	assert.Equal(t, tokens, got.Tokens)
	assert.Equal(t, 2, got.MaskIndex)
}

func TestClient_BearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(forwardResponse{Logits: make([]float64, 33)})
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), srv.URL, "", "hf_test")
	require.NoError(t, err)

	_, err = c.Logits(context.Background(), []int{0, 32, 2}, 1)
	assert.NoError(t, err)
}

func TestClient_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(forwardResponse{Error: "model not loaded"})
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), srv.URL, "", "")
	require.NoError(t, err)

	_, err = c.Logits(context.Background(), []int{0, 32, 2}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), srv.URL, "", "")
	require.NoError(t, err)

	_, err = c.Logits(context.Background(), []int{0, 32, 2}, 1)
	assert.Error(t, err)
}

func TestClient_MaskIndexOutOfRange(t *testing.T) {
	c, err := NewClient(context.Background(), "http://localhost:1", "", "")
	require.NoError(t, err)

	_, err = c.Logits(context.Background(), []int{0, 2}, 5)
	assert.Error(t, err)
	_, err = c.Logits(context.Background(), []int{0, 2}, -1)
	assert.Error(t, err)
}

func TestNewClient_NoEndpoint(t *testing.T) {
	_, err := NewClient(context.Background(), "", "", "")
	assert.Error(t, err)
}

func TestNewClient_BadCheckpoint(t *testing.T) {
	_, err := NewClient(context.Background(), "http://localhost:1", "nope", "")
	assert.Error(t, err)
}
