package net

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBearerClient_NoToken(t *testing.T) {
	c := GetBearerClient(context.Background(), "")
	assert.NotNil(t, c)
}

func TestGetBearerClient_Token(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := GetBearerClient(context.Background(), "abc123")
	var out map[string]string
	require.NoError(t, GetJSON(context.Background(), c, srv.URL, &out))
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"count": 3})
	}))
	defer srv.Close()

	var out map[string]int
	require.NoError(t, GetJSON(context.Background(), GetHTTPClient(), srv.URL, &out))
	assert.Equal(t, 3, out["count"])
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	var out map[string]string
	err := PostJSON(context.Background(), GetHTTPClient(), srv.URL, map[string]string{"msg": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out["echo"])
}

func TestPostJSON_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	var out map[string]string
	err := PostJSON(context.Background(), GetHTTPClient(), srv.URL, map[string]string{}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
