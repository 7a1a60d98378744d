package playcount

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{Endpoint: "http://localhost/counts"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestClient_Report(t *testing.T) {
	var gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotID = body.ID
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL})
	require.NoError(t, err)

	require.NoError(t, c.Report(context.Background(), "item-9"))
	assert.Equal(t, "item-9", gotID)
}

func TestClient_ReportServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL})
	require.NoError(t, err)

	assert.Error(t, c.Report(context.Background(), "item-9"))
}

func TestClient_ReportEmptyID(t *testing.T) {
	c, err := New(Config{Endpoint: "http://localhost/counts"})
	require.NoError(t, err)

	assert.Error(t, c.Report(context.Background(), ""))
}

func TestNoop_Report(t *testing.T) {
	assert.NoError(t, Noop{}.Report(context.Background(), "anything"))
}
