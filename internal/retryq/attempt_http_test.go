package retryq

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAttempterRepublishesVerbatim(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	att := NewHTTPAttempter(srv.Client())
	err := att.Attempt(context.Background(), PendingRequest{
		ID:     "r1",
		Method: http.MethodPut,
		Target: srv.URL + "/videos/v1/progress",
		Headers: map[string]string{
			"Authorization": "Bearer tok",
			"Content-Type":  "application/json",
		},
		Body: []byte(`{"current_time":42}`),
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/videos/v1/progress", got.URL.Path)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.JSONEq(t, `{"current_time":42}`, string(gotBody))
}

func TestHTTPAttempterNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	att := NewHTTPAttempter(srv.Client())
	err := att.Attempt(context.Background(), PendingRequest{Method: http.MethodGet, Target: srv.URL})
	assert.Error(t, err)
}
