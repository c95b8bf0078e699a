package driver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/internal/httpclient"
	"github.com/teranos/composr/logger"
)

func newTestDriver(t *testing.T, handler http.HandlerFunc) *HTTPDriver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	d, err := NewHTTPWithClient(HTTPConfig{
		BaseURL: server.URL + "/v1.0/",
		Token:   "secret",
		Logger:  zaptest.NewLogger(t).Sugar(),
	}, httpclient.Wrap(server.Client()))
	require.NoError(t, err)
	return d
}

func TestHTTPDriver_CollectionGet(t *testing.T) {
	d := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1.0/resource/composr:Phrase", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("api:page"))
		assert.Equal(t, "20", r.URL.Query().Get("api:pageSize"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var query []map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("api:query")), &query))
		require.Len(t, query, 1)
		assert.Contains(t, query[0], "$in")

		_, _ = io.WriteString(w, `[{"id":"d!a"},{"id":"d!b"}]`)
	})

	records, err := d.Collection("composr:Phrase").Get(context.Background(), Params{
		Page:     2,
		PageSize: 20,
		Query:    []map[string]any{InQuery("id", []string{"d!a", "d!b"})},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "d!a", records[0]["id"])
}

func TestHTTPDriver_CollectionGet_EmptyBody(t *testing.T) {
	d := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	records, err := d.Collection("c").Get(context.Background(), Params{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHTTPDriver_Resource(t *testing.T) {
	var lastMethod, lastPath, lastBody string
	d := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastMethod, lastPath, lastBody = r.Method, r.URL.Path, string(body)
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `{"id":"booqs:demo!login","url":"login"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := logger.WithRequestID(context.Background(), "req-42")
	res := d.Resource("composr:Phrase", "booqs:demo!login")

	record, err := res.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "login", record["url"])
	assert.Equal(t, "/v1.0/resource/composr:Phrase/booqs:demo!login", lastPath)

	require.NoError(t, res.Update(ctx, Record{"id": "booqs:demo!login", "url": "login2"}))
	assert.Equal(t, http.MethodPut, lastMethod)
	assert.JSONEq(t, `{"id":"booqs:demo!login","url":"login2"}`, lastBody)

	require.NoError(t, res.Delete(ctx))
	assert.Equal(t, http.MethodDelete, lastMethod)
}

func TestHTTPDriver_RequestIDFromContext(t *testing.T) {
	var seen string
	d := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := d.Resource("c", "x").Get(logger.WithRequestID(context.Background(), "req-7"))
	require.NoError(t, err)
	assert.Equal(t, "req-7", seen)
}

func TestHTTPDriver_ResponseError(t *testing.T) {
	d := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"error":"invalid_entity"}`)
	})

	err := d.Resource("composr:Phrase", "d!x").Update(context.Background(), Record{"id": "d!x"})
	require.Error(t, err)

	var re *ResponseError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusUnprocessableEntity, re.Status)
	assert.Equal(t, http.MethodPut, re.Method)
	assert.JSONEq(t, `{"error":"invalid_entity"}`, string(re.Body))
	assert.Contains(t, re.Error(), "status 422")
}

func TestHTTPDriver_ContextCancelled(t *testing.T) {
	var hits int32
	d := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Collection("c").Get(ctx, Params{})
	require.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestHTTPDriver_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(server.Close)

	d, err := NewHTTPWithClient(HTTPConfig{
		BaseURL:           server.URL,
		RequestsPerSecond: 20,
		Burst:             1,
	}, httpclient.Wrap(server.Client()))
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := d.Collection("c").Get(context.Background(), Params{Page: i})
		require.NoError(t, err)
	}
	// burst of 1 at 20 rps spaces the 2nd and 3rd calls ~50ms apart
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestNewHTTP_Validation(t *testing.T) {
	_, err := NewHTTP(HTTPConfig{})
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))

	_, err = NewHTTP(HTTPConfig{BaseURL: "ftp://remote.example.com"})
	require.Error(t, err)

	d, err := NewHTTP(HTTPConfig{BaseURL: "https://remote.example.com/api/"})
	require.NoError(t, err)
	assert.Equal(t, "/api/resource/c/d!x", d.endpoint("c", "d!x").Path)
}
