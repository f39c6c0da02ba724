package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/ipos-browser-go/internal/models"
)

func TestParseEndpoint(t *testing.T) {
	t.Run("invalid scheme", func(t *testing.T) {
		_, err := NewClient("htt://localhost:9000", "Test")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidEndpoint))
	})

	t.Run("valid endpoint", func(t *testing.T) {
		c, err := NewClient("http://localhost:9000/webrpc", "Test")
		require.NoError(t, err)
		assert.Equal(t, "2.0", c.Version)
		assert.Equal(t, "localhost", c.Endpoint.Host)
		assert.Equal(t, 9000, c.Endpoint.Port)
		assert.Equal(t, "/webrpc", c.Endpoint.Path)
		assert.Equal(t, "http", c.Endpoint.Scheme)
	})

	t.Run("default ports", func(t *testing.T) {
		ep, err := ParseEndpoint("http://example.com/ipos/webrpc")
		require.NoError(t, err)
		assert.Equal(t, 80, ep.Port)
		assert.Equal(t, "http://example.com/ipos/webrpc", ep.URL())

		ep, err = ParseEndpoint("https://example.com")
		require.NoError(t, err)
		assert.Equal(t, 443, ep.Port)
		assert.Equal(t, "/", ep.Path)
		assert.Equal(t, "https://example.com", ep.Origin())
	})

	t.Run("missing host", func(t *testing.T) {
		_, err := ParseEndpoint("http:///webrpc")
		assert.ErrorIs(t, err, ErrInvalidEndpoint)
	})
}

func TestNewRequest(t *testing.T) {
	withNS, err := NewClient("http://localhost:9000/webrpc", "Web")
	require.NoError(t, err)
	noNS, err := NewClient("http://localhost:9000/webrpc", "")
	require.NoError(t, err)

	for _, method := range []string{"Login", "ListObjects", "a.b"} {
		assert.Equal(t, "Web."+method, withNS.NewRequest(method, nil).Method)
		assert.Equal(t, method, noNS.NewRequest(method, nil).Method)
	}

	req := withNS.NewRequest("Login", nil)
	assert.Equal(t, 1, req.ID)
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, map[string]interface{}{}, req.Params)

	req = withNS.NewRequest("Login", &CallOptions{ID: 7, Params: map[string]string{"a": "b"}})
	assert.Equal(t, 7, req.ID)
	assert.Equal(t, map[string]string{"a": "b"}, req.Params)
}

func TestCall(t *testing.T) {
	var gotHeader http.Header
	var gotBody models.JSONRPCRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/webrpc", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":1,"jsonrpc":"2.0","result":{"uiVersion":"2020-01-01T00:00:00Z"}}`))
	}))
	defer ts.Close()

	fixed := time.Date(2021, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))
	c, err := NewClient(ts.URL+"/webrpc", "Web", WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	t.Run("with token", func(t *testing.T) {
		resp, err := c.Call(context.Background(), "ListBuckets", nil, "secret")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(resp.Body), "uiVersion")

		assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
		assert.Equal(t, "20210304T040607Z", gotHeader.Get("x-amz-date"))
		assert.Equal(t, "Bearer secret", gotHeader.Get("Authorization"))
		assert.Equal(t, "Web.ListBuckets", gotBody.Method)
		assert.Equal(t, "2.0", gotBody.JSONRPC)
		assert.Equal(t, 1, gotBody.ID)
	})

	t.Run("without token", func(t *testing.T) {
		_, err := c.Call(context.Background(), "ServerInfo", nil, "")
		require.NoError(t, err)
		assert.Empty(t, gotHeader.Get("Authorization"))
	})

	t.Run("empty method", func(t *testing.T) {
		_, err := c.Call(context.Background(), "", nil, "")
		assert.Error(t, err)
	})
}

func TestCallErrors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer ts.Close()

		c, err := NewClient(ts.URL+"/webrpc", "Web")
		require.NoError(t, err)

		_, err = c.Call(context.Background(), "Login", nil, "")
		require.Error(t, err)
		status, ok := StatusOf(err)
		assert.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("connection refused", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		c, err := NewClient(url+"/webrpc", "Web")
		require.NoError(t, err)

		_, err = c.Call(context.Background(), "Login", nil, "")
		require.Error(t, err)
		_, ok := StatusOf(err)
		assert.False(t, ok)
		var netErr *NetworkError
		assert.ErrorAs(t, err, &netErr)
	})
}

func TestNextID(t *testing.T) {
	c, err := NewClient("http://localhost:9000/webrpc", "Web")
	require.NoError(t, err)
	assert.Equal(t, 1, c.NextID())
	assert.Equal(t, 2, c.NextID())
}
