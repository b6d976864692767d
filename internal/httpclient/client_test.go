package httpclient

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
)

func TestDo(t *testing.T) {
	t.Run("sets the default user agent", func(t *testing.T) {
		var gotAgent atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAgent.Store(r.UserAgent())
		}))
		defer srv.Close()

		c := New(nil)
		defer c.Close()

		resp, err := c.Get(t.Context(), srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, defaultUserAgent, gotAgent.Load())
	})

	t.Run("keeps a caller supplied user agent", func(t *testing.T) {
		var gotAgent atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAgent.Store(r.UserAgent())
		}))
		defer srv.Close()

		c := New(nil)
		defer c.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL, http.NoBody)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "custom/1.0")

		resp, err := c.Do(t.Context(), req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "custom/1.0", gotAgent.Load())
	})

	t.Run("applies the default timeout without a deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer srv.Close()

		c := New(&Config{DefaultTimeout: 50 * time.Millisecond})
		defer c.Close()

		start := time.Now()
		resp, err := c.Get(context.Background(), srv.URL)
		require.Error(t, err)
		if resp != nil {
			resp.Body.Close()
		}
		assert.Less(t, time.Since(start), 400*time.Millisecond)
	})

	t.Run("a context deadline overrides the default", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer srv.Close()

		c := New(&Config{DefaultTimeout: 10 * time.Second})
		defer c.Close()

		ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
		defer cancel()

		resp, err := c.Get(ctx, srv.URL)
		require.Error(t, err)
		if resp != nil {
			resp.Body.Close()
		}
	})

	t.Run("rejects a nil request", func(t *testing.T) {
		c := New(nil)
		defer c.Close()

		_, err := c.Do(t.Context(), nil)
		assert.Error(t, err)
	})
}

func TestPostJSON(t *testing.T) {
	type payload struct {
		Tag  string `json:"tag"`
		Hour int    `json:"hour"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var p payload
		require.NoError(t, json.Unmarshal(body, &p))
		assert.Equal(t, "FT-201", p.Tag)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(nil)
	defer c.Close()

	resp, err := c.PostJSON(t.Context(), srv.URL, payload{Tag: "FT-201", Hour: 14})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("unmarshalable body fails before the request", func(t *testing.T) {
		_, err := c.PostJSON(t.Context(), srv.URL, func() {})
		assert.Error(t, err)
	})
}

func TestHooks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(nil)
	defer c.Close()

	var before, after atomic.Int32
	c.SetBeforeRequestHook(func(req *http.Request) {
		before.Add(1)
	})
	c.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error) {
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		after.Add(1)
	})

	resp, err := c.Get(t.Context(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), before.Load())
	assert.Equal(t, int32(1), after.Load())
}
