package virustotal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonkawada/analyze-vt-mcp/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", WithBaseURL(srv.URL+"/"), WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c
}

// TestQueryGet 测试 GET 请求与密钥头
func TestQueryGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/ip_addresses/8.8.8.8", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-apikey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"id":"8.8.8.8","attributes":{"last_analysis_stats":{"malicious":2}}}}`)
	})

	result, err := c.Query(context.Background(), http.MethodGet, ObjectPath(KindIP, "8.8.8.8"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Get("data.attributes.last_analysis_stats.malicious").Int())
}

// TestQueryPostForm 测试 POST 表单
func TestQueryPostForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/urls", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "http://example.com/a?b=c", r.PostForm.Get("url"))
		_, _ = io.WriteString(w, `{"data":{"id":"u-123"}}`)
	})

	result, err := c.Query(context.Background(), http.MethodPost, SubmitURLPath, url.Values{"url": {"http://example.com/a?b=c"}})
	require.NoError(t, err)
	assert.Equal(t, "u-123", result.Get("data.id").String())
}

// TestQueryErrors 测试失败分类
func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
		wantJSON   bool
	}{
		{"404 带错误体", http.StatusNotFound, `{"error":{"code":"NotFoundError","message":"Resource not found"}}`, 404, "NotFoundError: Resource not found", false},
		{"401 纯文本", http.StatusUnauthorized, "denied", 401, "denied", false},
		{"500 空响应", http.StatusInternalServerError, "", 500, "500 Internal Server Error", false},
		{"200 非JSON", http.StatusOK, "<html>", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Query(context.Background(), http.MethodGet, "/files/abc", nil)
			require.Error(t, err)

			if tt.wantJSON {
				assert.ErrorIs(t, err, ErrInvalidJSON)
				var apiErr *APIError
				assert.False(t, errors.As(err, &apiErr))
				return
			}

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Contains(t, err.Error(), "VirusTotal API error")
		})
	}
}

// TestQueryTransportError 连接失败也是 APIError
func TestQueryTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient("k", WithBaseURL(base))
	require.NoError(t, err)

	_, err = c.Query(context.Background(), http.MethodGet, "/domains/example.com", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.NotNil(t, apiErr.Unwrap())
}

// TestQueryContextCanceled 取消的上下文
func TestQueryContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Query(ctx, http.MethodGet, "/files/abc", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestQueryUnsupportedMethod 只支持 GET/POST
func TestQueryUnsupportedMethod(t *testing.T) {
	c, err := NewClient("k")
	require.NoError(t, err)

	_, err = c.Query(context.Background(), http.MethodDelete, "/files/abc", nil)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

// TestNewClient 测试客户端构造
func TestNewClient(t *testing.T) {
	_, err := NewClient("  ")
	assert.Error(t, err)

	_, err = NewClientFromConfig(nil)
	assert.Error(t, err)

	c, err := NewClientFromConfig(&config.VirusTotalConfig{APIKey: "k", BaseURL: "https://vt.example/api/v3/", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "https://vt.example/api/v3", c.BaseURL())

	c, err = NewClient("k")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}
