package lookup

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonkawada/analyze-vt-mcp/internal/config"
)

func fakeVirusTotal(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ip_addresses/8.8.8.8":
			_, _ = io.WriteString(w, `{"data":{"attributes":{"last_analysis_stats":{"malicious":1,"suspicious":0,"harmless":80,"undetected":4}}}}`)
		case "/ip_addresses/8.8.8.8/resolutions":
			if limit := r.URL.Query().Get("limit"); limit != "" {
				assert.Equal(t, "5", limit)
			}
			_, _ = io.WriteString(w, `{"data":[{"type":"resolution","attributes":{"host_name":"dns.google","ip_address":"8.8.8.8","date":1700000000}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":"NotFoundError","message":"not found"}}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func staticConfig(baseURL string) ConfigFunc {
	return func(validate bool) (*config.Config, error) {
		cfg := &config.Config{
			Server: &config.ServerConfig{Transport: config.TransportStdio},
			VirusTotal: &config.VirusTotalConfig{
				APIKey:  "test-key",
				BaseURL: baseURL,
				Timeout: 2 * time.Second,
			},
		}
		if validate {
			return cfg, cfg.Validate()
		}
		return cfg, nil
	}
}

func execute(t *testing.T, cmd interface {
	SetArgs([]string)
	SetOut(io.Writer)
	SetErr(io.Writer)
	Execute() error
}, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

// TestLookupIPReport 查询 IP 报告并保存文件
func TestLookupIPReport(t *testing.T) {
	srv := fakeVirusTotal(t)
	path := filepath.Join(t.TempDir(), "ip.md")

	out, err := execute(t, NewLookupCmd(staticConfig(srv.URL)), "ip", "8.8.8.8", "--raw", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# Ip Analysis Report\n")
	assert.Contains(t, out, "- Malicious: 1\n")
	assert.Contains(t, out, "- Resolutions: 1 items\n  - dns.google → 8.8.8.8 (resolved 1700000000)\n")

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(saved))
}

// TestLookupRelationship 查询单个关系
func TestLookupRelationship(t *testing.T) {
	srv := fakeVirusTotal(t)

	out, err := execute(t, NewLookupCmd(staticConfig(srv.URL)), "relationship", "ip", "8.8.8.8", "resolutions", "--limit", "5", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "# Ip Resolutions Analysis Report\n")
	assert.NotContains(t, out, "Detection Summary")
}

// TestLookupErrors 主查询失败、未知类型和缺少密钥
func TestLookupErrors(t *testing.T) {
	srv := fakeVirusTotal(t)

	_, err := execute(t, NewLookupCmd(staticConfig(srv.URL)), "file", "deadbeef", "--raw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotFoundError")

	_, err = execute(t, NewLookupCmd(staticConfig(srv.URL)), "relationship", "email", "x", "y", "--raw")
	assert.Error(t, err)

	_, err = execute(t, NewLookupCmd(staticConfig("")), "ip", "8.8.8.8", "--raw")
	assert.Error(t, err)
}
