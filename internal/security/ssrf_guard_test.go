package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var _ SSRFGuardService = (*ssrfGuard)(nil)

func TestNewSafeClient_AppliesTimeoutAndTransport(t *testing.T) {
	guard := NewSSRFGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout, 5*1024*1024)

	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != timeout {
		t.Errorf("timeout = %v, want %v", client.Timeout, timeout)
	}
	// safeurlはnet.DialerのControlフックでIP検証を行うため、
	// 標準のhttp.DefaultTransportのままではいけない。
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Fatalf("expected custom Transport, got %v", client.Transport)
	}
}

// httptestサーバーは127.0.0.1で起動されるので、安全クライアントは接続を拒否する。
func TestNewSafeClient_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	guard := NewSSRFGuard()
	client := guard.NewSafeClient(5*time.Second, 5*1024*1024)

	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		group   string
		urls    []string
		wantErr bool
	}{
		{
			group: "公開URLは許可",
			urls: []string{
				"https://example.com",
				"https://podcasts.example.com/podcast.xml",
				"http://blog.example.org/episodes.rss",
			},
		},
		{
			group:   "プライベートIPは拒否",
			wantErr: true,
			urls: []string{
				"http://10.0.0.1/podcast.xml",
				"http://10.255.255.255/podcast.xml",
				"http://172.16.0.1/podcast.xml",
				"http://172.31.255.255/podcast.xml",
				"http://192.168.0.1/podcast.xml",
				"http://192.168.1.100/podcast.xml",
			},
		},
		{
			group:   "ループバックは拒否",
			wantErr: true,
			urls: []string{
				"http://127.0.0.1/podcast.xml",
				"http://127.0.0.2/podcast.xml",
				"http://localhost/podcast.xml",
				"http://[::1]/podcast.xml",
			},
		},
		{
			group:   "リンクローカルとクラウドメタデータは拒否",
			wantErr: true,
			urls: []string{
				"http://169.254.0.1/podcast.xml",
				"http://169.254.169.254/latest/meta-data/",                        // AWS
				"http://169.254.169.254/metadata/instance?api-version=2021-02-01", // Azure
				"http://169.254.169.254/computeMetadata/v1/",                      // GCP
			},
		},
		{
			group:   "不正なURL・許可外スキームは拒否",
			wantErr: true,
			urls: []string{
				"",
				"not-a-url",
				"ftp://example.com/podcast.xml",
				"file:///etc/passwd",
				"gopher://example.com",
				"http://0.0.0.0/podcast.xml",
			},
		},
	}

	guard := NewSSRFGuard()
	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			for _, u := range tt.urls {
				err := guard.ValidateURL(u)
				if tt.wantErr && err == nil {
					t.Errorf("ValidateURL(%q) should have returned error", u)
				}
				if !tt.wantErr && err != nil {
					t.Errorf("ValidateURL(%q) returned error: %v", u, err)
				}
			}
		})
	}
}
