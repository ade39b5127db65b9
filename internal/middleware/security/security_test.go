package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(false)
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatal(err)
	}
	if err := d.AddTrustedProxy("nope"); err == nil {
		t.Fatal("expected CIDR error")
	}

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct public peer ignores headers", "198.51.100.7:1234", "1.2.3.4", "", "198.51.100.7"},
		{"trusted proxy uses first forwarded", "10.0.0.2:80", "1.2.3.4, 10.0.0.2", "", "1.2.3.4"},
		{"added proxy network", "203.0.113.5:80", "9.9.9.9", "", "9.9.9.9"},
		{"invalid forwarded falls back to real ip", "127.0.0.1:80", "garbage", "5.6.7.8", "5.6.7.8"},
		{"no headers", "127.0.0.1:80", "", "", "127.0.0.1"},
		{"unparseable remote", "pipe", "1.2.3.4", "", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Fatalf("ExtractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuspicious(t *testing.T) {
	d := NewDetector(false)
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"report query", http.MethodGet, "/api/reports/budget?year=2024&month=3", "curl/8.0", false},
		{"path traversal", http.MethodGet, "/api/../../etc/passwd", "", true},
		{"traversal in query", http.MethodGet, "/api/reports/rows?label=../../secret", "", true},
		{"scanner agent", http.MethodGet, "/healthz", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
		{"long url", http.MethodGet, "/?q=" + strings.Repeat("a", maxURLLength), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.Suspicious(r); got != tt.want {
				t.Fatalf("Suspicious = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectorHandler(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	for _, block := range []bool{false, true} {
		d := NewDetector(block)
		rr := httptest.NewRecorder()
		d.Handler(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/.env", nil))

		want := http.StatusNoContent
		if block {
			want = http.StatusBadRequest
		}
		if rr.Code != want {
			t.Fatalf("block=%v status = %d, want %d", block, rr.Code, want)
		}
		m := d.GetMetrics()
		if m.SuspiciousRequests != 1 || (m.BlockedRequests == 1) != block {
			t.Fatalf("block=%v metrics = %+v", block, m)
		}
	}
}

func TestHeaders(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("headers = %v", rr.Header())
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("HSTS = %q", got)
	}
}
