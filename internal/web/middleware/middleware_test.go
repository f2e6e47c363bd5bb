package middleware

import (
	"bytes"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestAllowNetworks(t *testing.T) {
	tests := []struct {
		name   string
		cidrs  []string
		remote string
		want   int
	}{
		{"loopback v4", LoopbackNetworks, "127.0.0.1:9000", http.StatusOK},
		{"loopback v6", LoopbackNetworks, "[::1]:9000", http.StatusOK},
		{"outside", LoopbackNetworks, "10.1.2.3:9000", http.StatusForbidden},
		{"unparseable remote", LoopbackNetworks, "garbage", http.StatusForbidden},
		{"single host", []string{"10.1.2.3"}, "10.1.2.3:9000", http.StatusOK},
		{"lan range", []string{"192.168.0.0/16"}, "192.168.4.20:9000", http.StatusOK},
		{"empty allows all", nil, "203.0.113.9:9000", http.StatusOK},
		{"invalid entries skipped", []string{"not-a-cidr", "  "}, "203.0.113.9:9000", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			// Forwarding headers are ignored.
			req.Header.Set("X-Forwarded-For", "127.0.0.1")
			rec := httptest.NewRecorder()

			AllowNetworks(tt.cidrs)(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestParseNetworks(t *testing.T) {
	nets := parseNetworks([]string{"::1", "127.0.0.1", "10.0.0.0/8", "bogus"})
	if len(nets) != 3 {
		t.Fatalf("len = %d, want 3", len(nets))
	}
	if !contains(nets, net.ParseIP("10.200.0.1")) {
		t.Error("10.200.0.1 should be inside 10.0.0.0/8")
	}
	if contains(nets, net.ParseIP("127.0.0.2")) {
		t.Error("127.0.0.2 should not match the single host 127.0.0.1")
	}
	if contains(nets, nil) {
		t.Error("nil IP should never match")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	defer slog.SetDefault(prev)

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	out := buf.String()
	for _, want := range []string{"path=/api/status", "status=418", "bytes=15"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}

	// Asset requests log at debug and are dropped at info.
	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assets/template", nil))
	if buf.Len() != 0 {
		t.Errorf("asset request logged at info: %q", buf.String())
	}
}
