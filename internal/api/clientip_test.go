package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"peer address", "", "10.0.0.5:51234", "10.0.0.5"},
		{"ipv6 peer", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"single forwarded", "203.0.113.7", "10.0.0.1:80", "203.0.113.7"},
		{"forwarded chain", " 203.0.113.7 , 10.0.0.1", "10.0.0.1:80", "203.0.113.7"},
		{"empty first entry", " , 10.0.0.2", "10.0.0.1:80", "10.0.0.1"},
		{"peer without port", "", "10.0.0.5", "10.0.0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := ClientIP(req); got != tc.want {
				t.Errorf("ClientIP() = %q, want %q", got, tc.want)
			}
		})
	}
}
