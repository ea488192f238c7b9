package ratelimit_test

import (
	"net/http/httptest"
	"testing"

	"github.com/sagarc03/boxgate/ratelimit"
	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tt := []struct {
		Name       string
		RemoteAddr string
		Headers    map[string]string
		Trust      bool
		Want       string
	}{
		{Name: "remote addr", RemoteAddr: "192.0.2.1:1234", Want: "192.0.2.1"},
		{Name: "ipv6 remote addr", RemoteAddr: "[2001:db8::1]:443", Want: "2001:db8::1"},
		{Name: "missing remote addr", RemoteAddr: "", Want: ratelimit.UnknownClient},
		{Name: "garbage remote addr", RemoteAddr: "not-an-ip", Want: ratelimit.UnknownClient},
		{
			Name:       "proxy headers ignored without trust",
			RemoteAddr: "192.0.2.1:1234",
			Headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			Want:       "192.0.2.1",
		},
		{
			Name:       "cloudflare header first",
			RemoteAddr: "192.0.2.1:1234",
			Headers:    map[string]string{"CF-Connecting-IP": "198.51.100.7", "X-Forwarded-For": "203.0.113.9"},
			Trust:      true,
			Want:       "198.51.100.7",
		},
		{
			Name:       "first forwarded entry",
			RemoteAddr: "192.0.2.1:1234",
			Headers:    map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"},
			Trust:      true,
			Want:       "203.0.113.9",
		},
		{
			Name:       "real ip when forwarded is invalid",
			RemoteAddr: "192.0.2.1:1234",
			Headers:    map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "203.0.113.10"},
			Trust:      true,
			Want:       "203.0.113.10",
		},
		{
			Name:       "falls back to remote addr",
			RemoteAddr: "192.0.2.1:1234",
			Headers:    map[string]string{"X-Real-IP": "nope"},
			Trust:      true,
			Want:       "192.0.2.1",
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.RemoteAddr
			for k, v := range tc.Headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.Want, ratelimit.ClientIP(r, tc.Trust))
		})
	}
}
