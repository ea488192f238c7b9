package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is used when no address can be derived. Every such request
// shares one bucket.
const UnknownClient = "0.0.0.0"

// ClientIP derives the client identity for r. Proxy headers are consulted
// only when trustProxy is set, in the order CF-Connecting-IP, the first
// X-Forwarded-For entry, X-Real-IP.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := parseIPCandidate(r.Header.Get("CF-Connecting-IP")); ip != nil {
			return ip.String()
		}
		if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := parseIPCandidate(first); ip != nil {
				return ip.String()
			}
		}
		if ip := parseIPCandidate(r.Header.Get("X-Real-IP")); ip != nil {
			return ip.String()
		}
	}
	if ip := parseIPCandidate(r.RemoteAddr); ip != nil {
		return ip.String()
	}
	return UnknownClient
}

func parseIPCandidate(raw string) net.IP {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return nil
	}
	if host, _, err := net.SplitHostPort(candidate); err == nil {
		candidate = host
	}
	candidate = strings.Trim(candidate, "[]")
	return net.ParseIP(candidate)
}
