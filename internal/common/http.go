package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the remote host of the request. It expects chi's RealIP middleware
// to have already rewritten RemoteAddr from trusted proxy headers.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
