package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// detector extracts client IPs with trusted-proxy awareness and flags
// requests matching common probe patterns. Flagged requests are only
// logged, never blocked: the API sits behind a reverse proxy and false
// positives on a budget API would be worse than the noise.
type detector struct {
	trustedProxies []*net.IPNet
	flagged        atomic.Int64
}

func newDetector() *detector {
	return &detector{
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic("bad trusted proxy CIDR " + cidr)
	}
	return network
}

var probePatterns = []string{
	"../", "..\\", ".env", ".git", ".ssh",
	"wp-admin", "phpmyadmin", "config.php",
	"etc/passwd", "<script", "union select",
}

// suspicious reports whether the request looks like a scanner probe
// rather than a legitimate API call.
func (d *detector) suspicious(r *http.Request) bool {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	hit := false
	for _, p := range probePatterns {
		if strings.Contains(target, p) {
			hit = true
			break
		}
	}
	if len(r.URL.String()) > 2048 {
		hit = true
	}
	switch r.Method {
	case "TRACE", "TRACK", "CONNECT":
		hit = true
	}
	if hit {
		d.flagged.Add(1)
	}
	return hit
}

// clientIP returns the real client address. Forwarded headers are
// honored only when the direct peer is a trusted proxy, so clients
// cannot spoof their way past per-IP rate limits.
func (d *detector) clientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return directIP
}

func (d *detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// flaggedCount returns how many requests have been flagged since start.
func (d *detector) flaggedCount() int64 {
	return d.flagged.Load()
}
