package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// LoopbackNetworks are the networks the preview server accepts by default.
var LoopbackNetworks = []string{"127.0.0.0/8", "::1"}

// AllowNetworks rejects requests whose connection source is outside the
// given CIDRs (or single IPs) with 403. Forwarding headers are ignored: the
// server is never deployed behind a proxy. An empty list allows everything.
func AllowNetworks(cidrs []string) func(http.Handler) http.Handler {
	allowed := parseNetworks(cidrs)

	return func(next http.Handler) http.Handler {
		if len(allowed) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r.RemoteAddr)
			if !contains(allowed, ip) {
				slog.Warn("request from outside allowed networks",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseNetworks(cidrs []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		_, network, err := net.ParseCIDR(cidr)
		if err == nil {
			nets = append(nets, network)
			continue
		}
		// A bare IP ("::1") is a single-host network
		ip := net.ParseIP(cidr)
		if ip == nil {
			slog.Warn("allow: invalid network, skipping", "cidr", cidr, "error", err)
			continue
		}
		mask := net.CIDRMask(128, 128)
		if ip.To4() != nil {
			ip = ip.To4()
			mask = net.CIDRMask(32, 32)
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: mask})
	}
	return nets
}

// extractIP parses an IP address from a host:port string or plain IP.
func extractIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func contains(nets []*net.IPNet, ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
