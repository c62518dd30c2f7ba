package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SwaggerConfig controls access to the API documentation endpoints.
type SwaggerConfig struct {
	Enabled     bool     // serve documentation at all
	RequireAuth bool     // require a valid JWT
	AllowedIPs  []string // IP allowlist, CIDR supported; empty allows all
}

// ipAllowlist holds parsed single IPs and CIDR networks.
type ipAllowlist struct {
	ips  []net.IP
	nets []*net.IPNet
}

func parseAllowlist(entries []string) ipAllowlist {
	var list ipAllowlist
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				list.nets = append(list.nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			list.ips = append(list.ips, ip)
		}
	}
	return list
}

func (l ipAllowlist) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range l.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SwaggerProtection guards the documentation routes. Disabled docs answer
// 404 so the endpoint's existence is not revealed. An IP allowlist and JWT
// auth can be layered; the allowlist is checked first.
func SwaggerProtection(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) gin.HandlerFunc {
	allowlist := parseAllowlist(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "API documentation is not available",
			})
			return
		}

		if len(cfg.AllowedIPs) > 0 && !allowlist.contains(requestIP(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Access to API documentation is restricted",
			})
			return
		}

		if cfg.RequireAuth && jwtMiddleware != nil {
			jwtMiddleware(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}
}

// requestIP resolves the client IP, preferring gin's trusted-proxy aware
// ClientIP and falling back to RemoteAddr.
func requestIP(c *gin.Context) net.IP {
	if clientIP := c.ClientIP(); clientIP != "" {
		if ip := net.ParseIP(clientIP); ip != nil {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return net.ParseIP(host)
}
