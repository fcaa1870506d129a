package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// NormalizeIP 标准化IP地址：
// - 若是带端口的地址，去掉端口
// - 若是 IPv4-mapped IPv6 (::ffff:192.0.2.1)，转成纯 IPv4
// - 否则按原样返回（包括真 IPv6）
func NormalizeIP(input string) string {
	ip := strings.TrimSpace(input)
	if ip == "" {
		return ""
	}

	// 去掉端口（host:port 或 [ipv6]:port）
	if h, _, err := net.SplitHostPort(ip); err == nil {
		ip = h
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}

	if v4 := parsed.To4(); v4 != nil {
		return v4.String()
	}

	return parsed.String()
}

// GetClientIP 从Gin上下文获取客户端IP
// 只有连接来自 engine.SetTrustedProxies 配置的代理时，gin 才会采用 X-Forwarded-For
func GetClientIP(c *gin.Context) string {
	return NormalizeIP(c.ClientIP())
}

// MatchIP 判断IP是否命中规则列表，规则可以是单个IP或CIDR
func MatchIP(ip string, rules []string) bool {
	ip = NormalizeIP(ip)
	parsed := net.ParseIP(ip)

	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		if strings.Contains(rule, "/") {
			if _, network, err := net.ParseCIDR(rule); err == nil && parsed != nil && network.Contains(parsed) {
				return true
			}
			continue
		}
		if NormalizeIP(rule) == ip {
			return true
		}
	}
	return false
}
