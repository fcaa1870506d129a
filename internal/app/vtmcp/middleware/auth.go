/**
 * 认证中间件
 * @author: sun977
 * @date: 2025.10.21
 * @description: MCP HTTP 端点的认证中间件，支持 API Key、HS256 JWT 或两者任一
 */
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5" // 引入jwt包

	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/logger"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/utils"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// API Key认证
	APIKey       string `json:"api_key"`
	APIKeyHeader string `json:"api_key_header"`

	// JWT认证
	JWTSecret string `json:"jwt_secret"`

	// 白名单IP，支持CIDR
	WhitelistIPs []string `json:"whitelist_ips"`

	// 认证方式
	AuthMethod string `json:"auth_method"` // "api_key", "jwt", "both"

	// 跳过认证的路径
	SkipPaths []string `json:"skip_paths"`
}

// AuthMiddleware 认证中间件
type AuthMiddleware struct {
	config *AuthConfig
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(config *AuthConfig) *AuthMiddleware {
	if config == nil {
		config = &AuthConfig{
			APIKeyHeader: "X-API-Key",
			AuthMethod:   "api_key",
			SkipPaths:    []string{"/health", "/ping", "/version"},
		}
	}
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}

	return &AuthMiddleware{
		config: config,
	}
}

// Handler 认证处理器
func (m *AuthMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// 检查是否跳过认证
		if m.shouldSkipAuth(path) {
			c.Next()
			return
		}

		// 验证IP白名单
		clientIP := utils.GetClientIP(c)
		if !m.validateIPWhitelist(clientIP) {
			logger.WithField("client_ip", clientIP).Warn("IP not in whitelist")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "IP not allowed",
			})
			return
		}

		var authErr error
		switch m.config.AuthMethod {
		case "api_key":
			authErr = m.validateAPIKey(c)
		case "jwt":
			authErr = m.validateJWT(c)
		case "both":
			// 任一通过即可
			if m.validateAPIKey(c) != nil && m.validateJWT(c) != nil {
				authErr = errors.New("invalid api key or jwt token")
			}
		default:
			authErr = errors.New("unsupported auth method")
		}

		if authErr != nil {
			logger.WithFields(map[string]interface{}{
				"path":      path,
				"client_ip": clientIP,
				"reason":    authErr.Error(),
			}).Warn("Authentication failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": authErr.Error(),
			})
			return
		}

		c.Next()
	}
}

// shouldSkipAuth 检查是否应该跳过认证
func (m *AuthMiddleware) shouldSkipAuth(path string) bool {
	for _, skipPath := range m.config.SkipPaths {
		if path == skipPath || strings.HasPrefix(path, strings.TrimRight(skipPath, "/")+"/") {
			return true
		}
	}
	return false
}

// validateIPWhitelist 白名单为空时允许所有IP
func (m *AuthMiddleware) validateIPWhitelist(clientIP string) bool {
	if len(m.config.WhitelistIPs) == 0 {
		return true
	}
	return utils.MatchIP(clientIP, m.config.WhitelistIPs)
}

// validateAPIKey 验证API Key
func (m *AuthMiddleware) validateAPIKey(c *gin.Context) error {
	if m.config.APIKey == "" {
		return errors.New("api key not configured")
	}

	apiKey := c.GetHeader(m.config.APIKeyHeader)
	if apiKey == "" {
		return errors.New("missing api key")
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.config.APIKey)) != 1 {
		return errors.New("invalid api key")
	}
	return nil
}

// validateJWT 验证 Bearer JWT，只接受 HMAC 签名
func (m *AuthMiddleware) validateJWT(c *gin.Context) error {
	if m.config.JWTSecret == "" {
		return errors.New("jwt secret not configured")
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return errors.New("invalid authorization header format")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return errors.New("missing jwt token")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(m.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return errors.New("invalid jwt token")
	}

	c.Set("jwt_subject", claims.Subject)
	return nil
}
