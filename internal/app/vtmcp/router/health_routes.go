/**
 * 路由:健康检查路由
 * @author: sun977
 * @date: 2025.10.21
 * @description: 健康检查、存活检查、版本信息，不需要认证
 */
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/logger"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/version"
)

// ServiceName 服务名称
const ServiceName = "analyze-vt-mcp"

// setupHealthRoutes 设置健康检查路由
func (r *Router) setupHealthRoutes() {
	r.engine.GET("/health", r.handleHealth)
	r.engine.GET("/ping", r.handlePing)
	r.engine.GET("/version", r.handleVersion)
}

// handleHealth 健康检查处理器
func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": logger.FormatTimestamp(time.Now()),
		"service":   ServiceName,
		"transport": r.config.Transport,
		"version":   version.GetVersion(),
	})
}

// handlePing Ping处理器
func (r *Router) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": logger.FormatTimestamp(time.Now()),
	})
}

// handleVersion 版本信息处理器
func (r *Router) handleVersion(c *gin.Context) {
	info := version.GetInfo()
	c.JSON(http.StatusOK, gin.H{
		"service":    ServiceName,
		"version":    info.Version,
		"build_time": info.BuildTime,
		"git_commit": info.GitCommit,
		"go_version": info.GoVersion,
		"timestamp":  logger.FormatTimestamp(time.Now()),
	})
}
