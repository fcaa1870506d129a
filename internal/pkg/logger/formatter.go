// 结构化日志条目
package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TimestampFormat 日志与接口响应共用的毫秒精度时间格式
const TimestampFormat = "2006-01-02 15:04:05.000"

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}

// LogType 日志类型枚举
type LogType string

const (
	// AccessLog 访问日志 - 记录HTTP请求
	AccessLog LogType = "access"
	// ToolLog 工具日志 - 记录MCP工具调用
	ToolLog LogType = "tool"
	// SystemLog 系统日志 - 记录启动、关闭等系统事件
	SystemLog LogType = "system"
)

// LogLevel 封装的日志级别
type LogLevel int

const (
	// DebugLevel 调试级别
	DebugLevel LogLevel = iota
	// InfoLevel 信息级别
	InfoLevel
	// WarnLevel 警告级别
	WarnLevel
	// ErrorLevel 错误级别
	ErrorLevel
)

// LogAccessRequest 记录HTTP访问日志
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string) {
	if LoggerInstance == nil {
		return
	}

	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":          AccessLog,
		"method":        c.Request.Method,
		"path":          c.Request.URL.Path,
		"query":         c.Request.URL.RawQuery,
		"status_code":   c.Writer.Status(),
		"response_time": time.Since(startTime).Milliseconds(),
		"client_ip":     c.ClientIP(),
		"user_agent":    c.Request.UserAgent(),
		"request_id":    requestID,
		"request_size":  c.Request.ContentLength,
		"response_size": c.Writer.Size(),
	}).Info("HTTP request processed")
}

// LogToolCall 记录MCP工具调用日志
// err 不为空时以错误级别记录
func LogToolCall(tool string, duration time.Duration, err error, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":     ToolLog,
		"tool":     tool,
		"duration": duration.Milliseconds(),
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	if err != nil {
		fields["error"] = err.Error()
		LoggerInstance.logger.WithFields(fields).Error("MCP tool call failed")
		return
	}
	LoggerInstance.logger.WithFields(fields).Info("MCP tool call completed")
}

// LogSystemEvent 记录系统事件日志
func LogSystemEvent(component, event, message string, level LogLevel, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	entry := LoggerInstance.logger.WithFields(fields)
	msg := fmt.Sprintf("System event: %s - %s: %s", component, event, message)
	switch level {
	case DebugLevel:
		entry.Debug(msg)
	case WarnLevel:
		entry.Warn(msg)
	case ErrorLevel:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
}
