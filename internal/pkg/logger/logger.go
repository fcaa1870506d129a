/**
 * 日志管理器
 * @author: sun977
 * @date: 2025.10.21
 * @description: 基于 logrus 的全局日志实例，stdio 传输下标准输出承载 JSON-RPC，日志不得写入 stdout
 */
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gonkawada/analyze-vt-mcp/internal/config"
)

// LoggerManager 日志管理器
type LoggerManager struct {
	logger *logrus.Logger
	config *config.LogConfig
}

// LoggerInstance 全局日志实例，InitLogger 之前为 nil
var LoggerInstance *LoggerManager

// InitLogger 按配置创建 logrus 实例并设置为全局实例
func InitLogger(cfg *config.LogConfig) (*LoggerManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("log config cannot be nil")
	}

	formatter, err := newFormatter(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to set log formatter: %w", err)
	}
	out, err := openOutput(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set log output: %w", err)
	}

	l := logrus.New()
	l.SetFormatter(formatter)
	l.SetOutput(out)
	l.SetReportCaller(cfg.Caller)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("Invalid log level '%s', using 'info' as default", cfg.Level)
	}
	l.SetLevel(level)

	LoggerInstance = &LoggerManager{logger: l, config: cfg}
	return LoggerInstance, nil
}

// newFormatter json 用于日志采集，text 用于终端
func newFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
				logrus.FieldKeyFunc: "function",
			},
		}, nil
	case "text":
		return &logrus.TextFormatter{
			TimestampFormat: TimestampFormat,
			FullTimestamp:   true,
			ForceColors:     true,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// openOutput 打开日志输出，file 模式使用 lumberjack 轮转
func openOutput(cfg *config.LogConfig) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file path is required when output is file")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotate := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // 天
			Compress:   cfg.Compress,
		}
		// debug 级别同时输出到 stderr，stdio 模式下也不会污染 stdout
		if strings.EqualFold(cfg.Level, "debug") {
			return io.MultiWriter(os.Stderr, rotate), nil
		}
		return rotate, nil
	default:
		return nil, fmt.Errorf("unsupported log output: %s", cfg.Output)
	}
}

// GetLogger 获取logrus实例
func (lm *LoggerManager) GetLogger() *logrus.Logger {
	return lm.logger
}

// ProtectStdout 返回不写标准输出的日志配置副本，stdio 传输模式下使用
func ProtectStdout(cfg *config.LogConfig) *config.LogConfig {
	if cfg == nil {
		return nil
	}
	safe := *cfg
	if strings.EqualFold(safe.Output, "stdout") {
		safe.Output = "stderr"
	}
	return &safe
}

// entry 未初始化时退回标准 logger
func entry() *logrus.Entry {
	if LoggerInstance != nil {
		return logrus.NewEntry(LoggerInstance.logger)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Info 记录信息日志
func Info(args ...interface{}) {
	entry().Info(args...)
}

// Warn 记录警告日志
func Warn(args ...interface{}) {
	entry().Warn(args...)
}

// Error 记录错误日志
func Error(args ...interface{}) {
	entry().Error(args...)
}

// WithField 添加单个字段
func WithField(key string, value interface{}) *logrus.Entry {
	return entry().WithField(key, value)
}

// WithFields 添加多个字段
func WithFields(fields logrus.Fields) *logrus.Entry {
	return entry().WithFields(fields)
}
