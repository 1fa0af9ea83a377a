package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func ParseLevel(logLevel string) zapcore.Level {
	switch logLevel {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// New 构建日志器，format 为 json 时使用生产环境的编码配置
func New(logLevel, format string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}

	cfg.Level.SetLevel(ParseLevel(logLevel))

	return cfg.Build()
}

// InitLogger 构建日志器并替换全局日志器，返回用于退出前 Sync 的函数
func InitLogger(logLevel, format string) func() {
	lgr, err := New(logLevel, format)
	if err != nil {
		panic(fmt.Errorf("构建日志器失败: %w", err))
	}

	undo := zap.ReplaceGlobals(lgr)

	return func() {
		_ = lgr.Sync()
		undo()
	}
}
