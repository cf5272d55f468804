package logger

import (
	"io"
	"os"

	"sign_learn_backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "sign-learn-backend"

// Log 在 InitLogger 之前为 Nop，测试中可直接使用
var Log = zap.NewNop()

// InitLogger 文件写 JSON，标准输出写 console 格式，两路共用同一级别
func InitLogger(cfg *config.Config) {
	Log = New(cfg, os.Stdout)
}

// New 按配置构建 logger，console 为 nil 时只写文件
func New(cfg *config.Config, console io.Writer) *zap.Logger {
	level := levelFor(cfg)
	enc := encoderConfig()

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(enc), fileSink(cfg.Log), level),
	}
	if console != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(console), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)).
		With(zap.String("service", serviceName))
}

// levelFor 显式配置优先，无法解析时回退到按运行模式的默认值
func levelFor(cfg *config.Config) zapcore.Level {
	fallback := zap.InfoLevel
	if cfg.Server.Mode == "debug" {
		fallback = zap.DebugLevel
	}
	if cfg.Log.Level == "" {
		return fallback
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fallback
	}
	return level
}

func fileSink(c config.LogConfig) zapcore.WriteSyncer {
	filename := c.File
	if filename == "" {
		filename = "logs/app.log"
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   true,
	})
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
