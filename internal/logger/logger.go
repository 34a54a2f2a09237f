package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aliskhannn/lesson-engine/internal/config"
)

// New builds the application logger. Production uses JSON on stdout,
// everything else the development console encoder. When cfg.Log.File is set,
// entries are also written as JSON to a rotated file.
func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.File == "" {
		if cfg.Env == "production" {
			return zap.NewProduction()
		}
		return zap.NewDevelopment()
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.InfoLevel
	consoleEncoder := zapcore.NewJSONEncoder(encoderConfig)
	if cfg.Env != "production" {
		level = zap.DebugLevel
		devConfig := zap.NewDevelopmentEncoderConfig()
		consoleEncoder = zapcore.NewConsoleEncoder(devConfig)
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level),
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)), nil
}
