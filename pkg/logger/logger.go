package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/harrisonrobin/cloudtodo/pkg/config"
)

const timeLayout = "2006/01/02 15:04:05"

// New builds the process logger. Records go to stderr so command output on
// stdout stays parseable. When cfg.File is set, every record down to debug is
// also written as JSON to a rotating file.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		zc.DisableCaller = true
		zc.DisableStacktrace = true
	}
	zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	if cfg.File == "" {
		return log, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nil, err
	}
	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(fileEnc),
		zapcore.AddSync(rotating(cfg.File)),
		zap.DebugLevel,
	)
	return log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}

func rotating(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		LocalTime:  true,
	}
}

// Sync flushes buffered entries; stderr sync errors are ignored.
func Sync(log *zap.Logger) {
	_ = log.Sync()
}
