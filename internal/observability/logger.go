package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/webviewer/tvmon/internal/config"
)

// NewLogger builds the monitor logger: a console core plus, when a log
// file is configured, a JSON file core behind lumberjack rotation.
func NewLogger(cfg *config.Config, console zapcore.WriteSyncer) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	consoleEncoderCfg := encoderCfg
	consoleEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), console, level),
	}

	if cfg.LogFile != "" {
		// lumberjack handles rotation and thread-safe writes.
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   cfg.LogCompress,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileWriter, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).Named("tvmon")
}

// NewStderrLogger is the production convenience wrapper: console output
// goes to a locked stderr so log lines never interleave with command
// output on stdout.
func NewStderrLogger(cfg *config.Config) *zap.Logger {
	return NewLogger(cfg, zapcore.Lock(os.Stderr))
}
