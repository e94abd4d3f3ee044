package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logger used across the app. Every entry names the
// module it came from and carries optional details.
type Logger interface {
	Debug(module, message string, details map[string]any)
	Info(module, message string, details map[string]any)
	Warn(module, message string, details map[string]any)
	Error(module, message string, details map[string]any)
	Sync() error
}

// Options configures New.
type Options struct {
	// File receives JSON lines, rotated by size. Empty disables the file sink.
	File string
	// Production switches the console encoder to JSON.
	Production bool
	// Debug lowers the console level to debug; otherwise console shows warnings and up.
	Debug bool
	// Console is the console sink. Defaults to stderr.
	Console zapcore.WriteSyncer
}

type ZapLogger struct {
	logger *zap.Logger
}

// New builds a zap logger that tees a rotated JSON file with a console core.
func New(opt Options) (*ZapLogger, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.MessageKey = "message"
	encCfg.LevelKey = "level"
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encCfg)

	var cores []zapcore.Core
	if opt.File != "" {
		if err := os.MkdirAll(filepath.Dir(opt.File), 0o755); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), zap.InfoLevel))
	}

	console := opt.Console
	if console == nil {
		console = zapcore.Lock(os.Stderr)
	}
	consoleEncoder := jsonEncoder
	if !opt.Production {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	level := zap.WarnLevel
	if opt.Debug {
		level = zap.DebugLevel
	}
	cores = append(cores, zapcore.NewCore(consoleEncoder, console, level))

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &ZapLogger{logger: l}, nil
}

// Nop returns a logger that discards everything.
func Nop() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

// fields flattens error values to their message so the encoder does not
// reflect them into {}. An "error" detail is also lifted to zap.Error.
func fields(module string, details map[string]any) []zap.Field {
	clean := make(map[string]any, len(details))
	var lifted error
	for k, v := range details {
		if err, ok := v.(error); ok && err != nil {
			clean[k] = err.Error()
			if k == "error" {
				lifted = err
			}
			continue
		}
		clean[k] = v
	}
	fs := []zap.Field{zap.String("module", module), zap.Any("details", clean)}
	if lifted != nil {
		fs = append(fs, zap.Error(lifted))
	}
	return fs
}

func (l *ZapLogger) Debug(module, message string, details map[string]any) {
	l.logger.Debug(message, fields(module, details)...)
}

func (l *ZapLogger) Info(module, message string, details map[string]any) {
	l.logger.Info(message, fields(module, details)...)
}

func (l *ZapLogger) Warn(module, message string, details map[string]any) {
	l.logger.Warn(message, fields(module, details)...)
}

func (l *ZapLogger) Error(module, message string, details map[string]any) {
	l.logger.Error(message, fields(module, details)...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
