package logger

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger = zap.NewNop()
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init configures JSONL logging into log/app.log.
func Init(baseDir string) error {
	logDir := filepath.Join(baseDir, "log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logDir, "app.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	SetCore(zapcore.AddSync(f))
	return nil
}

// SetCore redirects log output to ws.
func SetCore(ws zapcore.WriteSyncer) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.LevelKey = "level"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, level)

	mu.Lock()
	logger = zap.New(core)
	mu.Unlock()
}

func SetDebug(enabled bool) {
	if enabled {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(zapcore.InfoLevel)
}

func Sync() {
	mu.Lock()
	l := logger
	mu.Unlock()
	_ = l.Sync()
}

func Debug(msg string, fields map[string]any) {
	write(zapcore.DebugLevel, msg, fields)
}

func Info(msg string, fields map[string]any) {
	write(zapcore.InfoLevel, msg, fields)
}

func Warn(msg string, fields map[string]any) {
	write(zapcore.WarnLevel, msg, fields)
}

func Error(msg string, fields map[string]any) {
	write(zapcore.ErrorLevel, msg, fields)
}

func write(lvl zapcore.Level, msg string, fields map[string]any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	if ce := l.Check(lvl, msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

func toZapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
