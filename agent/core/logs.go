package core

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logs struct {
	Dir       string
	HumanPath string
	DebugPath string

	HumanLogger *zap.SugaredLogger
	DebugLogger *zap.SugaredLogger

	humanZap  *zap.Logger
	debugZap  *zap.Logger
	humanFile *os.File
	debugFile *os.File
}

func (l *Logs) SyncHuman() {
	if l.humanZap != nil {
		_ = l.humanZap.Sync()
	}
}

func (l *Logs) SyncDebug() {
	if l.debugZap != nil {
		_ = l.debugZap.Sync()
	}
}

func (l *Logs) Close() {
	l.SyncHuman()
	l.SyncDebug()
	if l.humanFile != nil {
		_ = l.humanFile.Close()
	}
	if l.debugFile != nil {
		_ = l.debugFile.Close()
	}
}

// NewLogs opens the two agent log files under dir/logs: a line-oriented
// transcript and a JSONL debug stream.
func NewLogs(dir string) (*Logs, error) {
	dir = filepath.Join(dir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	humanPath := filepath.Join(dir, "agent.transcript.log")
	debugPath := filepath.Join(dir, "agent.debug.jsonl")

	humanSug, humanZap, humanFile, err := newFileLogger(humanPath, zapcore.InfoLevel, false)
	if err != nil {
		return nil, err
	}

	debugSug, debugZap, debugFile, err := newFileLogger(debugPath, zapcore.DebugLevel, true)
	if err != nil {
		_ = humanZap.Sync()
		_ = humanFile.Close()
		return nil, err
	}

	return &Logs{
		Dir:         dir,
		HumanPath:   humanPath,
		DebugPath:   debugPath,
		HumanLogger: humanSug,
		DebugLogger: debugSug,
		humanZap:    humanZap,
		debugZap:    debugZap,
		humanFile:   humanFile,
		debugFile:   debugFile,
	}, nil
}

func newFileLogger(path string, level zapcore.Level, json bool) (*zap.SugaredLogger, *zap.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	zl := zap.New(zapcore.NewCore(enc, zapcore.AddSync(f), level))
	return zl.Sugar(), zl, f, nil
}
