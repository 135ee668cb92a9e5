// Package logx builds the zap loggers used by the host programs.
package logx

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"powernode-go/errcode"
)

type Options struct {
	Level      string // debug, info, warn, error
	JSON       bool
	File       string // rotate into this file instead of stderr
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a logger for opts. The returned close func flushes and
// releases the rotating file, if any.
func New(opts Options) (*zap.Logger, func() error, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil && opts.Level != "" {
		return nil, nil, &errcode.E{C: errcode.InvalidParams, Op: "logx.level", Msg: opts.Level, Err: err}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	closeFn := func() error { return nil }
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		sink = zapcore.AddSync(lj)
		closeFn = lj.Close
	}

	log := zap.New(zapcore.NewCore(enc, sink, lvl), zap.AddCaller())
	return log, func() error {
		_ = log.Sync()
		return closeFn()
	}, nil
}

// LineWriter adapts a logger to io.Writer, logging each write as one entry
// with the trailing line ending trimmed.
type LineWriter struct {
	Log *zap.Logger
	Msg string
	Key string
}

func (w LineWriter) Write(p []byte) (int, error) {
	s := p
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	w.Log.Info(w.Msg, zap.ByteString(w.Key, s))
	return len(p), nil
}
