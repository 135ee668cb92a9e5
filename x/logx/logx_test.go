package logx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("bad level accepted")
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest.log")
	log, closeFn, err := New(Options{Level: "info", JSON: true, File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("reading", zap.Uint32("pA", 600))
	log.Debug("hidden")
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"pA":600`) || strings.Contains(string(raw), "hidden") {
		t.Fatalf("log file: %s", raw)
	}
}

func TestLineWriterTrimsLineEnding(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	w := LineWriter{Log: zap.New(core), Msg: "telemetry", Key: "json"}
	n, err := w.Write([]byte("{\"t\":1}\r\n"))
	if err != nil || n != 9 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["json"] != `{"t":1}` {
		t.Fatalf("entries=%v", entries)
	}
}
