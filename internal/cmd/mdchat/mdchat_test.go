package mdchat

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/youssefsiam38/mdchat/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(flag.NewFlagSet("mdchat", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.DBDriver != DriverPgx {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverPgx)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestParseConfig_Env(t *testing.T) {
	t.Setenv("MDCHAT_HTTP_ADDR", ":9000")
	t.Setenv("MDCHAT_DB_DRIVER", DriverDatabaseSQL)
	t.Setenv("MDCHAT_READ_ONLY", "true")
	t.Setenv("MDCHAT_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := ParseConfig(flag.NewFlagSet("mdchat", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.DBDriver != DriverDatabaseSQL {
		t.Errorf("DBDriver = %q", cfg.DBDriver)
	}
	if !cfg.ReadOnly {
		t.Error("Expected ReadOnly from env")
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.AnthropicAPIKey != "sk-test" {
		t.Errorf("AnthropicAPIKey = %q", cfg.AnthropicAPIKey)
	}
}

func TestParseConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("MDCHAT_HTTP_ADDR", ":9000")

	args := []string{"-http-addr", ":9100", "-production-tip", "-mathjax-src", "https://example.com/m.js"}
	cfg, err := ParseConfig(flag.NewFlagSet("mdchat", flag.ContinueOnError), args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":9100" {
		t.Errorf("HTTPAddr = %q, want :9100", cfg.HTTPAddr)
	}
	if !cfg.ProductionTip {
		t.Error("Expected ProductionTip from flag")
	}
	if cfg.MathJaxSrc != "https://example.com/m.js" {
		t.Errorf("MathJaxSrc = %q", cfg.MathJaxSrc)
	}
}

func TestParseConfig_InvalidEnv(t *testing.T) {
	t.Setenv("MDCHAT_READ_ONLY", "maybe")

	if _, err := ParseConfig(flag.NewFlagSet("mdchat", flag.ContinueOnError), nil); err == nil {
		t.Fatal("Expected error for invalid boolean")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{LogLevel: "warn"}, &buf)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected log output: %s", buf.String())
	}

	buf.Reset()
	logger, err = NewLogger(Config{LogLevel: "warn", ProductionTip: true}, &buf)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debug("navigate")
	if !strings.Contains(buf.String(), "navigate") {
		t.Error("Expected debug output with ProductionTip")
	}

	if _, err := NewLogger(Config{LogLevel: "loud"}, &buf); err == nil {
		t.Error("Expected error for unknown log level")
	}
}

func TestOpenStore_Memory(t *testing.T) {
	store, closeStore, err := OpenStore(context.Background(), Config{}, discardLogger())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*storage.MemoryStore); !ok {
		t.Errorf("Expected *storage.MemoryStore, got %T", store)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://localhost/mdchat", DBDriver: "sqlite"}
	_, _, err := OpenStore(context.Background(), cfg, discardLogger())
	if err == nil || !strings.Contains(err.Error(), "unknown db driver") {
		t.Fatalf("Expected unknown driver error, got %v", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPAddr: "127.0.0.1:0", ShutdownTimeout: time.Second}, discardLogger())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	err := Run(context.Background(), Config{HTTPAddr: "127.0.0.1:-1"}, discardLogger())
	if err == nil || !strings.Contains(err.Error(), "listen") {
		t.Fatalf("Expected listen error, got %v", err)
	}
}
