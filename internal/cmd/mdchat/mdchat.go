// Package mdchat parses server command flags and runs the HTTP server.
package mdchat

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/youssefsiam38/mdchat"
	"github.com/youssefsiam38/mdchat/assistant"
	"github.com/youssefsiam38/mdchat/driver"
	"github.com/youssefsiam38/mdchat/driver/databasesql"
	"github.com/youssefsiam38/mdchat/driver/pgxv5"
	"github.com/youssefsiam38/mdchat/storage"
)

// Storage drivers accepted by -db-driver.
const (
	DriverPgx         = "pgx"
	DriverDatabaseSQL = "databasesql"
)

// Config holds server command configuration.
type Config struct {
	HTTPAddr        string        `env:"MDCHAT_HTTP_ADDR"        envDefault:":8080"`
	DatabaseURL     string        `env:"MDCHAT_DATABASE_URL"`
	DBDriver        string        `env:"MDCHAT_DB_DRIVER"        envDefault:"pgx"`
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	Model           string        `env:"MDCHAT_MODEL"`
	MathJaxSrc      string        `env:"MDCHAT_MATHJAX_SRC"`
	ReadOnly        bool          `env:"MDCHAT_READ_ONLY"`
	ProductionTip   bool          `env:"MDCHAT_PRODUCTION_TIP"`
	LogLevel        string        `env:"MDCHAT_LOG_LEVEL"        envDefault:"info"`
	ShutdownTimeout time.Duration `env:"MDCHAT_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL URL; empty keeps data in memory")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "PostgreSQL driver: pgx or databasesql")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Claude model for chat replies")
	fs.StringVar(&cfg.MathJaxSrc, "mathjax-src", cfg.MathJaxSrc, "MathJax loader script URL")
	fs.BoolVar(&cfg.ReadOnly, "read-only", cfg.ReadOnly, "disable document creation and chat")
	fs.BoolVar(&cfg.ProductionTip, "production-tip", cfg.ProductionTip, "enable development diagnostics")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger returns a JSON logger at the configured level. ProductionTip
// lowers the level to debug so navigation is visible.
func NewLogger(cfg Config, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if cfg.ProductionTip {
		level = min(level, slog.LevelDebug)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// Run builds the app and serves it until ctx is done.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var responder assistant.Responder
	if cfg.AnthropicAPIKey != "" {
		responder, err = assistant.NewAnthropic(assistant.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.Model,
		})
		if err != nil {
			return fmt.Errorf("create assistant: %w", err)
		}
	} else {
		logger.Info("ANTHROPIC_API_KEY not set, chat replies disabled")
	}

	app, err := mdchat.New(store, &mdchat.Config{
		ReadOnly:      cfg.ReadOnly,
		ProductionTip: cfg.ProductionTip,
		MathJaxSrc:    cfg.MathJaxSrc,
		Responder:     responder,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// OpenStore opens the configured store and applies migrations. The returned
// function releases its connections.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (storage.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory store")
		return storage.NewMemoryStore(), func() {}, nil
	}

	switch strings.ToLower(cfg.DBDriver) {
	case DriverPgx, "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		drv := pgxv5.New(pool)
		if err := driver.Migrate(ctx, drv.GetExecutor()); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("using PostgreSQL store", "driver", DriverPgx)
		return drv.GetStore(), pool.Close, nil

	case DriverDatabaseSQL:
		db, err := databasesql.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		drv := databasesql.New(db)
		if err := driver.Migrate(ctx, drv.GetExecutor()); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("using PostgreSQL store", "driver", DriverDatabaseSQL)
		return drv.GetStore(), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown db driver %q: want %s or %s", cfg.DBDriver, DriverPgx, DriverDatabaseSQL)
	}
}
