package api

import (
	"net/http"

	"github.com/youssefsiam38/mdchat/render"
	"github.com/youssefsiam38/mdchat/storage"
)

// Page size bounds for list endpoints.
const (
	DefaultPageSize = 25
	MinPageLimit    = 1
	MaxPageLimit    = 100
)

// Config holds API router configuration.
type Config struct {
	// ReadOnly rejects POST /documents with 403.
	ReadOnly bool

	// PageSize for pagination.
	PageSize int

	// Logger for structured logging.
	Logger Logger
}

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// router holds the API router state.
type router struct {
	store  storage.Store
	md     *render.Renderer
	config *Config
}

// NewRouter creates a new API router.
func NewRouter(store storage.Store, md *render.Renderer, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}

	r := &router{
		store:  store,
		md:     md,
		config: cfg,
	}

	mux := http.NewServeMux()

	// Documents
	mux.HandleFunc("GET /documents", r.handleListDocuments)
	mux.HandleFunc("GET /documents/{id}", r.handleGetDocument)
	mux.HandleFunc("POST /documents", r.handleCreateDocument)

	// Conversations
	mux.HandleFunc("GET /conversations", r.handleListConversations)
	mux.HandleFunc("GET /conversations/{id}", r.handleGetConversation)

	// Rendering
	mux.HandleFunc("GET /engines", r.handleListEngines)
	mux.HandleFunc("POST /render", r.handleRender)

	return withMiddleware(mux, cfg)
}

// withMiddleware wraps the handler with common middleware.
func withMiddleware(handler http.Handler, cfg *Config) http.Handler {
	handler = jsonMiddleware(handler)
	handler = recoveryMiddleware(handler, cfg.Logger)
	return handler
}

// jsonMiddleware sets JSON content type for all responses.
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func recoveryMiddleware(next http.Handler, logger Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				if logger != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				}
				http.Error(w, `{"error":{"code":"internal_error","message":"internal server error"}}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
