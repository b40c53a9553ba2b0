package frontend

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/youssefsiam38/mdchat/assistant"
	"github.com/youssefsiam38/mdchat/render"
	"github.com/youssefsiam38/mdchat/storage"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// DefaultPageSize is the number of documents or conversations listed per page.
const DefaultPageSize = 25

// ErrInvalidConfig is returned by New for a bad configuration.
var ErrInvalidConfig = errors.New("frontend: invalid configuration")

// Config holds frontend configuration.
type Config struct {
	// BasePath is the URL prefix where the app is mounted.
	// All navigation links will be prefixed with this path.
	BasePath string

	// ReadOnly disables write operations (document creation, chat).
	ReadOnly bool

	// ProductionTip enables development output: navigation is logged at
	// debug level and error pages include the underlying error.
	ProductionTip bool

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

// Frontend serves the content and chat views and their form actions.
type Frontend struct {
	store     storage.Store
	md        *render.Renderer
	responder assistant.Responder
	config    *Config
	renderer  *renderer
}

// New creates a Frontend. responder may be nil, in which case chat messages
// are stored without a reply.
func New(store storage.Store, md *render.Renderer, responder assistant.Responder, cfg *Config) (*Frontend, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if md == nil {
		return nil, fmt.Errorf("%w: renderer is required", ErrInvalidConfig)
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("%w: PageSize must be positive", ErrInvalidConfig)
	}

	f := &Frontend{
		store:     store,
		md:        md,
		responder: responder,
		config:    cfg,
	}

	// Parse the layout once. Page templates are parsed into clones by the
	// renderer to avoid conflicts between "content" blocks in different pages.
	baseTmpl, err := template.New("").
		Funcs(f.templateFuncs()).
		ParseFS(templatesFS, "templates/base.html", "templates/message.html")
	if err != nil {
		return nil, fmt.Errorf("parse base templates: %w", err)
	}
	f.renderer = newRenderer(baseTmpl, templatesFS, cfg, md.Assets())

	return f, nil
}

// Route names the views expect. The navigation highlights the link of the
// active route by name.
const (
	ContentRoute = "content"
	ChatRoute    = "chat"
)

// ContentView renders the document list and the selected document.
func (f *Frontend) ContentView() http.Handler {
	return http.HandlerFunc(f.handleContent)
}

// ChatView renders the conversation list and the selected conversation.
func (f *Frontend) ChatView() http.Handler {
	return http.HandlerFunc(f.handleChat)
}

// Shell writes the page layout with an empty view.
func (f *Frontend) Shell(w io.Writer) error {
	return f.renderer.renderShell(w)
}

// Handler returns the frontend HTTP handler. Requests that are not static
// assets, health checks or form actions are passed to views.
func (f *Frontend) Handler(views http.Handler) http.Handler {
	mux := http.NewServeMux()

	// Static assets
	staticSub, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	mux.HandleFunc("GET /healthz", handleHealthz)

	// Form actions
	mux.HandleFunc("POST /content", f.handleCreateDocument)
	mux.HandleFunc("POST /chat/send", f.handleChatSend)

	// Views
	mux.Handle("/", views)

	return withFrontendMiddleware(mux, f.config)
}

// withFrontendMiddleware wraps the handler with frontend-specific middleware.
func withFrontendMiddleware(handler http.Handler, cfg *Config) http.Handler {
	if cfg.ProductionTip {
		handler = navigationLogMiddleware(handler, cfg.Logger)
	}
	handler = frontendRecoveryMiddleware(handler, cfg.Logger, cfg.ProductionTip)
	return handler
}

// frontendRecoveryMiddleware recovers from panics.
func frontendRecoveryMiddleware(next http.Handler, logger Logger, verbose bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				if logger != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				}
				msg := "Internal Server Error"
				if verbose {
					msg = fmt.Sprintf("Internal Server Error: %v", err)
				}
				http.Error(w, msg, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// navigationLogMiddleware logs every request at debug level.
func navigationLogMiddleware(next http.Handler, logger Logger) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("navigate", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

// templateFuncs returns custom template functions.
func (f *Frontend) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatTime":    formatTime,
		"formatTimeAgo": formatTimeAgo,
		"truncate":      truncate,
		"markdown":      f.markdown,
		"inlineScript":  inlineScript,
	}
}

// markdown renders chat content with the default math engine. Failures are
// logged and shown as escaped source.
func (f *Frontend) markdown(src string) template.HTML {
	out, err := f.md.Render(src)
	if err != nil {
		f.logError("failed to render markdown", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return out
}
