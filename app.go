package mdchat

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/youssefsiam38/mdchat/render"
	"github.com/youssefsiam38/mdchat/router"
	"github.com/youssefsiam38/mdchat/storage"
	"github.com/youssefsiam38/mdchat/ui/api"
	"github.com/youssefsiam38/mdchat/ui/frontend"
)

// App is one mounted application instance. It owns its router, store and
// renderer for its lifetime.
type App struct {
	registry *render.Registry
	renderer *render.Renderer
	router   *router.Router
	store    storage.Store
	config   *Config
	handler  http.Handler
}

// New creates an application instance.
//
// It registers the markdown, KaTeX and MathJax extensions in that order,
// builds the route table from Routes and mounts the views into the page
// element selected by MountSelector. The JSON API is served under /api.
// A nil store selects an in-memory store.
//
// Example:
//
//	app, err := mdchat.New(storage.NewMemoryStore(), &mdchat.Config{
//	    Logger: slog.Default(),
//	})
//	if err != nil {
//	    return err
//	}
//	http.ListenAndServe(":8080", app)
func New(store storage.Store, cfg *Config) (*App, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		c := *cfg
		cfg = &c
		cfg.applyDefaults()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	app := &App{
		registry: render.NewRegistry(),
		store:    store,
		config:   cfg,
	}

	for _, ext := range []render.Extension{
		render.Markdown(),
		render.KaTeX(),
		render.MathJax(render.MathJaxOptions{Src: cfg.MathJaxSrc}),
	} {
		if err := app.registry.Register(ext); err != nil {
			return nil, fmt.Errorf("register %s: %w", ext.Name(), err)
		}
	}

	md, err := app.registry.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	app.renderer = md

	fe, err := frontend.New(store, md, cfg.Responder, &frontend.Config{
		BasePath:      cfg.BasePath,
		ReadOnly:      cfg.ReadOnly,
		ProductionTip: cfg.ProductionTip,
		PageSize:      cfg.PageSize,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create frontend: %w", err)
	}

	routes, err := bindRoutes(map[string]router.View{
		ContentRoute: fe.ContentView(),
		ChatRoute:    fe.ChatView(),
	})
	if err != nil {
		return nil, err
	}
	app.router, err = router.New(routes...)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	if err := app.mount(fe); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", api.NewRouter(store, md, &api.Config{
		ReadOnly: cfg.ReadOnly,
		PageSize: cfg.PageSize,
		Logger:   cfg.Logger,
	})))
	// Without this, ServeMux would redirect /api to /api/.
	mux.Handle("/api", http.NotFoundHandler())
	mux.Handle("/", fe.Handler(app.router))
	app.handler = mux

	app.logInfo("app mounted",
		"selector", MountSelector,
		"extensions", app.registry.Names(),
		"engines", md.Engines(),
		"read_only", cfg.ReadOnly,
	)
	if cfg.ProductionTip {
		app.logInfo("mdchat is running in development mode. Disable ProductionTip when deploying for production.")
	}

	return app, nil
}

// mount renders the page shell once and checks that it contains the
// element the views render into.
func (a *App) mount(fe *frontend.Frontend) error {
	var buf bytes.Buffer
	if err := fe.Shell(&buf); err != nil {
		return fmt.Errorf("render shell: %w", err)
	}
	if _, err := findMountPoint(&buf, MountSelector); err != nil {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Extensions returns the names of the registered rendering extensions in
// registration order.
func (a *App) Extensions() []string {
	return a.registry.Names()
}

// Renderer returns the markdown renderer.
func (a *App) Renderer() *render.Renderer {
	return a.renderer
}

// Router returns the route table.
func (a *App) Router() *router.Router {
	return a.router
}

// Store returns the store the views read from.
func (a *App) Store() storage.Store {
	return a.store
}

func (a *App) logInfo(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Info(msg, args...)
	}
}
