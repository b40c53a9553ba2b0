// Package mdchat is a server-rendered markdown and chat application with
// math typesetting.
//
// An App wires three pieces together:
//   - a rendering-extension registry (markdown, KaTeX, MathJax) built into a
//     render.Renderer
//   - a static route table, "/" to the content view and "/chat" to the chat
//     view
//   - a storage.Store holding documents and conversations
//
// Views render into the element of the page shell selected by MountSelector.
//
// # Quick Start
//
//	app, err := mdchat.New(storage.NewMemoryStore(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", app)
//
// # PostgreSQL
//
//	pool, _ := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
//	drv := pgxv5.New(pool)
//	if err := driver.Migrate(ctx, drv.GetExecutor()); err != nil {
//	    log.Fatal(err)
//	}
//	app, _ := mdchat.New(drv.GetStore(), nil)
//
// # Chat replies
//
//	responder, _ := assistant.NewAnthropic(assistant.Config{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	app, _ := mdchat.New(store, &mdchat.Config{Responder: responder})
//
// # Configuration
//
//	cfg := &mdchat.Config{
//	    BasePath:      "/md",   // Mount under a prefix
//	    ReadOnly:      true,    // Disable document creation and chat
//	    ProductionTip: false,   // Development diagnostics off
//	    PageSize:      25,
//	}
//
// The app is a standard http.Handler:
//
//	http.Handle("/md/", http.StripPrefix("/md", app))
package mdchat
