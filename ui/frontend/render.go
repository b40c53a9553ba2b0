package frontend

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/youssefsiam38/mdchat/render"
	"github.com/youssefsiam38/mdchat/router"
)

// renderer handles template rendering.
type renderer struct {
	baseTemplate *template.Template // Layout and shared fragments
	templatesFS  fs.FS              // Embedded filesystem for page templates
	config       *Config
	assets       render.Assets
}

// newRenderer creates a new renderer.
func newRenderer(baseTemplate *template.Template, templatesFS fs.FS, cfg *Config, assets render.Assets) *renderer {
	return &renderer{
		baseTemplate: baseTemplate,
		templatesFS:  templatesFS,
		config:       cfg,
		assets:       assets,
	}
}

// PageData contains common data for all pages.
type PageData struct {
	Title        string
	BasePath     string
	CurrentRoute string // Name of the route being rendered
	ReadOnly     bool
	Assets       render.Assets
	Flash        *FlashMessage
	Data         any
}

// FlashMessage represents a flash message.
type FlashMessage struct {
	Type    string // "success", "error"
	Message string
}

// render renders a page template inside the layout.
// It clones the base template and parses the page-specific template into it,
// avoiding conflicts between "content" blocks in different pages.
func (r *renderer) render(w http.ResponseWriter, req *http.Request, name, title string, flash *FlashMessage, data any) error {
	tmpl, err := r.baseTemplate.Clone()
	if err != nil {
		return fmt.Errorf("clone template: %w", err)
	}

	pageTemplatePath := "templates/" + name
	if _, err := tmpl.ParseFS(r.templatesFS, pageTemplatePath); err != nil {
		return fmt.Errorf("parse page template %s: %w", pageTemplatePath, err)
	}

	route, _ := router.RouteFromContext(req.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", r.pageData(title, route.Name, flash, data))
}

// renderShell renders the layout with the default, empty "content" block.
func (r *renderer) renderShell(w io.Writer) error {
	tmpl, err := r.baseTemplate.Clone()
	if err != nil {
		return fmt.Errorf("clone template: %w", err)
	}
	return tmpl.ExecuteTemplate(w, "base", r.pageData("", "", nil, nil))
}

func (r *renderer) pageData(title, routeName string, flash *FlashMessage, data any) PageData {
	return PageData{
		Title:        title,
		BasePath:     r.config.BasePath,
		CurrentRoute: routeName,
		ReadOnly:     r.config.ReadOnly,
		Assets:       r.assets,
		Flash:        flash,
		Data:         data,
	}
}

// Template helper functions

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}

// truncate shortens v to at most n runes.
func truncate(n int, v any) string {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprintf("%v", v)
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:max(n, 0)])
	}
	return string(runes[:n-3]) + "..."
}

// inlineScript marks an extension's inline script as trusted JavaScript.
// Scripts come from registered extensions, never from user input.
func inlineScript(s string) template.JS {
	return template.JS(s)
}
