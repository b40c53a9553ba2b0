package frontend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/youssefsiam38/mdchat/assistant"
	"github.com/youssefsiam38/mdchat/render"
	"github.com/youssefsiam38/mdchat/router"
	"github.com/youssefsiam38/mdchat/storage"
)

// recordingLogger captures log calls.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg)
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.log("debug", msg) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log("info", msg) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("warn", msg) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("error", msg) }

func (l *recordingLogger) has(line string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.lines {
		if got == line {
			return true
		}
	}
	return false
}

type testApp struct {
	frontend *Frontend
	store    *storage.MemoryStore
	handler  http.Handler
}

func newTestRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	reg := render.NewRegistry()
	reg.MustRegister(render.Markdown())
	reg.MustRegister(render.KaTeX())
	reg.MustRegister(render.MathJax(render.MathJaxOptions{}))
	md, err := reg.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return md
}

func newTestApp(t *testing.T, cfg *Config, responder assistant.Responder) *testApp {
	t.Helper()
	store := storage.NewMemoryStore()
	f, err := New(store, newTestRenderer(t), responder, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rt, err := router.New(
		router.Route{Path: "/", Name: ContentRoute, View: f.ContentView()},
		router.Route{Path: "/chat", Name: ChatRoute, View: f.ChatView()},
	)
	if err != nil {
		t.Fatalf("router.New failed: %v", err)
	}
	return &testApp{frontend: f, store: store, handler: f.Handler(rt)}
}

func (a *testApp) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (a *testApp) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func echoResponder(prefix string) assistant.Responder {
	return assistant.ResponderFunc(func(ctx context.Context, history []*storage.Message) (string, error) {
		return prefix + history[len(history)-1].Content, nil
	})
}

func TestNew_Validation(t *testing.T) {
	md := newTestRenderer(t)
	store := storage.NewMemoryStore()

	if _, err := New(nil, md, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for nil store, got %v", err)
	}
	if _, err := New(store, nil, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for nil renderer, got %v", err)
	}
	if _, err := New(store, md, nil, &Config{PageSize: -1}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for negative page size, got %v", err)
	}

	f, err := New(store, md, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if f.config.PageSize != DefaultPageSize {
		t.Errorf("Expected default page size %d, got %d", DefaultPageSize, f.config.PageSize)
	}
}

func TestShell(t *testing.T) {
	app := newTestApp(t, nil, nil)

	var buf bytes.Buffer
	if err := app.frontend.Shell(&buf); err != nil {
		t.Fatalf("Shell failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<main id="app"`,
		render.KaTeXStylesheet,
		render.KaTeXScript,
		"cdnjs.cloudflare.com/ajax/libs/mathjax/2.7.7/MathJax.js",
		"katex.render(",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected shell to contain %q", want)
		}
	}

	// The layout can be rendered repeatedly.
	buf.Reset()
	if err := app.frontend.Shell(&buf); err != nil {
		t.Fatalf("second Shell failed: %v", err)
	}
}

func TestNavigation_ActiveRoute(t *testing.T) {
	app := newTestApp(t, nil, nil)

	tests := []struct {
		target   string
		active   string
		inactive string
	}{
		{"/", `class="nav-link active">Content`, `class="nav-link active">Chat`},
		{"/chat", `class="nav-link active">Chat`, `class="nav-link active">Content`},
	}
	for _, tt := range tests {
		body := app.get(t, tt.target).Body.String()
		if !strings.Contains(body, tt.active) {
			t.Errorf("GET %s: expected %q", tt.target, tt.active)
		}
		if strings.Contains(body, tt.inactive) {
			t.Errorf("GET %s: unexpected %q", tt.target, tt.inactive)
		}
	}
}

func TestContentView_Empty(t *testing.T) {
	app := newTestApp(t, nil, nil)

	rec := app.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No documents yet.") {
		t.Error("Expected empty document list")
	}
	if !strings.Contains(body, `action="/content"`) {
		t.Error("Expected new document form")
	}
}

func TestCreateDocument_RedirectsAndRenders(t *testing.T) {
	app := newTestApp(t, nil, nil)

	rec := app.post(t, "/content", url.Values{
		"title": {"Pythagoras"},
		"body":  {"# Theorem\n\nFor a right triangle $a^2 + b^2 = c^2$.\n\n$$\n\\sum_{i=1}^n i\n$$\n"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/?doc=") {
		t.Fatalf("Expected redirect to the document, got %q", location)
	}

	rec = app.get(t, location)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Pythagoras",
		"Document saved",
		`<span class="math math-katex" data-display="false">a^2 + b^2 = c^2</span>`,
		`<div class="math">`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
}

func TestContentView_DefaultsToNewest(t *testing.T) {
	app := newTestApp(t, nil, nil)
	ctx := context.Background()

	if _, err := app.store.CreateDocument(ctx, "Older", "older body"); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if _, err := app.store.CreateDocument(ctx, "Newer", "newer body"); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	rec := app.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "newer body") {
		t.Error("Expected the newest document to be selected")
	}
}

func TestContentView_Engine(t *testing.T) {
	app := newTestApp(t, nil, nil)
	doc, err := app.store.CreateDocument(context.Background(), "Euler", "$e^{i\\pi} = -1$")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	rec := app.get(t, "/?doc="+doc.ID.String()+"&engine=mathjax")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `<span class="math math-mathjax">\(`) {
		t.Error("Expected MathJax markup")
	}

	rec = app.get(t, "/?doc="+doc.ID.String()+"&engine=nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown engine, got %d", rec.Code)
	}
}

func TestContentView_Errors(t *testing.T) {
	app := newTestApp(t, nil, nil)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"invalid id", "/?doc=not-a-uuid", http.StatusBadRequest},
		{"unknown id", "/?doc=00000000-0000-0000-0000-000000000001", http.StatusNotFound},
		{"unmatched path", "/content", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := app.get(t, tt.target); rec.Code != tt.want {
				t.Errorf("GET %s: expected %d, got %d", tt.target, tt.want, rec.Code)
			}
		})
	}
}

func TestContentView_Sanitizes(t *testing.T) {
	app := newTestApp(t, nil, nil)
	doc, err := app.store.CreateDocument(context.Background(), "<b>bold title</b>", "<script>alert(1)</script>\n\nhello <img src=x onerror=alert(2)>")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	body := app.get(t, "/?doc="+doc.ID.String()).Body.String()
	if strings.Contains(body, "alert(1)") || strings.Contains(body, "onerror") {
		t.Error("Expected scripts and handlers to be stripped")
	}
	if strings.Contains(body, "<b>bold title</b>") {
		t.Error("Expected title to be escaped")
	}
}

func TestContentView_Pagination(t *testing.T) {
	app := newTestApp(t, &Config{PageSize: 2}, nil)
	for i := range 3 {
		if _, err := app.store.CreateDocument(context.Background(), fmt.Sprintf("doc %d", i), "body"); err != nil {
			t.Fatalf("CreateDocument failed: %v", err)
		}
	}

	body := app.get(t, "/").Body.String()
	if !strings.Contains(body, "/?offset=2") {
		t.Error("Expected a link to the next page")
	}

	body = app.get(t, "/?offset=2").Body.String()
	if strings.Contains(body, "/?offset=4") {
		t.Error("Expected no link past the last page")
	}
	if !strings.Contains(body, "/?offset=0") {
		t.Error("Expected a link to the previous page")
	}
}

// escapedText returns n bytes of math-heavy text that percent-encodes to
// about three times its size.
func escapedText(n int) string {
	return strings.Repeat("$\\{}^\n", n/6+1)[:n-1] + "x"
}

func TestCreateDocument_Validation(t *testing.T) {
	app := newTestApp(t, nil, nil)

	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"missing title", url.Values{"body": {"x"}}, http.StatusBadRequest},
		{"blank title", url.Values{"title": {"   "}}, http.StatusBadRequest},
		{"long title", url.Values{"title": {strings.Repeat("t", maxTitleLength+1)}}, http.StatusBadRequest},
		{"large body", url.Values{"title": {"t"}, "body": {strings.Repeat("b", maxBodyBytes+1)}}, http.StatusRequestEntityTooLarge},
		{"oversized form", url.Values{"title": {"t"}, "body": {strings.Repeat("b", maxFormBytes)}}, http.StatusRequestEntityTooLarge},
		{"max title", url.Values{"title": {strings.Repeat("é", maxTitleLength)}}, http.StatusSeeOther},
		{"escaped body at limit", url.Values{"title": {"t"}, "body": {escapedText(maxBodyBytes)}}, http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := app.post(t, "/content", tt.form); rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestReadOnly(t *testing.T) {
	app := newTestApp(t, &Config{ReadOnly: true}, echoResponder(""))

	if rec := app.post(t, "/content", url.Values{"title": {"t"}}); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for POST /content, got %d", rec.Code)
	}
	if rec := app.post(t, "/chat/send", url.Values{"message": {"hi"}}); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for POST /chat/send, got %d", rec.Code)
	}

	body := app.get(t, "/").Body.String()
	if strings.Contains(body, `action="/content"`) {
		t.Error("Expected no document form in read-only mode")
	}
	body = app.get(t, "/chat").Body.String()
	if !strings.Contains(body, "Chat is disabled in read-only mode.") {
		t.Error("Expected read-only notice in chat")
	}
}

func TestChatSend_NewConversationWithReply(t *testing.T) {
	app := newTestApp(t, nil, echoResponder("You said: "))

	rec := app.post(t, "/chat/send", url.Values{"message": {"what is $\\sqrt{2}$?\nsecond line"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/chat?conversation=") {
		t.Fatalf("Expected redirect to the conversation, got %q", location)
	}

	convs, err := app.store.ListConversations(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("Expected 1 conversation, got %d", len(convs))
	}
	if convs[0].Title != "what is $\\sqrt{2}$?" {
		t.Errorf("Expected title from first line, got %q", convs[0].Title)
	}

	msgs, err := app.store.ListMessages(context.Background(), convs[0].ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != storage.RoleUser || msgs[1].Role != storage.RoleAssistant {
		t.Fatalf("Expected user message and reply, got %+v", msgs)
	}
	if !strings.HasPrefix(msgs[1].Content, "You said: ") {
		t.Errorf("Unexpected reply %q", msgs[1].Content)
	}

	rec = app.get(t, location)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<span class="math math-katex" data-display="false">\sqrt{2}</span>`) {
		t.Error("Expected chat messages to be rendered with math")
	}
	if !strings.Contains(body, `name="conversation_id" value="`+convs[0].ID.String()+`"`) {
		t.Error("Expected the form to continue the conversation")
	}
}

func TestChatSend_ExistingConversation(t *testing.T) {
	app := newTestApp(t, nil, nil)
	conv, err := app.store.CreateConversation(context.Background(), "existing")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	rec := app.post(t, "/chat/send", url.Values{"message": {"hello"}, "conversation_id": {conv.ID.String()}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", rec.Code)
	}

	msgs, err := app.store.ListMessages(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("Expected only the user message without a responder, got %+v", msgs)
	}
}

func TestChatSend_ReplyFailure(t *testing.T) {
	logger := &recordingLogger{}
	failing := assistant.ResponderFunc(func(ctx context.Context, history []*storage.Message) (string, error) {
		return "", errors.New("upstream unavailable")
	})
	app := newTestApp(t, &Config{Logger: logger}, failing)

	rec := app.post(t, "/chat/send", url.Values{"message": {"hi"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.Contains(location, "failed=1") {
		t.Errorf("Expected failure flag in redirect, got %q", location)
	}
	if !logger.has("warn assistant reply failed") {
		t.Error("Expected reply failure to be logged")
	}

	body := app.get(t, location).Body.String()
	if !strings.Contains(body, "The assistant could not reply.") {
		t.Error("Expected failure notice")
	}
}

func TestChatSend_Errors(t *testing.T) {
	app := newTestApp(t, nil, nil)

	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"missing message", url.Values{}, http.StatusBadRequest},
		{"blank message", url.Values{"message": {"  \n "}}, http.StatusBadRequest},
		{"invalid conversation", url.Values{"message": {"hi"}, "conversation_id": {"nope"}}, http.StatusBadRequest},
		{"unknown conversation", url.Values{"message": {"hi"}, "conversation_id": {"00000000-0000-0000-0000-000000000001"}}, http.StatusNotFound},
		{"large message", url.Values{"message": {strings.Repeat("m", maxBodyBytes+1)}}, http.StatusRequestEntityTooLarge},
		{"escaped message at limit", url.Values{"message": {escapedText(maxBodyBytes)}}, http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := app.post(t, "/chat/send", tt.form); rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestChatView_Errors(t *testing.T) {
	app := newTestApp(t, nil, nil)

	if rec := app.get(t, "/chat?conversation=bad"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if rec := app.get(t, "/chat?conversation=00000000-0000-0000-0000-000000000001"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if rec := app.get(t, "/chat"); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestHealthzAndStatic(t *testing.T) {
	app := newTestApp(t, nil, nil)

	rec := app.get(t, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("Expected 200 ok, got %d %q", rec.Code, rec.Body.String())
	}

	for _, asset := range []string{"/static/app.js", "/static/app.css"} {
		if rec := app.get(t, asset); rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", asset, rec.Code)
		}
	}
	if rec := app.get(t, "/static/missing.js"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing asset, got %d", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	tests := []struct {
		name          string
		productionTip bool
		wantBoom      bool
	}{
		{"production", false, false},
		{"development", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			h := withFrontendMiddleware(panicking, &Config{ProductionTip: tt.productionTip, Logger: logger})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("Expected 500, got %d", rec.Code)
			}
			if got := strings.Contains(rec.Body.String(), "boom"); got != tt.wantBoom {
				t.Errorf("Expected panic value in body = %v, body %q", tt.wantBoom, rec.Body.String())
			}
			if !logger.has("error panic recovered") {
				t.Error("Expected panic to be logged")
			}
			if got := logger.has("debug navigate"); got != tt.productionTip {
				t.Errorf("Expected navigation log = %v", tt.productionTip)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		n    int
		in   string
		want string
	}{
		{10, "short", "short"},
		{8, "a longer title", "a lon..."},
		{3, "abcdef", "abc"},
		{5, "ééééééé", "éé..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.n, tt.in); got != tt.want {
			t.Errorf("truncate(%d, %q) = %q, want %q", tt.n, tt.in, got, tt.want)
		}
	}
}

func TestConversationTitle(t *testing.T) {
	if got := conversationTitle("  first line  \nsecond"); got != "first line" {
		t.Errorf("Expected first line, got %q", got)
	}
	long := strings.Repeat("x", 100)
	if got := conversationTitle(long); len(got) != conversationTitleLength {
		t.Errorf("Expected title of %d characters, got %d", conversationTitleLength, len(got))
	}
}
