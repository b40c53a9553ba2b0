package frontend

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/youssefsiam38/mdchat/render"
	"github.com/youssefsiam38/mdchat/storage"
)

// Validation constants
const (
	// maxTitleLength is the maximum length of a document title, in characters.
	maxTitleLength = 200
	// maxBodyBytes is the maximum size of a document body or chat message.
	maxBodyBytes = 64 << 10
	// maxFormBytes bounds the encoded form. Percent-encoding can triple the
	// body, and the decoded body is checked against maxBodyBytes.
	maxFormBytes = 3*maxBodyBytes + 4<<10
	// conversationTitleLength is how much of the first message names a conversation.
	conversationTitleLength = 60
)

// parseOffset parses an offset from a query parameter with a default.
func parseOffset(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseUUID parses a UUID from a string.
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// parseForm parses a size-limited form. It writes the error response and
// returns false on failure.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return false
	}
	return true
}

// logError logs an error if the logger is configured.
// It's used for failures that shouldn't break the page.
func (f *Frontend) logError(msg string, err error) {
	if f.config.Logger != nil {
		f.config.Logger.Warn(msg, "error", err.Error())
	}
}

// serverError logs err and writes a 500. The error text is only shown with
// ProductionTip enabled.
func (f *Frontend) serverError(w http.ResponseWriter, r *http.Request, err error) {
	if f.config.Logger != nil {
		f.config.Logger.Error("request failed", "error", err.Error(), "path", r.URL.Path)
	}
	msg := "Internal Server Error"
	if f.config.ProductionTip {
		msg = err.Error()
	}
	http.Error(w, msg, http.StatusInternalServerError)
}

// path prefixes p with the configured base path.
func (f *Frontend) path(p string) string {
	return f.config.BasePath + p
}

// Content view

func (f *Frontend) handleContent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	offset := parseOffset(r, "offset", 0)

	engine := query.Get("engine")
	if engine != "" && !f.md.HasEngine(engine) {
		http.Error(w, fmt.Sprintf("Unknown math engine: %s", engine), http.StatusNotFound)
		return
	}

	// Fetch one extra row to know whether there is a next page.
	docs, err := f.store.ListDocuments(r.Context(), f.config.PageSize+1, offset)
	if err != nil {
		f.serverError(w, r, err)
		return
	}
	hasMore := len(docs) > f.config.PageSize
	if hasMore {
		docs = docs[:f.config.PageSize]
	}

	var selected *storage.Document
	if idStr := query.Get("doc"); idStr != "" {
		id, err := parseUUID(idStr)
		if err != nil {
			http.Error(w, "Invalid document ID", http.StatusBadRequest)
			return
		}
		selected, err = f.store.GetDocument(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		if err != nil {
			f.serverError(w, r, err)
			return
		}
	} else if len(docs) > 0 {
		selected = docs[0]
	}

	if engine == "" {
		engine = f.md.DefaultEngine()
	}

	data := map[string]any{
		"Documents":  docs,
		"Selected":   selected,
		"Engines":    f.md.Engines(),
		"Engine":     engine,
		"Offset":     offset,
		"PrevOffset": max(offset-f.config.PageSize, 0),
		"NextOffset": offset + f.config.PageSize,
		"HasMore":    hasMore,
	}
	if selected != nil {
		var opts []render.RenderOption
		if engine != "" {
			opts = append(opts, render.WithEngine(engine))
		}
		html, err := f.md.Render(selected.Body, opts...)
		if err != nil {
			f.serverError(w, r, err)
			return
		}
		data["HTML"] = html
	}

	var flash *FlashMessage
	if query.Get("created") == "1" {
		flash = &FlashMessage{Type: "success", Message: "Document saved"}
	}

	title := "Content"
	if selected != nil {
		title = selected.Title
	}
	if err := f.renderer.render(w, r, "content.html", title, flash, data); err != nil {
		f.serverError(w, r, err)
	}
}

func (f *Frontend) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	if f.config.ReadOnly {
		http.Error(w, "Writes are disabled", http.StatusForbidden)
		return
	}
	if !parseForm(w, r) {
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	body := r.FormValue("body")

	if title == "" {
		http.Error(w, "Missing title", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		http.Error(w, fmt.Sprintf("Title must be at most %d characters", maxTitleLength), http.StatusBadRequest)
		return
	}
	if len(body) > maxBodyBytes {
		http.Error(w, "Body too large", http.StatusRequestEntityTooLarge)
		return
	}

	doc, err := f.store.CreateDocument(r.Context(), title, body)
	if err != nil {
		f.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, f.path("/?doc="+doc.ID.String()+"&created=1"), http.StatusSeeOther)
}

// Chat view

func (f *Frontend) handleChat(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	convs, err := f.store.ListConversations(r.Context(), f.config.PageSize, 0)
	if err != nil {
		f.serverError(w, r, err)
		return
	}

	var (
		selected *storage.Conversation
		messages []*storage.Message
	)
	if idStr := query.Get("conversation"); idStr != "" {
		id, err := parseUUID(idStr)
		if err != nil {
			http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
			return
		}
		selected, err = f.store.GetConversation(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		if err != nil {
			f.serverError(w, r, err)
			return
		}
		messages, err = f.store.ListMessages(r.Context(), id)
		if err != nil {
			f.serverError(w, r, err)
			return
		}
	}

	var flash *FlashMessage
	if query.Get("failed") == "1" {
		flash = &FlashMessage{Type: "error", Message: "The assistant could not reply. Your message was saved."}
	}

	data := map[string]any{
		"Conversations": convs,
		"Selected":      selected,
		"Messages":      messages,
		"CanReply":      f.responder != nil,
	}

	title := "Chat"
	if selected != nil {
		title = selected.Title
	}
	if err := f.renderer.render(w, r, "chat.html", title, flash, data); err != nil {
		f.serverError(w, r, err)
	}
}

func (f *Frontend) handleChatSend(w http.ResponseWriter, r *http.Request) {
	if f.config.ReadOnly {
		http.Error(w, "Chat is disabled", http.StatusForbidden)
		return
	}
	if !parseForm(w, r) {
		return
	}

	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		http.Error(w, "Missing message", http.StatusBadRequest)
		return
	}
	if len(message) > maxBodyBytes {
		http.Error(w, "Message too large", http.StatusRequestEntityTooLarge)
		return
	}

	ctx := r.Context()

	var conv *storage.Conversation
	if idStr := r.FormValue("conversation_id"); idStr != "" {
		id, err := parseUUID(idStr)
		if err != nil {
			http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
			return
		}
		conv, err = f.store.GetConversation(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		if err != nil {
			f.serverError(w, r, err)
			return
		}
	} else {
		var err error
		conv, err = f.store.CreateConversation(ctx, conversationTitle(message))
		if err != nil {
			f.serverError(w, r, err)
			return
		}
	}

	if _, err := f.store.AppendMessage(ctx, conv.ID, storage.RoleUser, message); err != nil {
		f.serverError(w, r, err)
		return
	}

	params := url.Values{"conversation": {conv.ID.String()}}
	if f.responder != nil {
		if err := f.reply(r, conv); err != nil {
			f.logError("assistant reply failed", err)
			params.Set("failed", "1")
		}
	}

	http.Redirect(w, r, f.path("/chat?"+params.Encode()), http.StatusSeeOther)
}

// reply asks the responder for the next message and stores it.
func (f *Frontend) reply(r *http.Request, conv *storage.Conversation) error {
	ctx := r.Context()

	history, err := f.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	text, err := f.responder.Reply(ctx, history)
	if err != nil {
		return err
	}

	if _, err := f.store.AppendMessage(ctx, conv.ID, storage.RoleAssistant, text); err != nil {
		return fmt.Errorf("store reply: %w", err)
	}
	return nil
}

// conversationTitle names a conversation after the first line of its first
// message.
func conversationTitle(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return truncate(conversationTitleLength, strings.TrimSpace(line))
}
