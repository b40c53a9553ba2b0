package api

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/youssefsiam38/mdchat/render"
	"github.com/youssefsiam38/mdchat/storage"
)

// Request limits.
const (
	maxTitleLength = 200
	maxBodyBytes   = 64 << 10
	// JSON \u escapes take six bytes per byte of input; the decoded body is
	// checked against maxBodyBytes.
	maxRequestSize = 6*maxBodyBytes + 4<<10
)

// Response wraps all API responses.
type Response struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
	Meta  *Meta     `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains pagination metadata.
type Meta struct {
	HasMore bool `json:"has_more"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
}

// DocumentDetail is a document with its rendered body.
type DocumentDetail struct {
	*storage.Document
	Engine string        `json:"engine"`
	HTML   template.HTML `json:"html"`
}

// ConversationDetail is a conversation with its messages, oldest first.
type ConversationDetail struct {
	*storage.Conversation
	Messages []*storage.Message `json:"messages"`
}

// CreateDocumentRequest is the body of POST /documents.
type CreateDocumentRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	Markdown string `json:"markdown"`
	Engine   string `json:"engine,omitempty"`
}

// RenderResponse is the result of POST /render.
type RenderResponse struct {
	Engine string        `json:"engine"`
	HTML   template.HTML `json:"html"`
}

// EnginesResponse lists the available math engines.
type EnginesResponse struct {
	Engines []string `json:"engines"`
	Default string   `json:"default"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Data: data})
}

// writeJSONWithMeta writes a JSON response with metadata.
func writeJSONWithMeta(w http.ResponseWriter, status int, data any, meta *Meta) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Data: data, Meta: meta})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Error: &APIError{Code: code, Message: message},
	})
}

// parseUUID parses a UUID from a path parameter.
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// parseInt parses an integer from a query parameter with a default.
// The result is clamped to the page limits.
func parseInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return min(max(i, MinPageLimit), MaxPageLimit)
}

// parseOffset parses an offset from a query parameter with a default.
func parseOffset(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return max(i, 0)
}

// decodeBody decodes a size-limited JSON body. It writes the error response
// and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return false
		}
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_body", "request body is empty")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return false
	}
	return true
}

func (rt *router) internalError(w http.ResponseWriter, r *http.Request, err error) {
	if rt.config.Logger != nil {
		rt.config.Logger.Error("api request failed", "error", err.Error(), "path", r.URL.Path)
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// Document handlers

func (rt *router) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r, "limit", rt.config.PageSize)
	offset := parseOffset(r, "offset", 0)

	docs, err := rt.store.ListDocuments(r.Context(), limit+1, offset)
	if err != nil {
		rt.internalError(w, r, err)
		return
	}
	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}
	if docs == nil {
		docs = []*storage.Document{}
	}

	writeJSONWithMeta(w, http.StatusOK, docs, &Meta{
		HasMore: hasMore,
		Limit:   limit,
		Offset:  offset,
	})
}

func (rt *router) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid document ID")
		return
	}

	engine := r.URL.Query().Get("engine")
	if engine == "" {
		engine = rt.md.DefaultEngine()
	} else if !rt.md.HasEngine(engine) {
		writeError(w, http.StatusNotFound, "unknown_engine", "unknown math engine: "+engine)
		return
	}

	doc, err := rt.store.GetDocument(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "document not found")
		return
	}
	if err != nil {
		rt.internalError(w, r, err)
		return
	}

	html, err := rt.md.Render(doc.Body, render.WithEngine(engine))
	if err != nil {
		rt.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DocumentDetail{Document: doc, Engine: engine, HTML: html})
}

func (rt *router) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	if rt.config.ReadOnly {
		writeError(w, http.StatusForbidden, "read_only", "writes are disabled")
		return
	}

	var req CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "missing_param", "title is required")
		return
	}
	if utf8.RuneCountInString(req.Title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "invalid_param", "title is too long")
		return
	}
	if len(req.Body) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "body is too large")
		return
	}

	doc, err := rt.store.CreateDocument(r.Context(), req.Title, req.Body)
	if errors.Is(err, storage.ErrInvalidArgument) {
		writeError(w, http.StatusBadRequest, "invalid_param", err.Error())
		return
	}
	if err != nil {
		rt.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// Conversation handlers

func (rt *router) handleListConversations(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r, "limit", rt.config.PageSize)
	offset := parseOffset(r, "offset", 0)

	convs, err := rt.store.ListConversations(r.Context(), limit+1, offset)
	if err != nil {
		rt.internalError(w, r, err)
		return
	}
	hasMore := len(convs) > limit
	if hasMore {
		convs = convs[:limit]
	}
	if convs == nil {
		convs = []*storage.Conversation{}
	}

	writeJSONWithMeta(w, http.StatusOK, convs, &Meta{
		HasMore: hasMore,
		Limit:   limit,
		Offset:  offset,
	})
}

func (rt *router) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid conversation ID")
		return
	}

	conv, err := rt.store.GetConversation(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "conversation not found")
		return
	}
	if err != nil {
		rt.internalError(w, r, err)
		return
	}

	messages, err := rt.store.ListMessages(r.Context(), id)
	if err != nil {
		rt.internalError(w, r, err)
		return
	}
	if messages == nil {
		messages = []*storage.Message{}
	}

	writeJSON(w, http.StatusOK, ConversationDetail{Conversation: conv, Messages: messages})
}

// Render handlers

func (rt *router) handleListEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, EnginesResponse{
		Engines: rt.md.Engines(),
		Default: rt.md.DefaultEngine(),
	})
}

func (rt *router) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Markdown) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "markdown is too large")
		return
	}

	engine := req.Engine
	if engine == "" {
		engine = rt.md.DefaultEngine()
	} else if !rt.md.HasEngine(engine) {
		writeError(w, http.StatusBadRequest, "unknown_engine", "unknown math engine: "+engine)
		return
	}

	html, err := rt.md.Render(req.Markdown, render.WithEngine(engine))
	if err != nil {
		rt.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RenderResponse{Engine: engine, HTML: html})
}
