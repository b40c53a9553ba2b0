// Package storage defines the persistence interface for documents and chat
// conversations, plus an in-memory implementation.
//
// SQL implementations live in the driver packages:
//   - github.com/youssefsiam38/mdchat/driver/pgxv5
//   - github.com/youssefsiam38/mdchat/driver/databasesql
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Storage errors.
var (
	// ErrNotFound is returned when a document or conversation does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrInvalidArgument is returned for empty titles, bodies or roles.
	ErrInvalidArgument = errors.New("storage: invalid argument")
)

// Store defines the storage interface used by the views.
type Store interface {
	// Document operations
	CreateDocument(ctx context.Context, title, body string) (*Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	// ListDocuments returns documents newest first.
	ListDocuments(ctx context.Context, limit, offset int) ([]*Document, error)

	// Conversation operations
	CreateConversation(ctx context.Context, title string) (*Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	// ListConversations returns conversations by most recent activity.
	ListConversations(ctx context.Context, limit, offset int) ([]*Conversation, error)

	// Message operations
	// AppendMessage adds a message and bumps the conversation's UpdatedAt.
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role Role, content string) (*Message, error)
	// ListMessages returns messages oldest first.
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error)
}

// Document is a markdown document shown by the content view.
type Document struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Conversation groups chat messages.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one chat message. Content is markdown.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
