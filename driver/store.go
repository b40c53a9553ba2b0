package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/youssefsiam38/mdchat/storage"
)

// Store implements storage.Store on top of a Driver.
// Both backends use PostgreSQL, so the SQL is shared.
type Store struct {
	driver Driver

	// errNoRows is the backend's "no rows" sentinel.
	errNoRows error
}

// NewStore creates a Store. errNoRows is the error the backend's Row.Scan
// returns when the query matched nothing (pgx.ErrNoRows, sql.ErrNoRows).
func NewStore(d Driver, errNoRows error) *Store {
	return &Store{driver: d, errNoRows: errNoRows}
}

// getExecutor returns the executor from context if present, otherwise the default pool executor.
func (s *Store) getExecutor(ctx context.Context) Executor {
	if exec := ExecutorFromContext(ctx); exec != nil {
		return exec
	}
	return s.driver.GetExecutor()
}

// CreateDocument creates a new document.
func (s *Store) CreateDocument(ctx context.Context, title, body string) (*storage.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", storage.ErrInvalidArgument)
	}

	query := `
		INSERT INTO mdchat_documents (id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, title, body, created_at, updated_at
	`

	doc, err := scanDocument(s.getExecutor(ctx).QueryRow(ctx, query, uuid.New(), title, body))
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*storage.Document, error) {
	query := `
		SELECT id, title, body, created_at, updated_at
		FROM mdchat_documents
		WHERE id = $1
	`

	doc, err := scanDocument(s.getExecutor(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, s.errNoRows) {
		return nil, fmt.Errorf("%w: document %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns documents newest first.
func (s *Store) ListDocuments(ctx context.Context, limit, offset int) ([]*storage.Document, error) {
	query := `
		SELECT id, title, body, created_at, updated_at
		FROM mdchat_documents
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, pageLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []*storage.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// CreateConversation creates a new conversation.
func (s *Store) CreateConversation(ctx context.Context, title string) (*storage.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", storage.ErrInvalidArgument)
	}

	query := `
		INSERT INTO mdchat_conversations (id, title, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, title, created_at, updated_at
	`

	conv, err := scanConversation(s.getExecutor(ctx).QueryRow(ctx, query, uuid.New(), title))
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*storage.Conversation, error) {
	query := `
		SELECT id, title, created_at, updated_at
		FROM mdchat_conversations
		WHERE id = $1
	`

	conv, err := scanConversation(s.getExecutor(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, s.errNoRows) {
		return nil, fmt.Errorf("%w: conversation %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns conversations by most recent activity.
func (s *Store) ListConversations(ctx context.Context, limit, offset int) ([]*storage.Conversation, error) {
	query := `
		SELECT id, title, created_at, updated_at
		FROM mdchat_conversations
		ORDER BY updated_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, pageLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	convs := []*storage.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return convs, nil
}

// AppendMessage inserts a message and bumps the conversation's updated_at in
// one transaction.
func (s *Store) AppendMessage(ctx context.Context, conversationID uuid.UUID, role storage.Role, content string) (msg *storage.Message, err error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", storage.ErrInvalidArgument, role)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", storage.ErrInvalidArgument)
	}

	tx := ExecutorFromContext(ctx)
	if tx == nil {
		tx, err = s.driver.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback(ctx)
				return
			}
			if commitErr := tx.Commit(ctx); commitErr != nil {
				msg, err = nil, fmt.Errorf("failed to commit message: %w", commitErr)
			}
		}()
	}

	query := `
		INSERT INTO mdchat_messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, conversation_id, role, content, created_at
	`

	msg, err = scanMessage(tx.QueryRow(ctx, query, uuid.New(), conversationID, string(role), content))
	if err != nil {
		if s.driver.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: conversation %s", storage.ErrNotFound, conversationID)
		}
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE mdchat_conversations SET updated_at = $2 WHERE id = $1`, conversationID, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	return msg, nil
}

// ListMessages returns a conversation's messages oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*storage.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM mdchat_messages
		WHERE conversation_id = $1
		ORDER BY seq
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	msgs := []*storage.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}

// DefaultPageLimit caps list queries made without a limit.
const DefaultPageLimit = 100

func pageLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	return limit
}

func scanDocument(row Row) (*storage.Document, error) {
	var doc storage.Document
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func scanConversation(row Row) (*storage.Conversation, error) {
	var conv storage.Conversation
	if err := row.Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, err
	}
	return &conv, nil
}

func scanMessage(row Row) (*storage.Message, error) {
	var (
		msg  storage.Message
		role string
	)
	if err := row.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &msg.CreatedAt); err != nil {
		return nil, err
	}
	msg.Role = storage.Role(role)
	return &msg, nil
}

// Compile-time check
var _ storage.Store = (*Store)(nil)
