package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/youssefsiam38/mdchat/storage"
)

// RunStoreTests exercises the storage.Store contract. newStore must return
// an empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("DocumentLifecycle", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		doc, err := store.CreateDocument(ctx, "Euler", "$e^{i\\pi}+1=0$")
		if err != nil {
			t.Fatalf("CreateDocument failed: %v", err)
		}
		if doc.ID == uuid.Nil {
			t.Fatal("Expected non-nil document ID")
		}

		got, err := store.GetDocument(ctx, doc.ID)
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
		if got.Title != "Euler" || got.Body != doc.Body {
			t.Errorf("Expected stored document %+v, got %+v", doc, got)
		}

		docs, err := store.ListDocuments(ctx, 10, 0)
		if err != nil {
			t.Fatalf("ListDocuments failed: %v", err)
		}
		if len(docs) != 1 || docs[0].ID != doc.ID {
			t.Errorf("Expected one listed document, got %+v", docs)
		}

		if _, err := store.GetDocument(ctx, uuid.New()); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if _, err := store.CreateDocument(ctx, "", "body"); !errors.Is(err, storage.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("ConversationLifecycle", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		conv, err := store.CreateConversation(ctx, "integrals")
		if err != nil {
			t.Fatalf("CreateConversation failed: %v", err)
		}

		for _, m := range []struct {
			role    storage.Role
			content string
		}{
			{storage.RoleUser, "what is $\\int x\\,dx$?"},
			{storage.RoleAssistant, "$\\frac{x^2}{2} + C$"},
			{storage.RoleUser, "thanks"},
		} {
			if _, err := store.AppendMessage(ctx, conv.ID, m.role, m.content); err != nil {
				t.Fatalf("AppendMessage failed: %v", err)
			}
		}

		msgs, err := store.ListMessages(ctx, conv.ID)
		if err != nil {
			t.Fatalf("ListMessages failed: %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("Expected 3 messages, got %d", len(msgs))
		}
		if msgs[0].Role != storage.RoleUser || msgs[1].Role != storage.RoleAssistant || msgs[2].Content != "thanks" {
			t.Errorf("Expected messages in append order, got %+v", msgs)
		}

		got, err := store.GetConversation(ctx, conv.ID)
		if err != nil {
			t.Fatalf("GetConversation failed: %v", err)
		}
		if got.UpdatedAt.Before(conv.UpdatedAt) {
			t.Errorf("Expected UpdatedAt to move forward, got %v before %v", got.UpdatedAt, conv.UpdatedAt)
		}

		convs, err := store.ListConversations(ctx, 10, 0)
		if err != nil {
			t.Fatalf("ListConversations failed: %v", err)
		}
		if len(convs) != 1 || convs[0].ID != conv.ID {
			t.Errorf("Expected one listed conversation, got %+v", convs)
		}
	})

	t.Run("MessageErrors", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		if _, err := store.AppendMessage(ctx, uuid.New(), storage.RoleUser, "hello"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown conversation, got %v", err)
		}
		if _, err := store.ListMessages(ctx, uuid.New()); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown conversation, got %v", err)
		}

		conv, err := store.CreateConversation(ctx, "c")
		if err != nil {
			t.Fatalf("CreateConversation failed: %v", err)
		}
		if _, err := store.AppendMessage(ctx, conv.ID, storage.Role("system"), "x"); !errors.Is(err, storage.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument for unknown role, got %v", err)
		}
	})
}
