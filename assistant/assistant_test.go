package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/youssefsiam38/mdchat/storage"
)

// fakeMessagesAPI serves /v1/messages with the given reply blocks and records
// the decoded request.
func fakeMessagesAPI(t *testing.T, status int, blocks []map[string]any, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("expected api key header, got %q", r.Header.Get("X-Api-Key"))
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":  "error",
				"error": map[string]any{"type": "invalid_request_error", "message": "bad"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       DefaultModel,
			"content":     blocks,
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestResponder(t *testing.T, srv *httptest.Server) *Anthropic {
	t.Helper()
	a, err := NewAnthropic(Config{
		APIKey: "test-key",
		RequestOptions: []option.RequestOption{
			option.WithBaseURL(srv.URL + "/"),
			option.WithMaxRetries(0),
		},
	})
	if err != nil {
		t.Fatalf("NewAnthropic failed: %v", err)
	}
	return a
}

func history(contents ...string) []*storage.Message {
	msgs := make([]*storage.Message, len(contents))
	for i, c := range contents {
		role := storage.RoleUser
		if i%2 == 1 {
			role = storage.RoleAssistant
		}
		msgs[i] = &storage.Message{Role: role, Content: c}
	}
	return msgs
}

func TestNewAnthropic_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing key", Config{}},
		{"blank key", Config{APIKey: "  "}},
		{"negative max tokens", Config{APIKey: "k", MaxTokens: -1}},
		{"negative history", Config{APIKey: "k", MaxHistoryTokens: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAnthropic(tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNewAnthropic_Defaults(t *testing.T) {
	a, err := NewAnthropic(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewAnthropic failed: %v", err)
	}
	if a.Model() != DefaultModel {
		t.Errorf("expected model %q, got %q", DefaultModel, a.Model())
	}
	if a.config.MaxTokens != DefaultMaxTokens {
		t.Errorf("expected max tokens %d, got %d", DefaultMaxTokens, a.config.MaxTokens)
	}
	if a.config.SystemPrompt != DefaultSystemPrompt {
		t.Error("expected default system prompt")
	}
}

func TestAnthropic_Reply(t *testing.T) {
	var req map[string]any
	srv := fakeMessagesAPI(t, http.StatusOK, []map[string]any{
		{"type": "text", "text": "The area is $\\pi r^2$."},
	}, &req)
	a := newTestResponder(t, srv)

	reply, err := a.Reply(context.Background(), history("area of a circle?", "which radius?", "r"))
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if reply != "The area is $\\pi r^2$." {
		t.Errorf("unexpected reply %q", reply)
	}

	if req["model"] != DefaultModel {
		t.Errorf("expected model %q, got %v", DefaultModel, req["model"])
	}
	if msgs, ok := req["messages"].([]any); !ok || len(msgs) != 3 {
		t.Errorf("expected 3 messages in request, got %v", req["messages"])
	}
	if system, ok := req["system"].([]any); !ok || len(system) != 1 {
		t.Errorf("expected system prompt in request, got %v", req["system"])
	}
}

func TestAnthropic_Reply_EmptyHistory(t *testing.T) {
	srv := fakeMessagesAPI(t, http.StatusOK, nil, nil)
	a := newTestResponder(t, srv)

	if _, err := a.Reply(context.Background(), nil); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("expected ErrEmptyHistory, got %v", err)
	}
}

func TestAnthropic_Reply_EmptyReply(t *testing.T) {
	srv := fakeMessagesAPI(t, http.StatusOK, []map[string]any{}, nil)
	a := newTestResponder(t, srv)

	if _, err := a.Reply(context.Background(), history("hi")); !errors.Is(err, ErrEmptyReply) {
		t.Errorf("expected ErrEmptyReply, got %v", err)
	}
}

func TestAnthropic_Reply_APIError(t *testing.T) {
	srv := fakeMessagesAPI(t, http.StatusBadRequest, nil, nil)
	a := newTestResponder(t, srv)

	_, err := a.Reply(context.Background(), history("hi"))
	if err == nil {
		t.Fatal("expected error from API")
	}
	if errors.Is(err, ErrEmptyReply) {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestResponderFunc(t *testing.T) {
	var r Responder = ResponderFunc(func(ctx context.Context, h []*storage.Message) (string, error) {
		return h[len(h)-1].Content, nil
	})
	got, err := r.Reply(context.Background(), history("echo"))
	if err != nil || got != "echo" {
		t.Errorf("expected echo, got %q, %v", got, err)
	}
}
