package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

// fakeModel is a minimal llms.Model.
type fakeModel struct {
	got      []llms.MessageContent
	response *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	return f.response, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainChat(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "Hi there!", StopReason: "stop"}},
	}}
	p := NewLangChainWithModel(model)

	resp, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{
		NewSystemMessage("You are Swift."),
		NewUserMessage("Hello"),
		NewAssistantMessage("Hi"),
		NewUserMessage("Again"),
	}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "Hi there!" {
		t.Errorf("unexpected reply %q", resp.Message.Content)
	}

	want := []llms.ChatMessageType{
		llms.ChatMessageTypeSystem,
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeAI,
		llms.ChatMessageTypeHuman,
	}
	if len(model.got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(model.got))
	}
	for i, role := range want {
		if model.got[i].Role != role {
			t.Errorf("message %d role = %s, want %s", i, model.got[i].Role, role)
		}
	}
}

func TestLangChainErrors(t *testing.T) {
	t.Run("no choices", func(t *testing.T) {
		p := NewLangChainWithModel(&fakeModel{response: &llms.ContentResponse{}})
		_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("x")}})
		if !errors.Is(err, ErrNoChoices) {
			t.Errorf("expected ErrNoChoices, got %v", err)
		}
	})

	t.Run("model error is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		p := NewLangChainWithModel(&fakeModel{err: boom})
		_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("x")}})
		var pe *ProviderError
		if !errors.As(err, &pe) || pe.Provider != "langchain" || !errors.Is(err, boom) {
			t.Errorf("unexpected error %v", err)
		}
	})
}

func TestLangChainOpenAICompatibleServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "llama3.1:8b" {
			t.Errorf("unexpected model %s", body.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"llama3.1:8b","choices":[{"index":0,"message":{"role":"assistant","content":"Local hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer server.Close()

	p, err := NewLangChain(
		WithBaseURL(server.URL),
		WithModel("llama3.1:8b"),
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewLangChain: %v", err)
	}

	resp, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{
		NewSystemMessage("sys"),
		NewUserMessage("Hello"),
	}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "Local hello" {
		t.Errorf("unexpected reply %q", resp.Message.Content)
	}
}
