// Package inference provides chat completion for the assistant.
//
// Provider abstracts a single non-streaming completion call. Two
// implementations exist: Client, which speaks the OpenAI-compatible HTTP API
// directly (OpenAI, Ollama, vLLM, Groq...), and LangChain, which goes through
// langchaingo's model abstraction.
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    inference.WithModel("gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{
//	        inference.NewSystemMessage("You are Swift."),
//	        inference.NewUserMessage("Hello!"),
//	    },
//	})
package inference

import "context"

// Provider generates chat completions.
type Provider interface {
	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the conversation, system prompt first.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0). Zero uses the provider default.
	Temperature float64
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the first choice. Content may be empty.
	Message Message

	FinishReason string
	Usage        Usage
	Model        string
	LatencyMs    int64
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
