// Package openai provides the wire types and HTTP client for an
// OpenAI-compatible chat-completions endpoint, plus the retrying invoker that
// every outbound model call passes through.
package openai

import "encoding/json"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatCompletionRequest represents a chat completion request.
type ChatCompletionRequest struct {
	Model          string                  `json:"model"`
	Messages       []ChatCompletionMessage `json:"messages"`
	MaxTokens      int                     `json:"max_tokens,omitempty"`
	Temperature    *float32                `json:"temperature,omitempty"`
	TopP           *float32                `json:"top_p,omitempty"`
	Tools          []Tool                  `json:"tools,omitempty"`
	ToolChoice     string                  `json:"tool_choice,omitempty"`
	ResponseFormat *ResponseFormat         `json:"response_format,omitempty"`
}

// ChatCompletionMessage represents one turn of the conversation. Content is a
// plain string for text turns and a []ContentPart for multimodal user turns.
// Use the constructors below rather than populating fields by hand so each
// turn kind carries exactly the fields its role defines.
type ChatCompletionMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// TextContent returns the message content when it is plain text.
func (m *ChatCompletionMessage) TextContent() string {
	if s, ok := m.Content.(string); ok {
		return s
	}
	return ""
}

// SystemMessage builds a system turn.
func SystemMessage(text string) ChatCompletionMessage {
	return ChatCompletionMessage{Role: RoleSystem, Content: text}
}

// UserMessage builds a text-only user turn.
func UserMessage(text string) ChatCompletionMessage {
	return ChatCompletionMessage{Role: RoleUser, Content: text}
}

// UserImageMessage builds a multimodal user turn carrying a text prompt and an
// inlined data-URI image reference.
func UserImageMessage(text, imageDataURI string) ChatCompletionMessage {
	return ChatCompletionMessage{
		Role: RoleUser,
		Content: []ContentPart{
			{Type: ContentTypeText, Text: text},
			{Type: ContentTypeImageURL, ImageURL: &ImageURL{URL: imageDataURI}},
		},
	}
}

// ToolResultMessage builds a tool turn answering a specific tool call.
func ToolResultMessage(toolCallID, payload string) ChatCompletionMessage {
	return ChatCompletionMessage{Role: RoleTool, ToolCallID: toolCallID, Content: payload}
}

// Content part types for multimodal messages.
const (
	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
)

// ContentPart is one part of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image, either remote or as an inline data URI.
type ImageURL struct {
	URL string `json:"url"`
}

// Tool represents a tool the model can call.
type Tool struct {
	Type     string       `json:"type"`
	Function FunctionTool `json:"function"`
}

// FunctionTool describes a function tool.
type FunctionTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ToolCall represents a tool call made by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall represents a function call: name plus JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ResponseFormat specifies the shape of the response. Type "json_schema" with
// a populated JSONSchema constrains the model to strict structured output.
type ResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

// JSONSchemaFormat names a strict JSON Schema the response must conform to.
type JSONSchemaFormat struct {
	Name   string `json:"name"`
	Schema any    `json:"schema"`
	Strict bool   `json:"strict"`
}

// ChatCompletionResponse represents a chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage,omitempty"`

	// RawBody contains the original response JSON for diagnostics.
	RawBody json.RawMessage `json:"-"`
}

// Message returns the assistant message of the first choice, or nil when the
// response carries no choices.
func (r *ChatCompletionResponse) Message() *ChatCompletionMessage {
	if len(r.Choices) == 0 {
		return nil
	}
	return &r.Choices[0].Message
}

// Choice represents a completion choice.
type Choice struct {
	Index        int                   `json:"index"`
	Message      ChatCompletionMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
