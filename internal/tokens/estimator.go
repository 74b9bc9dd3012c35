// Package tokens estimates prompt token counts with tiktoken so the pipeline
// can log and budget-check outbound prompts before spending a model call.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tasklens/tasklens/internal/openai"
)

// perMessageOverhead approximates the chat framing tokens the endpoint adds
// around each message.
const perMessageOverhead = 4

// Estimator counts prompt tokens for chat messages.
type Estimator struct {
	codecCache map[tokenizer.Encoding]tokenizer.Codec
	cacheMu    sync.RWMutex
}

// NewEstimator creates a token estimator.
func NewEstimator() *Estimator {
	return &Estimator{
		codecCache: make(map[tokenizer.Encoding]tokenizer.Codec),
	}
}

func (e *Estimator) getCodec(model string) (tokenizer.Codec, error) {
	if codec, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		return codec, nil
	}

	encoding := modelToEncoding(model)

	e.cacheMu.RLock()
	if cached, ok := e.codecCache[encoding]; ok {
		e.cacheMu.RUnlock()
		return cached, nil
	}
	e.cacheMu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}

	e.cacheMu.Lock()
	e.codecCache[encoding] = codec
	e.cacheMu.Unlock()

	return codec, nil
}

func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return tokenizer.O200kBase
	default:
		return tokenizer.Cl100kBase
	}
}

// CountMessages estimates the prompt tokens for a conversation. Image parts
// are excluded; their cost is tile-based and accounted for by the endpoint,
// not the text tokenizer.
func (e *Estimator) CountMessages(model string, messages []openai.ChatCompletionMessage) (int, error) {
	codec, err := e.getCodec(model)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, msg := range messages {
		total += perMessageOverhead
		for _, text := range messageTexts(msg) {
			ids, _, err := codec.Encode(text)
			if err != nil {
				return 0, fmt.Errorf("failed to encode message: %w", err)
			}
			total += len(ids)
		}
	}
	return total, nil
}

func messageTexts(msg openai.ChatCompletionMessage) []string {
	switch content := msg.Content.(type) {
	case string:
		return []string{content}
	case []openai.ContentPart:
		var texts []string
		for _, part := range content {
			if part.Type == openai.ContentTypeText {
				texts = append(texts, part.Text)
			}
		}
		return texts
	default:
		return nil
	}
}
