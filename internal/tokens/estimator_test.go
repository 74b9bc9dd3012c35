package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklens/tasklens/internal/openai"
)

func TestEstimator_CountMessages(t *testing.T) {
	est := NewEstimator()

	short, err := est.CountMessages("gpt-4o", []openai.ChatCompletionMessage{
		openai.UserMessage("hi"),
	})
	require.NoError(t, err)
	assert.Greater(t, short, 0)

	long, err := est.CountMessages("gpt-4o", []openai.ChatCompletionMessage{
		openai.SystemMessage("You are a specialized hardware architect and patient tutor."),
		openai.UserMessage("Generate a complete, safe plan to blink an LED on a Raspberry Pi 4."),
	})
	require.NoError(t, err)
	assert.Greater(t, long, short)
}

func TestEstimator_SkipsImageParts(t *testing.T) {
	est := NewEstimator()

	textOnly, err := est.CountMessages("gpt-4o", []openai.ChatCompletionMessage{
		openai.UserMessage("identify this"),
	})
	require.NoError(t, err)

	withImage, err := est.CountMessages("gpt-4o", []openai.ChatCompletionMessage{
		openai.UserImageMessage("identify this", "data:image/png;base64,AAAA"),
	})
	require.NoError(t, err)

	// The base64 payload must not be tokenized as text.
	assert.Equal(t, textOnly, withImage)
}

func TestEstimator_UnknownModelFallsBack(t *testing.T) {
	est := NewEstimator()
	n, err := est.CountMessages("mystery-model", []openai.ChatCompletionMessage{
		openai.UserMessage("hello world"),
	})
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}
