package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/bridge"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
)

// answerInstructions reproduces the behavior a page-driven assistant is
// given through its custom instructions: answer as support staff, and
// say NOTFOUND when the question cannot be answered. The broker
// translates that marker into the structured no-answer result.
const answerInstructions = `You are a customer support assistant answering messages on behalf of a business. ` +
	`Each prompt contains a customer ID line followed by the customer's question. ` +
	`Answer concisely and politely in the customer's language. ` +
	`If you cannot answer the question from general knowledge about the business, reply with exactly: NOTFOUND`

// APIDriver implements bridge.AssistantPort by calling the assistant's
// chat completion API directly instead of driving a browser tab.
type APIDriver struct {
	client openai.Client
	model  string
	log    *logging.Logger
}

// NewAPIDriver creates a driver for the given API key and model.
func NewAPIDriver(apiKey, model string, log *logging.Logger) *APIDriver {
	return &APIDriver{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		log:    log,
	}
}

// Ready always succeeds; the API has no page to wait for.
func (d *APIDriver) Ready(ctx context.Context) error {
	return nil
}

// Submit sends one prompt as a standalone completion. The inbox
// conversation carries the history; each request stands on its own.
func (d *APIDriver) Submit(ctx context.Context, prompt string) (string, error) {
	completion, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(d.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(answerInstructions),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", bridge.ErrSubmissionFailed, err)
	}

	if len(completion.Choices) == 0 {
		return "", bridge.ErrNoReplyExtracted
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", bridge.ErrNoReplyExtracted
	}

	d.log.Infof("API completion returned %d chars (model %s)", len(text), d.model)
	return text, nil
}
