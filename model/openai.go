package model

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o"

type OpenAIProvider struct {
	client         openai.Client
	model          string
	timeout        time.Duration
	retryConfig    *RetryConfig
	circuitBreaker *CircuitBreaker
	metrics        *providerMetrics
}

func NewOpenAIProvider(apiKey, model string, opts ...ProviderOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	providerOptions := DefaultProviderOptions("openai")
	for _, opt := range opts {
		opt(providerOptions)
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if providerOptions.URL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(providerOptions.URL))
	}

	return &OpenAIProvider{
		client:         openai.NewClient(clientOptions...),
		model:          model,
		timeout:        providerOptions.Timeout,
		retryConfig:    providerOptions.RetryConfig,
		circuitBreaker: providerOptions.CircuitBreaker,
		metrics:        newProviderMetrics(providerOptions.Metrics),
	}, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, images []Image, prompt string, opts ...CompleteOption) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	options := DefaultCompleteOptions()
	for _, opt := range opts {
		opt(options)
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+1)
	for _, image := range images {
		dataURL := fmt.Sprintf("data:%s;base64,%s", image.MediaType, base64.StdEncoding.EncodeToString(image.Data))
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}))
	}
	parts = append(parts, openai.TextContentPart(prompt))

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if options.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(options.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(parts))

	request := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		MaxTokens:   openai.Int(options.MaxTokens),
		Temperature: openai.Float(options.Temperature),
		Messages:    messages,
	}

	start := time.Now()
	text, err := invokeWithRetry(ctx, p.retryConfig, p.circuitBreaker, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		completion, err := p.client.Chat.Completions.New(callCtx, request)
		if err != nil {
			return "", fmt.Errorf("openai completion failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("openai completion returned no choices")
		}
		return completion.Choices[0].Message.Content, nil
	})
	p.metrics.Observe("openai", start, err)

	return text, err
}
