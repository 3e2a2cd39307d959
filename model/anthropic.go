package model

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

type AnthropicProvider struct {
	client         anthropic.Client
	model          string
	timeout        time.Duration
	retryConfig    *RetryConfig
	circuitBreaker *CircuitBreaker
	metrics        *providerMetrics
}

func NewAnthropicProvider(apiKey, model string, opts ...ProviderOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = defaultAnthropicModel
	}

	providerOptions := DefaultProviderOptions("anthropic")
	for _, opt := range opts {
		opt(providerOptions)
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if providerOptions.URL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(providerOptions.URL))
	}

	return &AnthropicProvider{
		client:         anthropic.NewClient(clientOptions...),
		model:          model,
		timeout:        providerOptions.Timeout,
		retryConfig:    providerOptions.RetryConfig,
		circuitBreaker: providerOptions.CircuitBreaker,
		metrics:        newProviderMetrics(providerOptions.Metrics),
	}, nil
}

func (p *AnthropicProvider) Complete(ctx context.Context, images []Image, prompt string, opts ...CompleteOption) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	options := DefaultCompleteOptions()
	for _, opt := range opts {
		opt(options)
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	for _, image := range images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(image.MediaType, base64.StdEncoding.EncodeToString(image.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	request := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   options.MaxTokens,
		Temperature: anthropic.Float(options.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}

	if options.SystemPrompt != "" {
		request.System = []anthropic.TextBlockParam{{Text: options.SystemPrompt}}
	}

	start := time.Now()
	text, err := invokeWithRetry(ctx, p.retryConfig, p.circuitBreaker, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		message, err := p.client.Messages.New(callCtx, request)
		if err != nil {
			return "", fmt.Errorf("anthropic completion failed: %w", err)
		}

		var sb strings.Builder
		for _, block := range message.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		return sb.String(), nil
	})
	p.metrics.Observe("anthropic", start, err)

	return text, err
}
