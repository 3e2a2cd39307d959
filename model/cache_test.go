package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls    int
	response string
	err      error
}

func (p *countingProvider) Complete(ctx context.Context, images []Image, prompt string, opts ...CompleteOption) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func TestCachingProviderMemoizesByPrompt(t *testing.T) {
	inner := &countingProvider{response: "answer"}
	provider, err := NewCachingProvider(inner, 16, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()

	text, err := provider.Complete(ctx, nil, "what task is this")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)

	text, err = provider.Complete(ctx, nil, "what task is this")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)

	assert.Equal(t, 1, inner.calls)
}

func TestCachingProviderKeysOnImageContent(t *testing.T) {
	inner := &countingProvider{response: "answer"}
	provider, err := NewCachingProvider(inner, 16, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	imageA := []Image{{MediaType: "image/png", Data: []byte("screenshot-a")}}
	imageB := []Image{{MediaType: "image/png", Data: []byte("screenshot-b")}}

	_, err = provider.Complete(ctx, imageA, "same prompt")
	require.NoError(t, err)
	_, err = provider.Complete(ctx, imageB, "same prompt")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)

	_, err = provider.Complete(ctx, imageA, "same prompt")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachingProviderDoesNotCacheFailures(t *testing.T) {
	inner := &countingProvider{err: errors.New("unavailable")}
	provider, err := NewCachingProvider(inner, 16, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = provider.Complete(ctx, nil, "prompt")
	require.Error(t, err)

	inner.err = nil
	inner.response = "recovered"

	text, err := provider.Complete(ctx, nil, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, inner.calls)
}
