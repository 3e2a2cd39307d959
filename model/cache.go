package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/maypok86/otter"
)

// CachingProvider memoizes completions keyed by prompt and image content.
// The detector re-evaluates the same screenshot window whenever boundary
// checks overlap; caching keeps those repeats from costing another call.
type CachingProvider struct {
	inner VisionProvider
	cache otter.Cache[string, string]
}

func NewCachingProvider(inner VisionProvider, capacity int, ttl time.Duration) (*CachingProvider, error) {
	cache, err := otter.MustBuilder[string, string](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &CachingProvider{
		inner: inner,
		cache: cache,
	}, nil
}

func (p *CachingProvider) Complete(ctx context.Context, images []Image, prompt string, opts ...CompleteOption) (string, error) {
	key := completionKey(images, prompt)

	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	text, err := p.inner.Complete(ctx, images, prompt, opts...)
	if err != nil {
		return "", err
	}

	p.cache.Set(key, text)
	return text, nil
}

func completionKey(images []Image, prompt string) string {
	hash := sha256.New()
	hash.Write([]byte(prompt))
	for _, image := range images {
		hash.Write([]byte{0})
		hash.Write(image.Data)
	}
	return hex.EncodeToString(hash.Sum(nil))
}
