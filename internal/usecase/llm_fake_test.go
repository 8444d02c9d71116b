package usecase

import (
	"context"
	"strings"
	"sync"

	"postenrich/internal/domain"
)

// fakeLLM answers prompts with a caller-supplied function and records every
// prompt it receives.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeLLM) ModelName() string { return "fake" }

func (f *fakeLLM) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func fixed(response string) *fakeLLM {
	return &fakeLLM{respond: func(string) (string, error) { return response, nil }}
}

func isUnifyPrompt(prompt string) bool {
	return strings.Contains(prompt, "unify and standardize")
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]domain.ExtractedMetadata
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]domain.ExtractedMetadata)}
}

func (c *memCache) Get(text string) (domain.ExtractedMetadata, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[text]
	return m, ok, nil
}

func (c *memCache) Put(text string, meta domain.ExtractedMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[text] = meta
	return nil
}
