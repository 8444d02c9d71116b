package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"postenrich/internal/adapter/jsonparse"
	"postenrich/internal/adapter/langdetect"
	"postenrich/internal/domain"
	"postenrich/internal/port"
)

// DefaultMaxTags is the number of topic tags requested per post.
const DefaultMaxTags = 2

// MetadataExtractor asks the model for a post's line count, language and tags.
type MetadataExtractor struct {
	llm     port.LLM
	cache   port.ExtractionCache
	maxTags int
}

// NewMetadataExtractor creates a new extractor. cache may be nil.
func NewMetadataExtractor(llm port.LLM, cache port.ExtractionCache, maxTags int) *MetadataExtractor {
	if maxTags <= 0 {
		maxTags = DefaultMaxTags
	}
	return &MetadataExtractor{
		llm:     llm,
		cache:   cache,
		maxTags: maxTags,
	}
}

// Extraction is the outcome of a successful extraction.
type Extraction struct {
	Metadata domain.ExtractedMetadata
	Cached   bool
}

// metadataReply mirrors the reply the prompt asks for. The model's language
// guess is read but never used.
type metadataReply struct {
	LineCount domain.LineCount `json:"line_count"`
	Language  json.RawMessage  `json:"language"`
	Tags      []string         `json:"tags"`
}

// Extract makes exactly one model call for text (none on a cache hit). An
// unparseable reply is a *domain.ExtractionParseError; it is not retried.
func (e *MetadataExtractor) Extract(ctx context.Context, text string) (Extraction, error) {
	if e.cache != nil {
		meta, ok, err := e.cache.Get(text)
		if err == nil && ok {
			return Extraction{Metadata: e.finish(text, meta.LineCount, meta.Tags), Cached: true}, nil
		}
	}

	prompt, err := render(extractTemplate, extractPromptData{Post: text, MaxTags: e.maxTags})
	if err != nil {
		return Extraction{}, err
	}

	response, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return Extraction{}, fmt.Errorf("metadata extraction call failed: %w", err)
	}

	var reply metadataReply
	if err := jsonparse.Object(response, &reply); err != nil {
		return Extraction{}, &domain.ExtractionParseError{Response: response, Err: err}
	}

	meta := e.finish(text, reply.LineCount, reply.Tags)
	if e.cache != nil {
		if err := e.cache.Put(text, meta); err != nil {
			return Extraction{}, fmt.Errorf("failed to cache extraction: %w", err)
		}
	}
	return Extraction{Metadata: meta}, nil
}

// finish applies the script-based language and trims the tags to the cap.
func (e *MetadataExtractor) finish(text string, lineCount domain.LineCount, tags []string) domain.ExtractedMetadata {
	return domain.ExtractedMetadata{
		LineCount: lineCount,
		Language:  langdetect.Detect(text),
		Tags:      cleanTags(tags, e.maxTags),
	}
}

func cleanTags(tags []string, max int) []string {
	out := make([]string, 0, max)
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == max {
			break
		}
	}
	return out
}
