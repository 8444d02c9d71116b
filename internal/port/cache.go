package port

import "postenrich/internal/domain"

// ExtractionCache remembers parsed metadata keyed by post text.
type ExtractionCache interface {
	// Get returns the cached metadata for text, if any.
	Get(text string) (domain.ExtractedMetadata, bool, error)

	// Put stores metadata for text.
	Put(text string, meta domain.ExtractedMetadata) error
}
