package port

import "postenrich/internal/domain"

// PostSource reads the raw corpus.
type PostSource interface {
	ReadPosts(path string) ([]domain.RawPost, error)
}

// CorpusWriter persists the enriched corpus.
type CorpusWriter interface {
	WriteCorpus(path string, posts []domain.EnrichedPost) error
}
