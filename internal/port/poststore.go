package port

import "postenrich/internal/domain"

// PostReader answers exact-match queries over a loaded processed corpus.
type PostReader interface {
	GetFilteredPosts(length domain.LengthCategory, language domain.Language, tag string) []domain.EnrichedPost
	GetTags() domain.TagSet
}
