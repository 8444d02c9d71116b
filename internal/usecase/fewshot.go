package usecase

import (
	"strings"

	"postenrich/internal/domain"
	"postenrich/internal/port"
)

// DefaultExampleLimit is the number of examples handed to a generation prompt.
const DefaultExampleLimit = 3

// FewShotQuery selects examples by exact length, language and tag.
type FewShotQuery struct {
	Length   domain.LengthCategory
	Language domain.Language
	Tag      string
}

// FewShotUseCase picks style examples from the processed corpus.
type FewShotUseCase struct {
	posts port.PostReader
}

func NewFewShotUseCase(posts port.PostReader) *FewShotUseCase {
	return &FewShotUseCase{posts: posts}
}

// Examples returns up to limit matching posts with non-blank text, in corpus
// order. A limit below 1 means DefaultExampleLimit.
func (u *FewShotUseCase) Examples(q FewShotQuery, limit int) []domain.EnrichedPost {
	if limit < 1 {
		limit = DefaultExampleLimit
	}
	out := []domain.EnrichedPost{}
	for _, p := range u.posts.GetFilteredPosts(q.Length, q.Language, q.Tag) {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}
