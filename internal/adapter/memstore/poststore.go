package memstore

import (
	"maps"

	"go.uber.org/zap"
	"postenrich/internal/adapter/length"
	"postenrich/internal/adapter/store"
	"postenrich/internal/domain"
)

// PostStore is an immutable in-memory snapshot of the processed corpus. It is
// safe for concurrent readers.
type PostStore struct {
	posts   []domain.EnrichedPost
	tags    domain.TagSet
	loadErr error
}

// Load reads the processed corpus at path. It never fails: a missing or
// malformed file is logged and yields an empty store whose queries return
// empty results.
func Load(path string, logger *zap.Logger) *PostStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	posts, err := store.ReadCorpus(path)
	if err != nil {
		loadErr := &domain.StoreLoadError{Path: path, Err: err}
		logger.Warn("processed posts unavailable, serving empty corpus",
			zap.String("path", path),
			zap.Error(loadErr),
		)
		return &PostStore{tags: domain.NewTagSet(nil), loadErr: loadErr}
	}

	s := New(posts)
	logger.Debug("loaded processed posts",
		zap.String("path", path),
		zap.Int("posts", len(s.posts)),
		zap.Int("tags", s.tags.Len()),
	)
	return s
}

// New builds a store from posts, deriving each post's length category.
func New(posts []domain.EnrichedPost) *PostStore {
	snapshot := make([]domain.EnrichedPost, len(posts))
	var all []string
	for i, p := range posts {
		p.Tags = append([]string{}, p.Tags...)
		p.LengthCategory = length.Categorize(p.LineCount)
		snapshot[i] = p
		all = append(all, p.Tags...)
	}
	return &PostStore{
		posts: snapshot,
		tags:  domain.NewTagSet(all),
	}
}

// GetFilteredPosts returns, in load order, the posts whose length category,
// language and tags match exactly. It returns an empty slice when nothing
// matches.
func (s *PostStore) GetFilteredPosts(lengthCategory domain.LengthCategory, language domain.Language, tag string) []domain.EnrichedPost {
	out := []domain.EnrichedPost{}
	for _, p := range s.posts {
		if p.Language != language || p.LengthCategory != lengthCategory || !p.HasTag(tag) {
			continue
		}
		out = append(out, clonePost(p))
	}
	return out
}

// GetTags returns the distinct canonical tags across the corpus.
func (s *PostStore) GetTags() domain.TagSet {
	return s.tags
}

// Posts returns a copy of every loaded post.
func (s *PostStore) Posts() []domain.EnrichedPost {
	out := make([]domain.EnrichedPost, len(s.posts))
	for i, p := range s.posts {
		out[i] = clonePost(p)
	}
	return out
}

func (s *PostStore) Len() int {
	return len(s.posts)
}

// LoadErr returns the *domain.StoreLoadError recorded by Load, if any.
func (s *PostStore) LoadErr() error {
	return s.loadErr
}

func clonePost(p domain.EnrichedPost) domain.EnrichedPost {
	p.Tags = append([]string{}, p.Tags...)
	p.Extra = maps.Clone(p.Extra)
	return p
}
