package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"postenrich/internal/adapter/sanitize"
	"postenrich/internal/domain"
	"postenrich/internal/port"
)

// EnrichUseCase turns a raw corpus into the processed corpus.
type EnrichUseCase struct {
	source      port.PostSource
	writer      port.CorpusWriter
	extractor   *MetadataExtractor
	unifier     *TagUnifier
	concurrency int
	logger      *zap.Logger
}

// NewEnrichUseCase creates a new enrich use case. A concurrency below 2 keeps
// the one-post-at-a-time behaviour.
func NewEnrichUseCase(
	source port.PostSource,
	writer port.CorpusWriter,
	extractor *MetadataExtractor,
	unifier *TagUnifier,
	concurrency int,
	logger *zap.Logger,
) *EnrichUseCase {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichUseCase{
		source:      source,
		writer:      writer,
		extractor:   extractor,
		unifier:     unifier,
		concurrency: concurrency,
		logger:      logger,
	}
}

// RunRequest names the input and output of a run.
type RunRequest struct {
	RawPath       string
	ProcessedPath string
	// Progress, if set, is called after each post is extracted.
	Progress func(done, total int)
}

// RunContext is the state carried between the stages of one run.
type RunContext struct {
	ID        uuid.UUID
	Started   time.Time
	Posts     []domain.EnrichedPost
	RawTags   []string
	TagMap    domain.TagMap
	Fallbacks []string
	CacheHits int
}

// RunResult contains the results of a pipeline run.
type RunResult struct {
	RunID         string
	Posts         int
	RawTags       int
	CanonicalTags int
	Fallbacks     []string
	CacheHits     int
	Output        string
	Duration      time.Duration
}

// Run executes the pipeline: extract every post, unify the full tag
// vocabulary once, rewrite tags, persist. Any failure aborts the run before
// anything is written.
func (u *EnrichUseCase) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	rc := &RunContext{ID: uuid.New(), Started: time.Now()}
	log := u.logger.With(zap.String("run_id", rc.ID.String()))

	raw, err := u.source.ReadPosts(req.RawPath)
	if err != nil {
		return nil, err
	}
	log.Info("read raw posts", zap.String("path", req.RawPath), zap.Int("posts", len(raw)))

	if err := u.extractAll(ctx, rc, raw, req.Progress, log); err != nil {
		return nil, err
	}

	if err := u.unify(ctx, rc, log); err != nil {
		return nil, err
	}

	for i := range rc.Posts {
		rc.Posts[i].Tags = rc.TagMap.Apply(rc.Posts[i].Tags)
	}

	if err := u.writer.WriteCorpus(req.ProcessedPath, rc.Posts); err != nil {
		return nil, fmt.Errorf("failed to persist processed posts: %w", err)
	}

	result := &RunResult{
		RunID:         rc.ID.String(),
		Posts:         len(rc.Posts),
		RawTags:       len(rc.RawTags),
		CanonicalTags: rc.TagMap.Values().Len(),
		Fallbacks:     rc.Fallbacks,
		CacheHits:     rc.CacheHits,
		Output:        req.ProcessedPath,
		Duration:      time.Since(rc.Started),
	}
	log.Info("enrichment complete",
		zap.Int("posts", result.Posts),
		zap.Int("raw_tags", result.RawTags),
		zap.Int("canonical_tags", result.CanonicalTags),
		zap.Int("fallbacks", len(result.Fallbacks)),
		zap.Int("cache_hits", result.CacheHits),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// extractAll extracts metadata for every post with at most u.concurrency
// calls in flight. Results keep corpus order and the first failure cancels
// the rest.
func (u *EnrichUseCase) extractAll(ctx context.Context, rc *RunContext, raw []domain.RawPost, progress func(done, total int), log *zap.Logger) error {
	posts := make([]domain.EnrichedPost, len(raw))
	cached := make([]bool, len(raw))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for i := range raw {
		i := i // per-iteration copy; go directive lowered to 1.21 for the local toolchain
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			post := raw[i]
			post.Text = sanitize.Text(post.Text)

			ext, err := u.extractor.Extract(gctx, post.Text)
			if err != nil {
				return fmt.Errorf("post %d: %w", i, err)
			}

			posts[i] = domain.Merge(post, ext.Metadata)
			cached[i] = ext.Cached

			log.Debug("extracted metadata",
				zap.Int("post", i),
				zap.String("language", string(ext.Metadata.Language)),
				zap.Strings("tags", ext.Metadata.Tags),
				zap.Any("line_count", ext.Metadata.LineCount),
				zap.Bool("cached", ext.Cached),
			)

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(raw))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	rc.Posts = posts
	for _, c := range cached {
		if c {
			rc.CacheHits++
		}
	}
	return nil
}

// unify runs the unifier exactly once over the complete raw vocabulary.
func (u *EnrichUseCase) unify(ctx context.Context, rc *RunContext, log *zap.Logger) error {
	var all []string
	for _, p := range rc.Posts {
		all = append(all, p.Tags...)
	}
	rc.RawTags = domain.NewTagSet(all).Sorted()

	result, err := u.unifier.Unify(ctx, rc.RawTags)
	if err != nil {
		return err
	}
	rc.TagMap = result.Map
	rc.Fallbacks = result.Fallbacks

	if len(result.Fallbacks) > 0 {
		log.Warn("model omitted tags from unification, kept them as-is",
			zap.Strings("tags", result.Fallbacks),
		)
	}
	return nil
}
