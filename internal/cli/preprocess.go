package cli

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"postenrich/config"
	"postenrich/internal/adapter/fs"
	"postenrich/internal/adapter/llm"
	"postenrich/internal/adapter/store"
	"postenrich/internal/domain"
	"postenrich/internal/port"
	"postenrich/internal/usecase"
)

var (
	preprocessRaw         string
	preprocessOut         string
	preprocessConcurrency int
	preprocessCache       bool
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Extract metadata and unify tags for a raw post corpus",
	Long: `Run the enrichment pipeline over a raw corpus: every post is sent to the
model once for line count and tags, its language is set from the script it is
written in, and once all posts are done the full tag vocabulary is unified in a
single call. The processed corpus is written only if every step succeeds.

--raw accepts a JSON file, a directory (walked with pipeline.includes/excludes)
or a glob such as 'data/raw/**/*.json'.

Examples:
  postenrich preprocess
  postenrich preprocess --raw data/raw --out data/processed_posts.json --concurrency 4
  postenrich preprocess --cache`,
	Args: cobra.NoArgs,
	RunE: runPreprocess,
}

func init() {
	rootCmd.AddCommand(preprocessCmd)
	preprocessCmd.Flags().StringVar(&preprocessRaw, "raw", "", "raw posts file, directory or glob (default from config)")
	preprocessCmd.Flags().StringVarP(&preprocessOut, "out", "o", "", "processed posts file (default from config)")
	preprocessCmd.Flags().IntVarP(&preprocessConcurrency, "concurrency", "c", 0, "extraction calls in flight (default from config)")
	preprocessCmd.Flags().BoolVar(&preprocessCache, "cache", false, "reuse extractions of unchanged posts from the local cache")
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()
	log := GetLogger()

	rawPath := config.Resolve(dir, cfg.Pipeline.RawPath)
	if preprocessRaw != "" {
		rawPath = preprocessRaw
	}
	outPath := config.Resolve(dir, cfg.Pipeline.ProcessedPath)
	if preprocessOut != "" {
		outPath = preprocessOut
	}
	concurrency := cfg.Pipeline.Concurrency
	if preprocessConcurrency > 0 {
		concurrency = preprocessConcurrency
	}

	model, err := llm.NewClient(llm.Options{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		BaseURL:           cfg.LLM.BaseURL,
		APIKeyEnv:         cfg.LLM.APIKeyEnv,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	var cache port.ExtractionCache
	if cfg.Cache.Enabled || preprocessCache {
		bc, err := openCache(cfg, dir, model.ModelName())
		if err != nil {
			return err
		}
		defer bc.Close()
		cache = bc
	}

	corpus := store.NewJSONCorpus(fs.NewWalker(cfg.Pipeline.Includes, cfg.Pipeline.Excludes))
	enrichUC := usecase.NewEnrichUseCase(
		corpus,
		corpus,
		usecase.NewMetadataExtractor(model, cache, cfg.Pipeline.MaxTags),
		usecase.NewTagUnifier(model),
		concurrency,
		log,
	)

	fmt.Printf("Enriching %s...\n", rawPath)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(processed, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Extracting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			remaining := total - processed
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Extracting[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := enrichUC.Run(cmd.Context(), usecase.RunRequest{
		RawPath:       rawPath,
		ProcessedPath: outPath,
		Progress:      progressCallback,
	})
	if err != nil {
		return describeRunError(err)
	}

	stats := model.GetStats()
	fmt.Printf("\nEnrichment complete:\n")
	fmt.Printf("  Posts:          %d\n", result.Posts)
	fmt.Printf("  Raw tags:       %d\n", result.RawTags)
	fmt.Printf("  Canonical tags: %d\n", result.CanonicalTags)
	if result.CacheHits > 0 {
		fmt.Printf("  Cached:         %d\n", result.CacheHits)
	}
	fmt.Printf("  Model calls:    %d\n", stats.TotalCalls)
	fmt.Printf("  Duration:       %s\n", formatDuration(result.Duration))

	if len(result.Fallbacks) > 0 {
		fmt.Printf("\nTags kept as-is (not returned by unification):\n")
		for _, t := range result.Fallbacks {
			fmt.Printf("  - %s\n", t)
		}
	}

	fmt.Printf("\nProcessed posts stored at: %s\n", result.Output)
	return nil
}

func openCache(cfg *config.Config, dir, modelName string) (*store.BoltCache, error) {
	if cfg.Cache.Path == "" {
		if err := config.EnsureStateDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create .postenrich directory: %w", err)
		}
	}

	bc, err := store.NewBoltCache(cfg.CacheDBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open extraction cache: %w", err)
	}

	migration, err := bc.Prepare(store.Fingerprint{
		Model:         modelName,
		PromptVersion: usecase.PromptVersion,
		MaxTags:       cfg.Pipeline.MaxTags,
	})
	if err != nil {
		bc.Close()
		return nil, err
	}
	if migration.NeedsRebuild {
		fmt.Printf("Extraction cache cleared: %s\n", migration.Reason)
	}
	return bc, nil
}

// describeRunError turns pipeline failures into one-line operator messages.
func describeRunError(err error) error {
	var (
		decodeErr  *domain.DecodeError
		extractErr *domain.ExtractionParseError
		unifyErr   *domain.UnificationParseError
	)
	switch {
	case errors.As(err, &decodeErr):
		return fmt.Errorf("cannot read raw posts, nothing was written: %w", err)
	case errors.As(err, &extractErr):
		return fmt.Errorf("metadata extraction failed, nothing was written: %w", err)
	case errors.As(err, &unifyErr):
		return fmt.Errorf("tag unification failed, nothing was written: %w", err)
	default:
		return fmt.Errorf("enrichment failed: %w", err)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
