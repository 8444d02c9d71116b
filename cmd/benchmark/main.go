package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"postenrich/config"
	"postenrich/internal/adapter/memstore"
	"postenrich/internal/domain"
	"postenrich/internal/logging"
	"postenrich/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Project directory")
	storePath := flag.String("store", "", "Processed posts file (default from config)")
	rounds := flag.Int("n", 1000, "Lookup rounds per cell for timing")
	flag.Parse()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	path := config.Resolve(*dir, cfg.Pipeline.ProcessedPath)
	if *storePath != "" {
		path = *storePath
	}

	ps := memstore.Load(path, logging.Nop())
	if err := ps.LoadErr(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading processed posts: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("FEW-SHOT COVERAGE BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Posts: %d\n", ps.Len())
	fmt.Printf("Tags:  %d\n", ps.GetTags().Len())
	fmt.Printf("Examples per prompt: %d\n", cfg.Pipeline.ExampleLimit)
	fmt.Println()

	fewShot := usecase.NewFewShotUseCase(ps)
	lengths := []domain.LengthCategory{domain.Short, domain.Medium, domain.Long}

	var cells, full, partial, empty int
	var lookups int
	var elapsed time.Duration

	for _, tag := range ps.GetTags().Sorted() {
		for _, lang := range domain.Languages {
			for _, length := range lengths {
				q := usecase.FewShotQuery{Length: length, Language: lang, Tag: tag}

				start := time.Now()
				var got []domain.EnrichedPost
				for i := 0; i < *rounds; i++ {
					got = fewShot.Examples(q, cfg.Pipeline.ExampleLimit)
				}
				elapsed += time.Since(start)
				lookups += *rounds

				cells++
				switch {
				case len(got) == 0:
					empty++
				case len(got) < cfg.Pipeline.ExampleLimit:
					partial++
					fmt.Printf("  PARTIAL %d/%d  %-7s %-8s %s\n", len(got), cfg.Pipeline.ExampleLimit, length, lang, tag)
				default:
					full++
				}
			}
		}
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("COVERAGE:\n")
	fmt.Printf("  Cells:   %d\n", cells)
	fmt.Printf("  Full:    %d\n", full)
	fmt.Printf("  Partial: %d\n", partial)
	fmt.Printf("  Empty:   %d\n", empty)
	if lookups > 0 {
		fmt.Printf("  Avg lookup: %s\n", elapsed/time.Duration(lookups))
	}

	if cells == 0 {
		fmt.Println("  Status: EMPTY - run 'postenrich preprocess' first")
	} else if float64(full)/float64(cells) > 0.5 {
		fmt.Println("  Status: GOOD - most prompts get a full example set")
	} else if full+partial > 0 {
		fmt.Println("  Status: OK - many prompts fall back to fewer examples")
	} else {
		fmt.Println("  Status: POOR - no cell has examples")
	}
}
