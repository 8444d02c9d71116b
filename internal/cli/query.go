package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"postenrich/config"
	"postenrich/internal/adapter/memstore"
	"postenrich/internal/domain"
	"postenrich/internal/usecase"
)

var (
	queryLength   string
	queryLanguage string
	queryTag      string
	queryJSON     bool
	queryStore    string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List processed posts matching a length, language and tag",
	Long: `Select posts from the processed corpus by exact length category, language
and canonical tag. All three filters are required and must match exactly.

Examples:
  postenrich query --length Short --language English --tag "Job Search"
  postenrich query -l Medium -g Sinhala -t Motivation --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addFilterFlags(queryCmd, &queryLength, &queryLanguage, &queryTag)
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().StringVar(&queryStore, "store", "", "processed posts file (default from config)")
}

// addFilterFlags registers the length/language/tag filters shared by query and examples.
func addFilterFlags(cmd *cobra.Command, length, language, tag *string) {
	cmd.Flags().StringVarP(length, "length", "l", "", "length category: Short, Medium, Long or Unknown (required)")
	cmd.Flags().StringVarP(language, "language", "g", "", "language: English, Tamil or Sinhala (required)")
	cmd.Flags().StringVarP(tag, "tag", "t", "", "canonical tag (required)")
	cmd.MarkFlagRequired("length")
	cmd.MarkFlagRequired("language")
	cmd.MarkFlagRequired("tag")
}

func parseFilters(length, language, tag string) (usecase.FewShotQuery, error) {
	l, err := domain.ParseLengthCategory(length)
	if err != nil {
		return usecase.FewShotQuery{}, err
	}
	g, err := domain.ParseLanguage(language)
	if err != nil {
		return usecase.FewShotQuery{}, err
	}
	return usecase.FewShotQuery{Length: l, Language: g, Tag: tag}, nil
}

// openPostStore loads the processed corpus. A missing or unreadable file
// yields an empty store; the cause is logged and echoed to stderr.
func openPostStore(override string) *memstore.PostStore {
	path := config.Resolve(GetRootDir(), GetConfig().Pipeline.ProcessedPath)
	if override != "" {
		path = override
	}
	ps := memstore.Load(path, GetLogger())
	if err := ps.LoadErr(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (run 'postenrich preprocess' first)\n", err)
	}
	return ps
}

func runQuery(cmd *cobra.Command, args []string) error {
	q, err := parseFilters(queryLength, queryLanguage, queryTag)
	if err != nil {
		return err
	}

	ps := openPostStore(queryStore)
	posts := ps.GetFilteredPosts(q.Length, q.Language, q.Tag)

	if queryJSON {
		output, err := json.MarshalIndent(posts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(posts) == 0 {
		fmt.Println("No posts found.")
		if !ps.GetTags().Contains(q.Tag) && ps.Len() > 0 {
			fmt.Printf("Tag %q is not in the vocabulary; see 'postenrich tags'.\n", q.Tag)
		}
		return nil
	}

	fmt.Printf("Found %d posts (%s, %s, %s)\n\n", len(posts), q.Length, q.Language, q.Tag)
	for i, p := range posts {
		fmt.Printf("--- [%d] lines: %s tags: %s ---\n", i+1, formatLineCount(p.LineCount), strings.Join(p.Tags, ", "))
		fmt.Println(truncate(p.Text, 500))
		fmt.Println()
	}

	return nil
}

func formatLineCount(c domain.LineCount) string {
	if !c.Valid {
		return "?"
	}
	return c.String()
}

// truncate shortens s to at most n characters.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
