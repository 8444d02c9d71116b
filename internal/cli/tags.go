package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	tagsJSON  bool
	tagsStore string
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List the canonical tag vocabulary",
	Long: `Print every distinct tag in the processed corpus, sorted.

Examples:
  postenrich tags
  postenrich tags --json`,
	Args: cobra.NoArgs,
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "output as JSON")
	tagsCmd.Flags().StringVar(&tagsStore, "store", "", "processed posts file (default from config)")
}

func runTags(cmd *cobra.Command, args []string) error {
	tags := openPostStore(tagsStore).GetTags()

	if tagsJSON {
		output, err := json.MarshalIndent(tags, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode tags: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	for _, t := range tags.Sorted() {
		fmt.Println(t)
	}
	return nil
}
