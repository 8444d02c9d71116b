package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"postenrich/internal/usecase"
)

var (
	examplesLength   string
	examplesLanguage string
	examplesTag      string
	examplesLimit    int
	examplesJSON     bool
	examplesStore    string
)

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "Print few-shot style examples for a generation prompt",
	Long: `Pick up to N posts matching the filters, skipping posts with blank text,
and print their text ready to paste into a generation prompt.

Examples:
  postenrich examples --length Medium --language Tamil --tag Motivation
  postenrich examples -l Short -g English -t "Job Search" -n 5`,
	Args: cobra.NoArgs,
	RunE: runExamples,
}

func init() {
	rootCmd.AddCommand(examplesCmd)
	addFilterFlags(examplesCmd, &examplesLength, &examplesLanguage, &examplesTag)
	examplesCmd.Flags().IntVarP(&examplesLimit, "limit", "n", 0, "number of examples (default from config)")
	examplesCmd.Flags().BoolVar(&examplesJSON, "json", false, "output as JSON")
	examplesCmd.Flags().StringVar(&examplesStore, "store", "", "processed posts file (default from config)")
}

func runExamples(cmd *cobra.Command, args []string) error {
	q, err := parseFilters(examplesLength, examplesLanguage, examplesTag)
	if err != nil {
		return err
	}

	limit := GetConfig().Pipeline.ExampleLimit
	if examplesLimit > 0 {
		limit = examplesLimit
	}

	fewShot := usecase.NewFewShotUseCase(openPostStore(examplesStore))
	examples := fewShot.Examples(q, limit)

	if examplesJSON {
		texts := make([]string, 0, len(examples))
		for _, p := range examples {
			texts = append(texts, p.Text)
		}
		output, err := json.MarshalIndent(texts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode examples: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(examples) == 0 {
		fmt.Println("No examples found.")
		return nil
	}

	fmt.Println("Use the writing style as per the following examples.")
	for i, p := range examples {
		fmt.Printf("\nExample %d: %s\n", i+1, p.Text)
	}
	return nil
}
