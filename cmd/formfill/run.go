package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quillan/formfill-api/internal/domain"
)

func newRunCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
		extra      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate answers for a questions file",
		Long:  "run reads extracted questions from a JSON file, generates an answer for each, prints the results, and optionally writes them to an output file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			questions, err := readQuestions(inputPath)
			if err != nil {
				return err
			}

			p, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.close()

			batchID, results := p.service.BatchGenerate(cmd.Context(), questions, extra)

			printResults(cmd, questions, results)
			printStatsSummary(cmd, p)
			cmd.Printf("Batch ID: %s\n", batchID)

			if outputPath != "" {
				if err := writeAnswers(outputPath, results); err != nil {
					return err
				}
				cmd.Printf("Answers written to %s\n", outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the questions JSON file (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "path to write the answers JSON file")
	cmd.Flags().StringVar(&extra, "context", "", "extra context passed to the generator")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// readQuestions loads and decodes the input file. Per-question validation
// happens inside the service; a malformed file fails here.
func readQuestions(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions file: %w", err)
	}

	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse questions file: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("questions file %s contains no questions", path)
	}
	return questions, nil
}

func writeAnswers(path string, results []domain.AnswerResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write answers file: %w", err)
	}
	return nil
}

func printResults(cmd *cobra.Command, questions []domain.Question, results []domain.AnswerResult) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUESTION\tANSWER\tSOURCE")
	for i, q := range questions {
		source := "generated"
		switch {
		case results[i].Failed():
			source = "failed"
		case results[i].FromCache:
			source = "cache"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", q.Text, results[i].Answer, source)
	}
	_ = w.Flush()
}

func printStatsSummary(cmd *cobra.Command, p *pipeline) {
	stats := p.monitor.Statistics()

	hits := 0
	for _, access := range stats.CacheAccesses {
		if access.Hit {
			hits++
		}
	}

	cmd.Printf("\nRemote calls: %d  Errors: %d (rate %.2f)  Cache hits: %d/%d  Fallbacks: %d\n",
		stats.TotalCalls,
		stats.TotalErrors,
		stats.ErrorRate,
		hits,
		len(stats.CacheAccesses),
		stats.Fallbacks)
}
