package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/service"
)

const questionPreview = 60

// faqAdmin is the subset of FAQsService the commands use.
type faqAdmin interface {
	LoadFAQs(ctx context.Context, items []models.CreateFAQRequest, opts service.LoadOptions) (*models.LoadReport, error)
	ReindexAll(ctx context.Context) (*models.ReindexResponse, error)
	ClearIndex(ctx context.Context) error
	IndexCount(ctx context.Context) (int64, error)
}

type questionAnswerer interface {
	AnswerQuestion(ctx context.Context, question string) models.PipelineResult
}

type env struct {
	faqs     faqAdmin
	pipeline questionAnswerer
	close    func() error
}

// opener builds the services. probeEmbeddings is false for commands that never embed.
type opener func(ctx context.Context, probeEmbeddings bool) (*env, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "faqctl",
		Short:         "Manage the legal FAQ knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoadCmd(open),
		newReindexCmd(open),
		newClearIndexCmd(open),
		newCountCmd(open),
		newAskCmd(open),
	)

	return root
}

// withEnv opens the services for the duration of fn.
func withEnv(cmd *cobra.Command, open opener, probe bool, fn func(*env) error) (err error) {
	e, err := open(cmd.Context(), probe)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := e.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(e)
}

func readFAQFile(path string) ([]models.CreateFAQRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var items []models.CreateFAQRequest
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: expected a JSON array of {question, answer, category}: %w", path, err)
	}

	return items, nil
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n]) + "..."
}

func newLoadCmd(open opener) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Replace stored FAQs with the contents of a JSON file and index them",
		Long: `Deletes every stored FAQ and empties the vector index, then stores and indexes
each item of the file.
Items that fail validation or indexing are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := readFAQFile(file)
			if err != nil {
				return err
			}

			cmd.Printf("Found %d FAQs to load from %s\n\n", len(items), file)

			return withEnv(cmd, open, true, func(e *env) error {
				report, err := e.faqs.LoadFAQs(cmd.Context(), items, service.LoadOptions{
					Progress: func(done, total int, item *models.CreateFAQRequest, err error) {
						if err != nil {
							cmd.Printf("✗ [%d/%d] %s: %v\n", done, total, preview(item.Question, questionPreview), err)

							return
						}

						cmd.Printf("✓ [%d/%d] %s - %s\n", done, total, item.Category, preview(item.Question, questionPreview))
					},
				})
				if report != nil {
					printLoadReport(cmd, report)
				}

				if err != nil {
					return err
				}

				if len(report.Failures) > 0 {
					return fmt.Errorf("%d of %d FAQs failed to load", len(report.Failures), report.Total)
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "data/legal_faqs.json", "path to the FAQ JSON file")

	return cmd
}

func printLoadReport(cmd *cobra.Command, report *models.LoadReport) {
	cmd.Println()
	cmd.Printf("Loaded FAQs: %d/%d\n", report.Loaded, report.Total)
	cmd.Printf("Indexed vectors: %d\n", report.IndexCount)

	if len(report.Categories) > 0 {
		cmd.Println("\nFAQs by category:")

		for _, c := range report.Categories {
			cmd.Printf("  - %s: %d\n", c.Category, c.Count)
		}
	}
}

func newReindexCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Clear the vector index and re-embed every stored FAQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, true, func(e *env) error {
				resp, err := e.faqs.ReindexAll(cmd.Context())
				if err != nil {
					return err
				}

				for _, f := range resp.Failures {
					cmd.Printf("✗ %s: %s\n", preview(f.Question, questionPreview), f.Error)
				}

				cmd.Printf("Reindexed %d FAQs (%d failed); index holds %d vectors\n",
					resp.Indexed, len(resp.Failures), resp.IndexCount)

				return nil
			})
		},
	}
}

func newClearIndexCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-index",
		Short: "Remove every vector from the index, keeping stored FAQs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, false, func(e *env) error {
				if err := e.faqs.ClearIndex(cmd.Context()); err != nil {
					return err
				}

				cmd.Println("Vector index cleared")

				return nil
			})
		},
	}
}

func newCountCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of indexed vectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, open, false, func(e *env) error {
				n, err := e.faqs.IndexCount(cmd.Context())
				if err != nil {
					return err
				}

				cmd.Println(n)

				return nil
			})
		},
	}
}

func newAskCmd(open opener) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question from the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question must not be empty")
			}

			return withEnv(cmd, open, true, func(e *env) error {
				result := e.pipeline.AnswerQuestion(cmd.Context(), question)

				if asJSON {
					data, err := json.MarshalIndent(result, "", "  ")
					if err != nil {
						return fmt.Errorf("failed to marshal result: %w", err)
					}

					cmd.Println(string(data))

					return nil
				}

				cmd.Println(result.Answer)

				if len(result.Sources) > 0 {
					cmd.Println("\nSources:")

					for i, src := range result.Sources {
						cmd.Printf("  [%d] %s - %s (%.2f)\n", i+1, src.Category, src.Question, src.SimilarityScore)
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output the answer and sources as JSON")

	return cmd
}
