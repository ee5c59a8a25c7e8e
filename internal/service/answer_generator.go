package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/observability"
)

const (
	systemPrompt = "You are a helpful legal assistant that provides accurate information based on the given context. " +
		"Always be clear, concise, and helpful."

	promptTemplate = `You are a helpful legal assistant. Answer the user's question based on the following context from our legal FAQ database.

Provide a clear, accurate, and helpful answer. If the context doesn't fully answer the question, do your best to provide useful information while noting any limitations.

Context:
%s

User Question: %s

Answer:`

	apologyPrefix = "I apologize, but I encountered an error generating an answer. Please try again. Error: "
)

// ErrEmptyAnswer is returned in GenerationResult.Err when the completer returns only whitespace.
var ErrEmptyAnswer = errors.New("completion returned an empty answer")

// Completer sends one system+user exchange to a language model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// GenerationResult is the generated answer. On failure Answer holds the apology text and Err the cause;
// Answer is never empty.
type GenerationResult struct {
	Answer string
	Err    error
}

// AnswerGenerator turns retrieved sources into a grounded answer.
type AnswerGenerator struct {
	completer Completer
}

// NewAnswerGenerator creates an AnswerGenerator.
func NewAnswerGenerator(completer Completer) *AnswerGenerator {
	return &AnswerGenerator{completer: completer}
}

// BuildContext renders sources as numbered "[Source N - category]" blocks with Q and A lines.
func BuildContext(sources []models.RetrievedSource) string {
	var b strings.Builder

	for i, src := range sources {
		fmt.Fprintf(&b, "\n[Source %d - %s]\n", i+1, src.Category)
		fmt.Fprintf(&b, "Q: %s\n", src.Question)
		fmt.Fprintf(&b, "A: %s\n", src.Answer)
	}

	return b.String()
}

// BuildPrompt returns the user message sent to the language model.
func BuildPrompt(question string, sources []models.RetrievedSource) string {
	return fmt.Sprintf(promptTemplate, BuildContext(sources), question)
}

// Apology returns the user-facing answer used when generation fails.
func Apology(err error) string {
	return apologyPrefix + err.Error()
}

// Generate asks the language model to answer question from sources. It is attempted once.
func (g *AnswerGenerator) Generate(ctx context.Context, question string, sources []models.RetrievedSource) GenerationResult {
	ctx, span := observability.Tracer().Start(ctx, "generation.generate")
	defer span.End()

	span.SetAttributes(attribute.Int("generation.source_count", len(sources)))

	answer, err := g.completer.Complete(ctx, systemPrompt, BuildPrompt(question, sources))
	if err == nil {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			err = ErrEmptyAnswer
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")

		return GenerationResult{Answer: Apology(err), Err: err}
	}

	return GenerationResult{Answer: answer}
}
