package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/JonMunkholm/pmobuilder/internal/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// DefaultTimeout bounds one semantic scoring call.
const DefaultTimeout = 20 * time.Second

// ErrScoring marks a failed call to the semantic scoring service.
var ErrScoring = errors.New("semantic scoring failed")

// ScoringError wraps a failure of the remote scoring service.
type ScoringError struct {
	Model string
	Err   error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("semantic scoring failed (model %s): %v", e.Model, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

func (e *ScoringError) Is(target error) bool { return target == ErrScoring }

// Generator produces a JSON completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Semantic asks a generative model to rate how well each source column
// describes each target field.
type Semantic struct {
	gen     Generator
	model   string
	timeout time.Duration
}

// NewSemantic creates a semantic scorer around gen.
func NewSemantic(gen Generator, model string, timeout time.Duration) *Semantic {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Semantic{gen: gen, model: model, timeout: timeout}
}

func (s *Semantic) Name() string { return MethodSemantic }

type semanticReply struct {
	Scores [][]float64 `json:"scores"`
}

func (s *Semantic) Score(ctx context.Context, sources, targets []string) (Matrix, error) {
	if len(sources) == 0 || len(targets) == 0 {
		return emptyMatrix(len(sources), len(targets)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.gen.Generate(ctx, semanticPrompt(sources, targets))
	if err != nil {
		return nil, &ScoringError{Model: s.model, Err: err}
	}

	var reply semanticReply
	if err := json.Unmarshal([]byte(stripFence(text)), &reply); err != nil {
		return nil, &ScoringError{Model: s.model, Err: fmt.Errorf("decode reply: %w", err)}
	}
	m := Matrix(reply.Scores)
	if err := m.check(len(sources), len(targets)); err != nil {
		return nil, &ScoringError{Model: s.model, Err: err}
	}
	for _, row := range m {
		for j, v := range row {
			row[j] = min(max(v, 0), 1)
		}
	}

	logging.FromContext(ctx).Debug("semantic scores received",
		"model", s.model,
		"sources", len(sources),
		"targets", len(targets),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return m, nil
}

func semanticPrompt(sources, targets []string) string {
	src, _ := json.Marshal(sources)
	tgt, _ := json.Marshal(targets)

	var b strings.Builder
	b.WriteString("You map spreadsheet column names to the fields of a genomics data standard ")
	b.WriteString("(Portable Microhaplotype Object).\n")
	b.WriteString("Rate how likely each source column holds the data of each target field, from 0 to 1.\n")
	fmt.Fprintf(&b, "Source columns: %s\n", src)
	fmt.Fprintf(&b, "Target fields: %s\n", tgt)
	b.WriteString(`Reply with JSON only: {"scores": [[...], ...]} with one row per source column, `)
	b.WriteString("in the given order, and one number per target field, in the given order.")
	return b.String()
}

// stripFence removes a Markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func emptyMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// GeminiGenerator calls the Gemini API through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini API client authenticated by apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
