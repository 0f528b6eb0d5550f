// Package categorize suggests a category for a transaction description
// using Gemini.
package categorize

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// Generator produces a text answer for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls a Gemini model through Vertex AI.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Vertex AI backed generator.
func NewGeminiGenerator(ctx context.Context, project, location, model string) (*GeminiGenerator, error) {
	if project == "" {
		return nil, fmt.Errorf("NewGeminiGenerator: project is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:     project,
		Location:    location,
		Backend:     genai.BackendVertexAI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// GenerateText sends a single user turn and returns the text answer.
func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}
	temp := float32(0)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("GenerateText: generate content: %w", err)
	}
	return resp.Text(), nil
}

// Suggester picks one of a user's categories for a description.
type Suggester struct {
	gen Generator
}

// NewSuggester creates a Suggester on a text generator.
func NewSuggester(gen Generator) *Suggester {
	return &Suggester{gen: gen}
}

// Suggest returns the candidate the model chose, or "" when it chose none
// of them. An empty description or candidate list never reaches the model.
func (s *Suggester) Suggest(ctx context.Context, description string, candidates []string) (string, error) {
	description = strings.TrimSpace(description)
	candidates = dedupe(candidates)
	if description == "" || len(candidates) == 0 {
		return "", nil
	}

	answer, err := s.gen.GenerateText(ctx, BuildPrompt(description, candidates))
	if err != nil {
		return "", fmt.Errorf("Suggest: %w", err)
	}
	return ParseAnswer(answer, candidates), nil
}

// BuildPrompt asks for exactly one category name out of candidates.
func BuildPrompt(description string, candidates []string) string {
	var b strings.Builder
	b.WriteString("You categorize personal finance transactions.\n\n")
	b.WriteString("Allowed categories:\n")
	for _, c := range candidates {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("\nTransaction description: ")
	b.WriteString(strings.ReplaceAll(description, "\n", " "))
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Answer with exactly one category from the list, spelled as listed.\n")
	b.WriteString("- If none fits, answer NONE.\n")
	b.WriteString("- Do NOT add explanations, quotes or Markdown.\n")
	return b.String()
}

// ParseAnswer maps the model output back to a candidate. Matching ignores
// case, surrounding quotes, code fences and a trailing period.
func ParseAnswer(answer string, candidates []string) string {
	s := strings.TrimSpace(answer)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "- ")
	s = strings.Trim(s, "\"'`*")
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	fold := cases.Fold()
	want := fold.String(s)
	for _, c := range candidates {
		if fold.String(strings.TrimSpace(c)) == want {
			return c
		}
	}
	return ""
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
