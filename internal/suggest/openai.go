package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"contentplanner/internal/domain"
)

// CompletionsService is the slice of the OpenAI client used here, so tests
// can run without the real API.
type CompletionsService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI asks a chat model for ideas returned as a JSON array.
type OpenAI struct {
	completions CompletionsService
	model       string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return NewOpenAIWithService(client.Chat.Completions, model)
}

func NewOpenAIWithService(svc CompletionsService, model string) *OpenAI {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &OpenAI{completions: svc, model: model}
}

const systemPrompt = `You plan social media content for aesthetics clinics in Brazil.
Answer ONLY with a JSON array. Each element has the keys:
"title" (string, Portuguese), "description" (string), "tags" (array of strings),
"format" (one of: %s), "objective" (one of: %s), "distribution" (one of: %s).`

type suggestion struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Format       string   `json:"format"`
	Objective    string   `json:"objective"`
	Distribution string   `json:"distribution"`
}

func (o *OpenAI) Suggest(ctx context.Context, count int, objective *domain.Objective, format *domain.Format) ([]domain.ItemPatch, error) {
	if count <= 0 {
		return nil, nil
	}
	user := fmt.Sprintf("Suggest %d content ideas.", count)
	if objective != nil {
		user += fmt.Sprintf(" Objective: %s.", *objective)
	}
	if format != nil {
		user += fmt.Sprintf(" Format: %s.", *format)
	}
	resp, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(systemPrompt, joinEnum(domain.Formats()), joinEnum(domain.Objectives()), joinEnum(domain.Distributions()))),
			openai.UserMessage(user),
		}),
		Model: openai.F(openai.ChatModel(o.model)),
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("suggestion request failed: no choices returned")
	}
	return parseSuggestions(resp.Choices[0].Message.Content, count)
}

// parseSuggestions decodes the model answer, dropping unknown enum values so
// the store applies its defaults.
func parseSuggestions(content string, count int) ([]domain.ItemPatch, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []suggestion
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	out := make([]domain.ItemPatch, 0, len(raw))
	for _, s := range raw {
		if len(out) == count {
			break
		}
		title := strings.TrimSpace(s.Title)
		if title == "" {
			continue
		}
		p := domain.ItemPatch{Title: domain.Ptr(title)}
		if s.Description != "" {
			p.Description = domain.Ptr(s.Description)
		}
		if len(s.Tags) > 0 {
			tags := domain.NormalizeTags(s.Tags)
			p.Tags = &tags
		}
		if f, err := domain.ParseFormat(s.Format); err == nil {
			p.Format = &f
		}
		if obj, err := domain.ParseObjective(s.Objective); err == nil {
			p.Objective = &obj
		}
		if d, err := domain.ParseDistribution(s.Distribution); err == nil {
			p.Distribution = &d
		}
		out = append(out, p)
	}
	return out, nil
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%q", string(v))
	}
	return strings.Join(parts, ", ")
}
