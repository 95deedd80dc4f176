// Package assist turns an LLM provider into the narrow helpers the pricing
// flow needs: search term generation and clarification questions.
package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/allendavis-developer/cg-request/internal/extract"
	"github.com/allendavis-developer/cg-request/internal/llm"
	"github.com/allendavis-developer/cg-request/internal/logger"
	"github.com/allendavis-developer/cg-request/internal/refine"
)

// Client wraps an llm.Provider with the prompting and parsing for each
// tooling task. It implements refine.Generator.
type Client struct {
	provider llm.Provider
}

// NewClient creates a tooling client over the given provider.
func NewClient(provider llm.Provider) *Client {
	return &Client{provider: provider}
}

// GenerateSearchTerm condenses a free-form request into a marketplace search
// term. Extra context (item details, condition, expectations) is passed to
// the model when given. On any backend failure the request text itself is
// returned so the search can still proceed.
func (c *Client) GenerateSearchTerm(ctx context.Context, requestText, searchContext string) string {
	var userPrompt string
	if searchContext != "" {
		userPrompt = fmt.Sprintf("User request: %q\n\nContext: %s\n\nGenerate a search term:", requestText, searchContext)
	} else {
		userPrompt = fmt.Sprintf("User request: %q\n\nGenerate a search term:", requestText)
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: searchTermSystemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		MaxTokens:   100,
		Temperature: 0.3,
	})
	if err != nil {
		logger.Warn("assist: search term generation failed, using request text", "error", err)
		return requestText
	}

	term := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Content), `"`))
	if term == "" {
		return requestText
	}
	logger.Debug("assist: search term generated", "term", term)
	return term
}

// CheckClarificationNeeded asks the model whether the remaining candidates
// still need disambiguating. It implements Phase A of refine.Generator.
func (c *Client) CheckClarificationNeeded(ctx context.Context, candidates []extract.ProductRecord, asked []refine.Question, answers map[string]string, requestText string) (bool, error) {
	userPrompt := necessityUserPrompt(candidates, asked, answers)

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: necessitySystemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		return false, fmt.Errorf("necessity check: %w", err)
	}
	return parseNecessity(resp.Content), nil
}

// GenerateClarificationQuestion asks the model for one new question over the
// candidates. A nil question with nil error means none is needed.
func (c *Client) GenerateClarificationQuestion(ctx context.Context, candidates []extract.ProductRecord, asked []refine.Question, answers map[string]string, requestText string) (*refine.Question, error) {
	userPrompt := questionUserPrompt(candidates, asked, requestText)

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: questionSystemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("question generation: %w", err)
	}
	return parseQuestion(resp.Content), nil
}

func necessityUserPrompt(candidates []extract.ProductRecord, asked []refine.Question, answers map[string]string) string {
	var sb strings.Builder
	sb.WriteString("Given these filtered products (already narrowed by previous answers), determine if another question is needed:\n\n")
	sb.WriteString(productsJSON(candidates))

	if len(asked) > 0 {
		sb.WriteString("\n\nPrevious questions and answers:\n")
		for _, q := range asked {
			label := "Not answered"
			if value, ok := answers[q.ID]; ok {
				label = q.OptionLabel(value)
			}
			fmt.Fprintf(&sb, "- %s -> %s\n", q.Text, label)
		}
		sb.WriteString("\nCheck if another question would be redundant or unnecessary.")
	}

	sb.WriteString(priceSummary(candidates))
	sb.WriteString("\n\nReturn {\"question\": null} if no question needed (all same price, or question would be redundant), or {\"question\": \"needed\"} if a question is needed.")
	return sb.String()
}

func questionUserPrompt(candidates []extract.ProductRecord, asked []refine.Question, requestText string) string {
	var sb strings.Builder
	sb.WriteString("Analyze these product titles and ask questions for clarification if needed:\n\n")
	sb.WriteString(productsJSON(candidates))

	if len(asked) > 0 {
		sb.WriteString("\n\nPrevious questions asked:\n")
		for _, q := range asked {
			fmt.Fprintf(&sb, "- %s\n", q.Text)
		}
		sb.WriteString("\nDo not ask similar questions.")
	}

	if requestText != "" {
		fmt.Fprintf(&sb, "\n\nUser's original request: %q\nDo not ask about features already specified.", requestText)
	}

	sb.WriteString(priceSummary(candidates))
	sb.WriteString("\n\nReturn ONLY the JSON: {\"question\": {...}} OR {\"question\": null}")
	return sb.String()
}

// productsJSON renders candidates as the compact title/price listing the
// prompts reference. Full records waste tokens on fields the model should
// not base questions on.
func productsJSON(candidates []extract.ProductRecord) string {
	type entry struct {
		Title string `json:"title"`
		Price string `json:"price,omitempty"`
		Grade string `json:"grade,omitempty"`
	}
	entries := make([]entry, 0, len(candidates))
	for _, rec := range candidates {
		entries = append(entries, entry{Title: rec.Title, Price: rec.Price, Grade: rec.GradeTitle})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func priceSummary(candidates []extract.ProductRecord) string {
	seen := make(map[string]bool)
	var prices []string
	count := 0
	for _, rec := range candidates {
		if rec.Price == "" {
			continue
		}
		count++
		if !seen[rec.Price] {
			seen[rec.Price] = true
			prices = append(prices, rec.Price)
		}
	}
	sort.Strings(prices)

	if len(prices) == 1 {
		return fmt.Sprintf("\n\nAll %d products have the same price: %s. You likely don't need another question.", count, prices[0])
	}
	if len(prices) > 1 {
		return fmt.Sprintf("\n\nProducts have %d different prices: %s. A question may be needed to distinguish them.", len(prices), strings.Join(prices, ", "))
	}
	return ""
}
