// Package ai provides the LLM clients used to translate story batches.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shiftnews/shift/internal/config"
	"github.com/shiftnews/shift/internal/story"
)

// Generator is a single system+user prompt completion. Every backend
// implements it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// System prompts per target language. The output contract is appended by
// systemPrompt.
const (
	arabicBrief  = "ترجم النص التالي إلى العربية الفصحى المبسطة للموجز الإخباري. لا تضف آراء. أعد الصياغة بإيجاز واضح."
	englishBrief = "Translate the following into clear, concise English for a news brief. No opinions. Keep it crisp."

	batchContract = `You receive a JSON object {"items":[{"title":"...","summary":"..."}]}.
Translate every item and answer with ONLY a JSON object of the same shape:
{"items":[{"title":"...","summary":"..."}]}
RULES:
- Keep the items in the same order and return exactly one entry per input item
- If an item cannot be translated, return {} for it
- Do NOT add commentary, markdown or code fences`
)

func systemPrompt(target story.Lang) string {
	brief := englishBrief
	if target == story.AR {
		brief = arabicBrief
	}
	return brief + "\n\n" + batchContract
}

type batchEnvelope struct {
	Items []story.Translation `json:"items"`
}

type requestEnvelope struct {
	Items []story.Pair `json:"items"`
}

// BatchTranslator sends one combined request per batch through a Generator.
type BatchTranslator struct {
	gen     Generator
	backend string
}

// NewBatchTranslator wraps gen. backend names it in logs and diagnostics.
func NewBatchTranslator(gen Generator, backend string) *BatchTranslator {
	return &BatchTranslator{gen: gen, backend: backend}
}

// Backend returns the backend name.
func (t *BatchTranslator) Backend() string {
	return t.backend
}

// Translate implements story.Translator.
func (t *BatchTranslator) Translate(ctx context.Context, target story.Lang, pairs []story.Pair) ([]story.Translation, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(requestEnvelope{Items: pairs})
	if err != nil {
		return nil, fmt.Errorf("ai translate: marshal batch: %w", err)
	}

	resp, err := t.gen.Generate(ctx, systemPrompt(target), string(body))
	if err != nil {
		return nil, fmt.Errorf("ai translate %s: %w", t.backend, err)
	}

	out, err := ParseTranslations(resp, len(pairs))
	if err != nil {
		return nil, fmt.Errorf("ai translate %s: %w", t.backend, err)
	}
	return out, nil
}

// ParseTranslations decodes a model reply into at most n translations. The
// reply may be a bare JSON array or an object with an "items" array, and may
// be wrapped in a markdown code fence.
func ParseTranslations(resp string, n int) ([]story.Translation, error) {
	resp = stripCodeFence(resp)
	if resp == "" {
		return nil, fmt.Errorf("parse translations: empty response")
	}

	var items []story.Translation
	switch resp[0] {
	case '[':
		if err := json.Unmarshal([]byte(resp), &items); err != nil {
			return nil, fmt.Errorf("parse translations: %w", err)
		}
	case '{':
		var env batchEnvelope
		if err := json.Unmarshal([]byte(resp), &env); err != nil {
			return nil, fmt.Errorf("parse translations: %w", err)
		}
		items = env.Items
	default:
		if isRefusal(resp) {
			return nil, fmt.Errorf("parse translations: model declined: %.40q", resp)
		}
		return nil, fmt.Errorf("parse translations: not JSON: %.40q", resp)
	}

	if len(items) > n {
		items = items[:n]
	}
	for i := range items {
		items[i].Title = strings.TrimSpace(items[i].Title)
		items[i].Summary = strings.TrimSpace(items[i].Summary)
	}
	return items, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// refusalPatterns mark a prose reply where the model answered with
// commentary instead of the JSON batch. Only the raw reply is checked; JSON
// fields are applied as returned.
var refusalPatterns = []string{
	"i cannot",
	"i can't",
	"i don't have",
	"as an ai",
	"please provide",
	"لا أستطيع",
	"لا يمكنني",
}

func isRefusal(reply string) bool {
	lower := strings.ToLower(reply)
	for _, pattern := range refusalPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// NewTranslator builds the translator selected by cfg.Translate.Backend. It
// returns nil when the backend has no credentials, which disables filling.
func NewTranslator(ctx context.Context, cfg config.Config) (*BatchTranslator, func(), error) {
	noop := func() {}
	switch cfg.Translate.Backend {
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, noop, nil
		}
		g, err := NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, noop, err
		}
		return NewBatchTranslator(g, "gemini"), g.Close, nil
	case "ollama":
		if cfg.Ollama.Host == "" {
			return nil, noop, nil
		}
		return NewBatchTranslator(NewClient(cfg.Ollama.Host, cfg.Ollama.Model), "ollama"), noop, nil
	case "openai", "":
		if cfg.OpenAI.APIKey == "" {
			return nil, noop, nil
		}
		return NewBatchTranslator(NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model), "openai"), noop, nil
	}
	return nil, noop, fmt.Errorf("ai: unknown translate backend %q", cfg.Translate.Backend)
}
