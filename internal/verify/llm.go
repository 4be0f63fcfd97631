package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/civicdata/corroborate/internal/model"
)

// LLMScorer scores records through an openai-compatible chat API.
// The DeepSeek endpoint the dataset was originally verified with speaks
// this protocol; any compatible BaseURL works. Verdicts remain heuristic
// confidence signals requiring human review.
type LLMScorer struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewLLMScorer creates a scorer from the LLM configuration
func NewLLMScorer(cfg model.LLMConfig) (*LLMScorer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	return &LLMScorer{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}, nil
}

func (s *LLMScorer) Name() string { return "llm" }

// llmResponse is the strict JSON contract the prompt demands
type llmResponse struct {
	SourceEvaluations []struct {
		SourceName string `json:"source_name"`
		Relevant   bool   `json:"relevant"`
		Quality    string `json:"quality"`
		Reason     string `json:"reason"`
	} `json:"source_evaluations"`
	Score       int    `json:"score"`
	Reasoning   string `json:"reasoning"`
	Corrections []struct {
		Field    string `json:"field"`
		Current  string `json:"current"`
		ShouldBe string `json:"should_be"`
		Reason   string `json:"reason"`
	} `json:"corrections"`
}

// Score sends the record and its source texts to the model and parses the
// JSON judgment. A malformed response is an error; the runner retries and
// eventually marks the record for re-verification.
func (s *LLMScorer) Score(ctx context.Context, rec *model.Record, sources []model.SourceText) (*model.Judgment, error) {
	if len(sources) == 0 {
		return &model.Judgment{Reasoning: "no source texts available"}, nil
	}

	prompt, err := buildPrompt(rec, sources)
	if err != nil {
		return nil, err
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a careful fact-checker. Respond with valid JSON only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   s.maxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM")
	}

	return parseLLMJudgment(resp.Choices[0].Message.Content, sources)
}

// parseLLMJudgment extracts the JSON object from the model's reply and
// maps it onto a Judgment. Markdown code fences around the JSON are
// tolerated since models add them despite instructions.
func parseLLMJudgment(content string, sources []model.SourceText) (*model.Judgment, error) {
	raw := extractJSONObject(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in LLM response")
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w", err)
	}
	if parsed.Score < 0 || parsed.Score > 100 {
		return nil, fmt.Errorf("LLM score out of range: %d", parsed.Score)
	}

	judgment := &model.Judgment{
		Score:     parsed.Score,
		Reasoning: parsed.Reasoning,
	}

	for i, eval := range parsed.SourceEvaluations {
		if i >= len(sources) {
			break
		}
		judgment.Sources = append(judgment.Sources, model.SourceJudgment{
			SourceIdx: sources[i].Index,
			URL:       sources[i].Source.URL,
			Relevant:  eval.Relevant,
			Score:     parsed.Score,
			Quality:   eval.Quality,
			Reason:    eval.Reason,
		})
	}

	for _, c := range parsed.Corrections {
		judgment.Corrections = append(judgment.Corrections, model.Correction{
			Field:    c.Field,
			Current:  c.Current,
			ShouldBe: c.ShouldBe,
			Reason:   c.Reason,
		})
	}
	return judgment, nil
}

// extractJSONObject returns the outermost {...} span in the content
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// sourceTextLimit keeps each article inside the prompt budget
const sourceTextLimit = 6000

func buildPrompt(rec *model.Record, sources []model.SourceText) (string, error) {
	recordJSON, err := json.MarshalIndent(promptRecord(rec), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	var sb strings.Builder
	for i, st := range sources {
		text := st.Text
		if len(text) > sourceTextLimit {
			text = text[:sourceTextLimit] + " [truncated]"
		}
		fmt.Fprintf(&sb, "### Source %d (%s, tier %d)\n%s\n\n", i, st.Source.Name, st.Source.Tier, text)
	}

	return fmt.Sprintf(`You are verifying that news articles support a database entry about an immigration-enforcement incident.

## Database Entry:
%s

## Source Article(s):
%s## Task:
1. Evaluate EACH source individually: is it about the SAME incident?
2. Using ONLY the relevant sources, verify the entry's date, location, named individuals, and narrative.

## Response format (JSON only, no other text):
{
  "source_evaluations": [
    {"source_name": "Source 0", "relevant": true, "quality": "excellent|good|partial|unrelated", "reason": "one sentence"}
  ],
  "score": 0,
  "corrections": [
    {"field": "field_name", "current": "value in entry", "should_be": "value per article", "reason": "why"}
  ],
  "reasoning": "2-3 sentence summary"
}

Scoring guide:
- 90-100: near-perfect match from at least one relevant source
- 70-89: solid match with minor discrepancies
- 50-69: partial match, some concerns
- 35-49: weak match, significant issues
- 0-34: no relevant sources, or sources contradict the entry

If ALL sources are unrelated, score 0 and mark every source relevant:false.
Minor date differences (a few days) are acceptable when it is clearly the same event.
The source_evaluations array MUST have one item per source provided.`, recordJSON, sb.String()), nil
}

// promptRecord trims the record to the fields the model should verify
func promptRecord(rec *model.Record) map[string]any {
	out := map[string]any{
		"id":            rec.ID,
		"date":          rec.Date,
		"state":         rec.State,
		"incident_type": rec.IncidentType,
	}
	if rec.City != "" {
		out["city"] = rec.City
	}
	if rec.VictimName != "" {
		out["victim_name"] = rec.VictimName
	}
	if rec.VictimAge > 0 {
		out["victim_age"] = rec.VictimAge
	}
	if rec.Agency != "" {
		out["agency"] = rec.Agency
	}
	if rec.Outcome != "" {
		out["outcome"] = rec.Outcome
	}
	if rec.Notes != "" {
		out["notes"] = rec.Notes
	}
	return out
}
