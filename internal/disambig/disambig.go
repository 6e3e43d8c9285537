// Package disambig adapts an Eino chat model to the decision engine's
// disambiguator boundary. The model sees one ambiguous mention with its
// top scored candidates and answers with a selection or an explicit
// abstention; anything malformed is downgraded to "no selection" so a
// flaky model can never fail a linking session.
package disambig

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/josephgoksu/LinkWing/internal/linking"
	"github.com/josephgoksu/LinkWing/internal/llm"
)

const systemPrompt = `You are an entity disambiguation assistant. You are given a mention from a document and a numbered list of candidate entities from a knowledge base. Pick the candidate the mention most plausibly refers to, or abstain when none fits.

Respond with JSON only, no markdown, in this shape:
{"selection": <candidate number, or 0 to abstain>, "confidence": "high|medium|low", "reasoning": "<one sentence>"}`

// Adapter implements linking.Disambiguator on top of an Eino chat model.
type Adapter struct {
	chatModel model.BaseChatModel
	modelName string
}

// New builds an adapter from LLM configuration.
func New(ctx context.Context, cfg llm.Config) (*Adapter, error) {
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModelForProvider(string(cfg.Provider))
	}
	chatModel, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return &Adapter{chatModel: chatModel, modelName: cfg.Model}, nil
}

// NewWithModel wraps an existing chat model. Used by tests and callers
// that manage model construction themselves.
func NewWithModel(chatModel model.BaseChatModel) *Adapter {
	return &Adapter{chatModel: chatModel}
}

// modelReply is the JSON shape the model is instructed to produce.
// Selection is 1-based; 0 means abstain.
type modelReply struct {
	Selection  int    `json:"selection"`
	Confidence string `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// Disambiguate sends the mention and candidates to the model and maps
// its answer back onto the candidate list.
func (a *Adapter) Disambiguate(ctx context.Context, req linking.DisambiguationRequest) (linking.DisambiguationResult, error) {
	none := linking.DisambiguationResult{SelectedIndex: -1}
	if len(req.Candidates) == 0 {
		return none, nil
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildPrompt(req)),
	}

	msg, err := a.chatModel.Generate(ctx, messages)
	if err != nil {
		return none, fmt.Errorf("disambiguation call: %w", err)
	}

	reply, ok := parseReply(msg.Content)
	if !ok {
		slog.Warn("disambiguator returned unparseable content, treating as abstention",
			"model", a.modelName, "mention", req.Mention.Value)
		return none, nil
	}
	if reply.Selection <= 0 || reply.Selection > len(req.Candidates) {
		return linking.DisambiguationResult{
			SelectedIndex:  -1,
			ConfidenceBand: reply.Confidence,
			Reasoning:      reply.Reasoning,
		}, nil
	}

	return linking.DisambiguationResult{
		SelectedIndex:  reply.Selection - 1,
		ConfidenceBand: reply.Confidence,
		Reasoning:      reply.Reasoning,
	}, nil
}

// buildPrompt renders the mention and its candidates as a numbered list.
func buildPrompt(req linking.DisambiguationRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Mention: %q", req.Mention.Value)
	if req.Mention.EntityType != "" {
		fmt.Fprintf(&sb, " (type hint: %s)", req.Mention.EntityType)
	}
	sb.WriteString("\n")
	if req.ContextWindow != "" {
		fmt.Fprintf(&sb, "Surrounding text: %s\n", req.ContextWindow)
	}

	sb.WriteString("\nCandidates:\n")
	for i, sc := range req.Candidates {
		c := sc.Candidate
		fmt.Fprintf(&sb, "%d. %s (type: %s, score: %.2f", i+1, c.Name, c.Type, sc.Scores.Combined)
		if desc := propertyHint(c.Properties); desc != "" {
			fmt.Fprintf(&sb, ", %s", desc)
		}
		sb.WriteString(")\n")
	}

	sb.WriteString("\nWhich candidate does the mention refer to? JSON only:")
	return sb.String()
}

// propertyHint surfaces a short description from candidate properties.
func propertyHint(props map[string]any) string {
	for _, key := range []string{"description", "summary", "definition"} {
		if v, ok := props[key]; ok {
			s := fmt.Sprintf("%v", v)
			if len(s) > 120 {
				s = s[:120] + "..."
			}
			return s
		}
	}
	return ""
}

// parseReply extracts the JSON reply, tolerating markdown code fences.
func parseReply(content string) (modelReply, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some models wrap JSON in prose; take the outermost object.
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return modelReply{}, false
	}
	return reply, true
}
