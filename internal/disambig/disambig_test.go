package disambig

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/LinkWing/internal/linking"
)

type mockChatModel struct {
	content  string
	err      error
	messages []*schema.Message
}

func (m *mockChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.messages = in
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *mockChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func sampleRequest() linking.DisambiguationRequest {
	return linking.DisambiguationRequest{
		Mention: linking.EntityMention{Value: "limit", EntityType: "Parameter"},
		Candidates: []linking.ScoredCandidate{
			{
				Candidate: linking.LinkCandidate{
					EntityID:   "ent-limit",
					Name:       "limit",
					Type:       "Parameter",
					Properties: map[string]any{"description": "Maximum number of users per page"},
				},
				Scores: linking.LinkingScores{Combined: 0.62},
				Rank:   1,
			},
			{
				Candidate: linking.LinkCandidate{EntityID: "ent-rate-limit", Name: "rate limit", Type: "Parameter"},
				Scores:    linking.LinkingScores{Combined: 0.58},
				Rank:      2,
			},
		},
		ContextWindow: "clients may pass limit to page through results",
	}
}

func TestAdapter_SelectsCandidate(t *testing.T) {
	mock := &mockChatModel{content: `{"selection": 2, "confidence": "high", "reasoning": "rate limiting context"}`}
	a := NewWithModel(mock)

	res, err := a.Disambiguate(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, res.SelectedIndex)
	assert.Equal(t, "high", res.ConfidenceBand)
	assert.False(t, res.NoSelection())

	// Both candidates must have been presented
	require.Len(t, mock.messages, 2)
	assert.Contains(t, mock.messages[1].Content, "1. limit")
	assert.Contains(t, mock.messages[1].Content, "2. rate limit")
	assert.Contains(t, mock.messages[1].Content, "Maximum number of users per page")
}

func TestAdapter_Abstention(t *testing.T) {
	mock := &mockChatModel{content: `{"selection": 0, "confidence": "low", "reasoning": "neither fits"}`}
	a := NewWithModel(mock)

	res, err := a.Disambiguate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, res.NoSelection())
	assert.Equal(t, "neither fits", res.Reasoning)
}

func TestAdapter_MarkdownFencedJSON(t *testing.T) {
	mock := &mockChatModel{content: "```json\n{\"selection\": 1, \"confidence\": \"medium\", \"reasoning\": \"ok\"}\n```"}
	a := NewWithModel(mock)

	res, err := a.Disambiguate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, res.SelectedIndex)
	assert.Equal(t, "medium", res.ConfidenceBand)
}

func TestAdapter_MalformedContentIsAbstention(t *testing.T) {
	mock := &mockChatModel{content: "I think the answer is probably the first one."}
	a := NewWithModel(mock)

	res, err := a.Disambiguate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, res.NoSelection())
}

func TestAdapter_OutOfRangeSelectionIsAbstention(t *testing.T) {
	mock := &mockChatModel{content: `{"selection": 9, "confidence": "high", "reasoning": "?"}`}
	a := NewWithModel(mock)

	res, err := a.Disambiguate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, res.NoSelection())
}

func TestAdapter_ModelErrorPropagates(t *testing.T) {
	mock := &mockChatModel{err: errors.New("connection refused")}
	a := NewWithModel(mock)

	_, err := a.Disambiguate(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disambiguation call")
}

func TestAdapter_EmptyCandidates(t *testing.T) {
	a := NewWithModel(&mockChatModel{content: `{"selection": 1}`})

	res, err := a.Disambiguate(context.Background(), linking.DisambiguationRequest{
		Mention: linking.EntityMention{Value: "limit"},
	})
	require.NoError(t, err)
	assert.True(t, res.NoSelection())
}
