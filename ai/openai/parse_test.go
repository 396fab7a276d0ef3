package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestDecodeStrict(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    []string
		wantErr bool
	}{
		{"plain json", `["a","b"]`, []string{"a", "b"}, false},
		{"surrounding whitespace", "\n  [\"a\"]  \n", []string{"a"}, false},
		{"json fence", "```json\n[\"a\"]\n```", []string{"a"}, false},
		{"bare fence", "```\n[\"a\"]\n```", []string{"a"}, false},
		{"prose around json is not repaired", `Here you go: ["a"]`, nil, true},
		{"broken json inside fence", "```json\n[\"a\",\n```", nil, true},
		{"empty", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			err := decodeStrict(tt.reply, &got)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanTriples(t *testing.T) {
	reply := `[
		{"subject": "Employees", "predicate": "accrue", "object": "20 days of leave"},
		{"subject": "Managers", "predicate": "approve"},
		"not an object",
		{"subject": 4, "predicate": "is", "object": "number"},
		{"subject": " Finance ", "predicate": "pays", "object": " claims "}
	]`
	var items []json.RawMessage
	require.NoError(t, decodeStrict(reply, &items))

	triples := cleanTriples(items)

	require.Len(t, triples, 2)
	assert.Equal(t, "Employees", triples[0].Subject)
	assert.Equal(t, "Finance", triples[1].Subject)
	assert.Equal(t, "claims", triples[1].Object)
}

type scriptedModel struct {
	replies []string
	err     error
	calls   int
}

func (m *scriptedModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	reply := m.replies[min(m.calls-1, len(m.replies)-1)]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestTripleExtractor_ExtractTriples(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	t.Run("regenerates malformed replies", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"nope", `[{"subject":"a","predicate":"b","object":"c"}]`}}
		e := &TripleExtractor{client: model, logger: logger}

		triples, err := e.ExtractTriples(ctx, "a b c")
		require.NoError(t, err)
		assert.Len(t, triples, 1)
		assert.Equal(t, 2, model.calls)
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"nope"}}
		e := &TripleExtractor{client: model, logger: logger}

		_, err := e.ExtractTriples(ctx, "a b c")
		assert.ErrorIs(t, err, ErrMalformedResponse)
		assert.Equal(t, parseAttempts, model.calls)
	})

	t.Run("transport errors are returned immediately", func(t *testing.T) {
		model := &scriptedModel{err: errors.New("connection refused")}
		e := &TripleExtractor{client: model, logger: logger}

		_, err := e.ExtractTriples(ctx, "a b c")
		assert.Error(t, err)
		assert.Equal(t, 1, model.calls)
	})

	t.Run("blank text skips the model", func(t *testing.T) {
		model := &scriptedModel{}
		e := &TripleExtractor{client: model, logger: logger}

		triples, err := e.ExtractTriples(ctx, "  ")
		require.NoError(t, err)
		assert.Empty(t, triples)
		assert.Zero(t, model.calls)
	})
}

func TestSummarizer_Summarize(t *testing.T) {
	model := &scriptedModel{replies: []string{"```json\n{\"summary\": \"Travel receipts\\n are due in 30 days.\"}\n```"}}
	s := &Summarizer{client: model, logger: slog.New(slog.DiscardHandler)}

	summary, err := s.Summarize(context.Background(), "Employees must submit receipts within 30 days.")
	require.NoError(t, err)
	assert.Equal(t, "Travel receipts are due in 30 days.", summary)
}
