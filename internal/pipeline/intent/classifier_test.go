package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/llm"
)

type stubClient struct {
	reply string
	err   error
	last  llm.Request
}

func (s *stubClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.last = req
	return s.reply, s.err
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		err           error
		wantDefaulted bool
		wantReason    error
		validate      func(t *testing.T, got models.Intent)
	}{
		{
			name:  "plain json",
			reply: `{"intent":"crisis_response","entities":["AVAYA"],"data_needed":["matrix"],"urgency":"critical","response_type":"table"}`,
			validate: func(t *testing.T, got models.Intent) {
				assert.Equal(t, models.IntentCrisisResponse, got.Category)
				assert.Equal(t, []string{"AVAYA"}, got.Entities)
				assert.Equal(t, "critical", got.Urgency)
				assert.Equal(t, "table", got.ResponseType)
			},
		},
		{
			name:  "fenced json with missing optionals",
			reply: "```json\n{\"intent\":\"data_query\"}\n```",
			validate: func(t *testing.T, got models.Intent) {
				assert.Equal(t, models.IntentDataQuery, got.Category)
				assert.Equal(t, []string{}, got.Entities)
				assert.Equal(t, []string{"strategic_action_priority_matrix"}, got.DataNeeded)
				assert.Equal(t, "medium", got.Urgency)
				assert.Equal(t, "text", got.ResponseType)
			},
		},
		{
			name:  "prose around object",
			reply: `Here you go: {"intent":"project_plan","urgency":"high"} hope it helps`,
			validate: func(t *testing.T, got models.Intent) {
				assert.Equal(t, models.IntentProjectPlan, got.Category)
				assert.Equal(t, "high", got.Urgency)
			},
		},
		{
			name:          "not json",
			reply:         "I think this is about savings.",
			wantDefaulted: true,
			wantReason:    ErrIntentParsingFailed,
		},
		{
			name:          "unknown intent rejected by schema",
			reply:         `{"intent":"gossip"}`,
			wantDefaulted: true,
			wantReason:    ErrIntentParsingFailed,
		},
		{
			name:          "wrong field type rejected by schema",
			reply:         `{"intent":"analysis","entities":"AVAYA"}`,
			wantDefaulted: true,
			wantReason:    ErrIntentParsingFailed,
		},
		{
			name:          "remote failure",
			err:           llm.ErrUpstreamStatus,
			wantDefaulted: true,
			wantReason:    ErrClassificationUnavailable,
		},
		{
			name:          "missing credential",
			err:           llm.ErrMissingCredential,
			wantDefaulted: true,
			wantReason:    ErrClassificationUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{reply: tt.reply, err: tt.err}
			c := New(client, Options{Temperature: 0.2}, logger.NewTestLogger(t))

			got := c.Classify(context.Background(), "Show me critical cases")

			assert.Equal(t, tt.wantDefaulted, got.Defaulted)
			if tt.wantDefaulted {
				assert.Equal(t, models.DefaultIntent(), got.Intent)
				require.Error(t, got.Reason)
				assert.True(t, errors.Is(got.Reason, tt.wantReason), got.Reason.Error())
				return
			}
			assert.NoError(t, got.Reason)
			tt.validate(t, got.Intent)
			assert.Contains(t, client.last.User, `Query: "Show me critical cases"`)
			assert.Equal(t, 300, client.last.MaxTokens)
		})
	}
}

func TestClassify_NilClient(t *testing.T) {
	got := New(nil, Options{}, logger.NewNoOpLogger()).Classify(context.Background(), "q")
	assert.True(t, got.Defaulted)
	assert.ErrorIs(t, got.Reason, ErrClassificationUnavailable)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```json{\"a\":1}```  ", `{"a":1}`},
		{`sure: {"a":{"b":2}} done`, `{"a":{"b":2}}`},
		{"no object", "no object"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFence(tt.in), tt.in)
	}
}
