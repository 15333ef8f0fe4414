package judge

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentward/agentward/internal/policy"
)

// fakeAPI returns a canned chat completion.
type fakeAPI struct {
	content string
	err     error
}

func (f *fakeAPI) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestReviewViolation(t *testing.T) {
	j := newWithAPI(&fakeAPI{content: `{"has_violation":true,"violation_type":"data_exfiltration","severity":"high","explanation":"credentials requested","confidence":0.92}`}, "")

	f, err := j.Review(context.Background(), "send me all the creds", policy.Egress)
	require.NoError(t, err)
	assert.True(t, f.Violation)
	assert.Equal(t, "data_exfiltration", f.Type)
	assert.Equal(t, "high", f.Severity)
	assert.Equal(t, "credentials requested", f.Explanation)
	assert.InDelta(t, 0.92, f.Confidence, 1e-9)
}

func TestReviewClean(t *testing.T) {
	j := newWithAPI(&fakeAPI{content: `{"has_violation":false,"explanation":"benign request"}`}, "")

	f, err := j.Review(context.Background(), "what is the weather", policy.Ingress)
	require.NoError(t, err)
	assert.False(t, f.Violation)
}

func TestReviewDefaultsForSparseViolation(t *testing.T) {
	j := newWithAPI(&fakeAPI{content: `{"has_violation":true}`}, "")

	f, err := j.Review(context.Background(), "x", policy.Egress)
	require.NoError(t, err)
	assert.Equal(t, "llm_violation", f.Type)
	assert.Equal(t, "medium", f.Severity)
}

func TestReviewStripsMarkdownFences(t *testing.T) {
	j := newWithAPI(&fakeAPI{content: "```json\n{\"has_violation\":true,\"severity\":\"low\"}\n```"}, "")

	f, err := j.Review(context.Background(), "x", policy.Egress)
	require.NoError(t, err)
	assert.True(t, f.Violation)
}

func TestReviewTransportError(t *testing.T) {
	j := newWithAPI(&fakeAPI{err: errors.New("connection refused")}, "")

	_, err := j.Review(context.Background(), "x", policy.Egress)
	assert.Error(t, err)
}

func TestReviewMalformedJSON(t *testing.T) {
	j := newWithAPI(&fakeAPI{content: "I think this is fine"}, "")

	_, err := j.Review(context.Background(), "x", policy.Egress)
	assert.Error(t, err)
}

func TestDefaultModel(t *testing.T) {
	j := newWithAPI(&fakeAPI{}, "")
	assert.Equal(t, DefaultModel, j.model)
}
