package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
)

func TestEmergencyClassify(t *testing.T) {
	e := NewEmergency()
	ctx := context.Background()

	tests := []struct {
		name       string
		input      string
		emergency  bool
		severity   domain.Severity
		categories []string
	}{
		{
			name:       "cardiac",
			input:      "I have chest pain radiating to my left arm",
			emergency:  true,
			severity:   domain.SeverityHigh,
			categories: []string{CategoryCardiac},
		},
		{
			name:       "cardiac plus respiratory is critical",
			input:      "crushing chest pain and I can't breathe",
			emergency:  true,
			severity:   domain.SeverityCritical,
			categories: []string{CategoryCardiac, CategoryRespiratory},
		},
		{
			name:       "stroke pattern",
			input:      "I think I'm having a stroke - face drooping",
			emergency:  true,
			severity:   domain.SeverityHigh,
			categories: []string{CategoryNeurological},
		},
		{
			name:      "mild headache is not an emergency",
			input:     "I have a mild headache for 2 days",
			emergency: false,
			severity:  domain.SeverityNone,
		},
		{
			name:      "fever is not an emergency",
			input:     "I have a fever of 100F",
			emergency: false,
			severity:  domain.SeverityNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := e.Classify(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.emergency, c.Matched)
			assert.Equal(t, tt.severity, c.Severity)
			assert.Equal(t, tt.categories, c.Categories)
		})
	}
}

func TestEmergencyMessageNamesCategories(t *testing.T) {
	e := NewEmergency()
	c, err := e.Classify(context.Background(), "severe bleeding that won't stop")
	require.NoError(t, err)
	require.True(t, c.Matched)

	msg := EmergencyMessage(c)
	assert.Contains(t, msg, "EMERGENCY DETECTED")
	assert.Contains(t, msg, "SEVERE BLEEDING")
	assert.Contains(t, msg, "emergency room")
}

func TestPatternScope(t *testing.T) {
	s := NewPatternScope()
	ctx := context.Background()

	in, err := s.Classify(ctx, "my stomach hurts after eating")
	require.NoError(t, err)
	assert.True(t, in.Matched)

	out, err := s.Classify(ctx, "what's the weather in Paris")
	require.NoError(t, err)
	assert.False(t, out.Matched)
}

// stubLLM returns canned completions for classifier tests.
type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Generate(_ context.Context, _, _ string, _ driven.GenerateOptions) (string, error) {
	return s.reply, s.err
}

func (s *stubLLM) Chat(_ context.Context, _ []driven.ChatMessage, _ driven.GenerateOptions) (string, error) {
	return s.reply, s.err
}

func (s *stubLLM) ModelName() string { return "stub" }
func (s *stubLLM) Close() error      { return nil }

type stubPrompts struct{}

func (stubPrompts) Load(string) (string, error) { return "Is this medical? %s", nil }
func (stubPrompts) Reload()                     {}

func TestModelScopeVerdicts(t *testing.T) {
	ctx := context.Background()

	yes := NewModelScope(&stubLLM{reply: "YES"}, stubPrompts{})
	c, err := yes.Classify(ctx, "I have a headache")
	require.NoError(t, err)
	assert.True(t, c.Matched)

	no := NewModelScope(&stubLLM{reply: "no"}, stubPrompts{})
	c, err = no.Classify(ctx, "tell me a joke")
	require.NoError(t, err)
	assert.False(t, c.Matched)

	// Unparseable verdicts default to in-scope.
	odd := NewModelScope(&stubLLM{reply: "maybe?"}, stubPrompts{})
	c, err = odd.Classify(ctx, "I feel off")
	require.NoError(t, err)
	assert.True(t, c.Matched)
}

func TestModelScopeFallsBackOnError(t *testing.T) {
	m := NewModelScope(&stubLLM{err: errors.New("boom")}, stubPrompts{})

	c, err := m.Classify(context.Background(), "sharp pain in my knee")
	require.NoError(t, err)
	assert.True(t, c.Matched, "pattern fallback should classify medical text in-scope")

	c, err = m.Classify(context.Background(), "recommend a laptop")
	require.NoError(t, err)
	assert.False(t, c.Matched)
}
