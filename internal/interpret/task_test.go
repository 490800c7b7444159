package interpret

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionctl/missionctl/internal/agent"
)

// fakeInvoker replays a canned reply text and records the instruction it was
// handed.
type fakeInvoker struct {
	reply       string
	err         error
	instruction string
}

func (f *fakeInvoker) Invoke(_ context.Context, instruction string, _ agent.Options) (*agent.Envelope, error) {
	f.instruction = instruction
	if f.err != nil {
		return nil, f.err
	}
	return &agent.Envelope{
		RunID:  "test-run",
		Status: "ok",
		Result: agent.Result{Payloads: []agent.Payload{{Text: f.reply}}},
	}, nil
}

func TestTaskParser_Parse(t *testing.T) {
	inv := &fakeInvoker{reply: "```json\n" + `{
  "title": "Fix login bug",
  "description": "Users locked out after password reset",
  "priority": "high",
  "dueDate": "2026-09-02",
  "tags": ["bug", "auth"],
  "assignedTo": "agent"
}` + "\n```"}
	p := NewTaskParser(inv, logr.Discard())

	draft := p.Parse(context.Background(), "fix the login bug by tuesday, it's urgent-ish")

	assert.Equal(t, "Fix login bug", draft.Title)
	assert.Equal(t, PriorityHigh, draft.Priority)
	assert.Equal(t, "2026-09-02", draft.DueDate)
	assert.Equal(t, []string{"bug", "auth"}, draft.Tags)
	assert.Equal(t, "agent", draft.AssignedTo)
}

func TestTaskParser_InstructionCarriesPromptAndDate(t *testing.T) {
	inv := &fakeInvoker{reply: `{"title": "x"}`}
	p := NewTaskParser(inv, logr.Discard())

	p.Parse(context.Background(), "water the plants")

	assert.Contains(t, inv.instruction, `"water the plants"`)
	assert.Contains(t, inv.instruction, "Today is")
}

func TestTaskParser_InvalidPriorityDefaultsToMedium(t *testing.T) {
	inv := &fakeInvoker{reply: `{"title": "Deploy", "priority": "urgent!!"}`}
	p := NewTaskParser(inv, logr.Discard())

	draft := p.Parse(context.Background(), "deploy asap")

	assert.Equal(t, PriorityMedium, draft.Priority)
}

func TestTaskParser_FallbackOnAgentFailure(t *testing.T) {
	inv := &fakeInvoker{err: agent.NewError(agent.KindAgentUnavailable, "gateway down", nil)}
	p := NewTaskParser(inv, logr.Discard())

	draft := p.Parse(context.Background(), "buy milk")

	assert.Equal(t, "buy milk", draft.Title)
	assert.Equal(t, PriorityMedium, draft.Priority)
	assert.Equal(t, []string{}, draft.Tags)
	assert.Empty(t, draft.Description)
}

func TestTaskParser_FallbackOnMissingTitle(t *testing.T) {
	inv := &fakeInvoker{reply: `{"priority": "high", "tags": ["x"]}`}
	p := NewTaskParser(inv, logr.Discard())

	draft := p.Parse(context.Background(), "do the thing")

	assert.Equal(t, "do the thing", draft.Title)
	assert.Equal(t, PriorityMedium, draft.Priority)
}

func TestTaskParser_FallbackTruncatesTitle(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("connection refused")}
	p := NewTaskParser(inv, logr.Discard())

	long := strings.Repeat("x", 300)
	draft := p.Parse(context.Background(), long)

	assert.Len(t, draft.Title, maxFallbackTitle)
}

func TestTaskParser_NonStringTagsDropped(t *testing.T) {
	inv := &fakeInvoker{reply: `{"title": "t", "tags": ["ok", 7, null, "also"]}`}
	p := NewTaskParser(inv, logr.Discard())

	draft := p.Parse(context.Background(), "t")

	assert.Equal(t, []string{"ok", "also"}, draft.Tags)
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"low", PriorityLow},
		{"medium", PriorityMedium},
		{"high", PriorityHigh},
		{"urgent", PriorityUrgent},
		{"URGENT", PriorityMedium},
		{"critical", PriorityMedium},
		{"", PriorityMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePriority(tt.in), "input %q", tt.in)
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	s := strings.Repeat("ü", 120)
	got := truncate(s, maxFallbackTitle)
	require.Equal(t, maxFallbackTitle, len([]rune(got)))
	assert.True(t, strings.HasPrefix(s, got))
}
