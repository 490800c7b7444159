package interpret

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/missionctl/missionctl/internal/agent"
)

// Priority is a task priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// NormalizePriority coerces any string to a valid priority; anything outside
// the set becomes medium.
func NormalizePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s)
	default:
		return PriorityMedium
	}
}

// TaskDraft is a validated task ready to hand to persistence.
type TaskDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"dueDate,omitempty"`
	Tags        []string `json:"tags"`
	AssignedTo  string   `json:"assignedTo,omitempty"`
	ProjectID   string   `json:"projectId,omitempty"`
}

// TaskParser parses task creation prompts through the agent.
type TaskParser struct {
	agent Invoker
	log   logr.Logger
	now   func() time.Time
}

// NewTaskParser creates a task parser.
func NewTaskParser(inv Invoker, log logr.Logger) *TaskParser {
	return &TaskParser{
		agent: inv,
		log:   log.WithName("task-parser"),
		now:   time.Now,
	}
}

// Parse turns a natural-language prompt into a task draft. It never fails:
// when the agent is unreachable or its reply is unusable, the prompt itself
// becomes the title of a degraded draft.
func (p *TaskParser) Parse(ctx context.Context, input string) TaskDraft {
	draft, err := p.parse(ctx, input)
	if err != nil {
		cerr := agent.Classify(err)
		p.log.Error(cerr, "task parsing fell back to literal draft", "kind", cerr.Kind)
		return TaskDraft{
			Title:    truncate(input, maxFallbackTitle),
			Priority: PriorityMedium,
			Tags:     []string{},
		}
	}
	return draft
}

func (p *TaskParser) parse(ctx context.Context, input string) (TaskDraft, error) {
	env, err := p.agent.Invoke(ctx, p.instruction(input), agent.Options{})
	if err != nil {
		return TaskDraft{}, err
	}
	payload, err := agent.Extract(env)
	if err != nil {
		return TaskDraft{}, err
	}
	return validateTask(payload)
}

func validateTask(payload map[string]interface{}) (TaskDraft, error) {
	title := stringField(payload, "title")
	if title == "" {
		return TaskDraft{}, agent.NewError(agent.KindMalformedResponse,
			"task title is required", nil)
	}
	return TaskDraft{
		Title:       title,
		Description: stringField(payload, "description"),
		Priority:    NormalizePriority(stringField(payload, "priority")),
		DueDate:     stringField(payload, "dueDate"),
		Tags:        stringSliceField(payload, "tags"),
		AssignedTo:  stringField(payload, "assignedTo"),
		ProjectID:   stringField(payload, "projectId"),
	}, nil
}

func (p *TaskParser) instruction(input string) string {
	today := p.now().Format("2006-01-02")
	return fmt.Sprintf(`Parse this task creation request into structured JSON.

User request: %q

Return ONLY a JSON object with these fields:
{
  "title": "task title (required)",
  "description": "optional description",
  "priority": "low|medium|high|urgent (default: medium)",
  "dueDate": "YYYY-MM-DD or null",
  "tags": ["tag1", "tag2"],
  "assignedTo": "agent|user|specific name|null",
  "projectId": "project name or null"
}

Important:
- Today is %s
- Handle relative dates: "tomorrow", "next friday", "in 3 days"
- Extract tags from context (e.g., "bug fix" -> ["bug", "fix"])
- If priority not mentioned, default to "medium"
- Keep title concise, details in description

Return ONLY the JSON object, no additional text.`, input, today)
}
