package interpret

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/missionctl/missionctl/internal/agent"
)

// EventDraft is a validated calendar event ready to hand to persistence.
type EventDraft struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Location    string    `json:"location,omitempty"`
	Attendees   []string  `json:"attendees"`
}

// eventTimeLayouts are the timestamp shapes the agent is allowed to reply
// with. Anything else is a fatal parse failure for the draft.
var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// EventParser parses calendar event prompts through the agent.
type EventParser struct {
	agent Invoker
	log   logr.Logger
	now   func() time.Time
}

// NewEventParser creates an event parser.
func NewEventParser(inv Invoker, log logr.Logger) *EventParser {
	return &EventParser{
		agent: inv,
		log:   log.WithName("event-parser"),
		now:   time.Now,
	}
}

// Parse turns a natural-language prompt into an event draft. Like task
// parsing it never fails outward, but the bar for a usable draft is higher:
// an event without both times is discarded in favor of the fallback, since a
// half-formed event is not useful even as a display item.
func (p *EventParser) Parse(ctx context.Context, input string) EventDraft {
	draft, err := p.parse(ctx, input)
	if err != nil {
		cerr := agent.Classify(err)
		p.log.Error(cerr, "event parsing fell back to literal draft", "kind", cerr.Kind)
		now := p.now()
		return EventDraft{
			Title:     truncate(input, maxFallbackTitle),
			StartTime: now,
			EndTime:   now.Add(time.Hour),
			Attendees: []string{},
		}
	}
	return draft
}

func (p *EventParser) parse(ctx context.Context, input string) (EventDraft, error) {
	env, err := p.agent.Invoke(ctx, p.instruction(input), agent.Options{})
	if err != nil {
		return EventDraft{}, err
	}
	payload, err := agent.Extract(env)
	if err != nil {
		return EventDraft{}, err
	}
	return validateEvent(payload)
}

func validateEvent(payload map[string]interface{}) (EventDraft, error) {
	title := stringField(payload, "title")
	if title == "" {
		return EventDraft{}, agent.NewError(agent.KindMalformedResponse,
			"event title is required", nil)
	}
	start, err := parseEventTime(stringField(payload, "startTime"))
	if err != nil {
		return EventDraft{}, agent.NewError(agent.KindMalformedResponse,
			"event start time is required", err)
	}
	end, err := parseEventTime(stringField(payload, "endTime"))
	if err != nil {
		return EventDraft{}, agent.NewError(agent.KindMalformedResponse,
			"event end time is required", err)
	}
	return EventDraft{
		Title:       title,
		Description: stringField(payload, "description"),
		StartTime:   start,
		EndTime:     end,
		Location:    stringField(payload, "location"),
		Attendees:   stringSliceField(payload, "attendees"),
	}, nil
}

func parseEventTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (p *EventParser) instruction(input string) string {
	now := p.now().Format(time.RFC3339)
	return fmt.Sprintf(`Parse this calendar event request into structured JSON.

User request: %q

Return ONLY a JSON object with these fields:
{
  "title": "event title (required)",
  "description": "optional description",
  "startTime": "YYYY-MM-DDTHH:MM:SS (required)",
  "endTime": "YYYY-MM-DDTHH:MM:SS (required)",
  "location": "optional location",
  "attendees": ["person@email.com"]
}

Important:
- Current time is %s
- Handle relative dates/times: "tomorrow at 2pm", "next Monday morning"
- Default duration is 1 hour if not specified
- Parse time formats flexibly: "2pm", "14:00", "2:30 PM"
- Round times to nearest 15 minutes

Return ONLY the JSON object, no additional text.`, input, now)
}
