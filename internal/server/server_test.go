package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionctl/missionctl/internal/agent"
	"github.com/missionctl/missionctl/internal/database"
	"github.com/missionctl/missionctl/internal/interpret"
	"github.com/missionctl/missionctl/internal/stream"
)

type fakeTaskParser struct {
	draft interpret.TaskDraft
}

func (f *fakeTaskParser) Parse(context.Context, string) interpret.TaskDraft { return f.draft }

type fakeEventParser struct {
	draft interpret.EventDraft
}

func (f *fakeEventParser) Parse(context.Context, string) interpret.EventDraft { return f.draft }

type fakeApprover struct {
	decision *interpret.Decision
	err      error
	action   string
}

func (f *fakeApprover) Check(_ context.Context, action string, _ map[string]interface{}) (*interpret.Decision, error) {
	f.action = action
	return f.decision, f.err
}

func newTestServer(t *testing.T, mutate func(*Deps)) *Server {
	t.Helper()
	store, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)

	deps := Deps{
		Store:    store,
		Tasks:    &fakeTaskParser{},
		Events:   &fakeEventParser{},
		Approver: &fakeApprover{decision: &interpret.Decision{}},
		Broker:   stream.NewBroker(logr.Discard()),
		Log:      logr.Discard(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return New(deps)
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestTaskEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	w := doJSON(t, srv, "POST", "/api/tasks", map[string]interface{}{
		"title":    "Ship v2",
		"priority": "high",
		"tags":     []string{"release"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created database.Task
	decode(t, w, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "todo", created.Status)
	assert.Equal(t, "high", created.Priority)
	assert.JSONEq(t, `["release"]`, created.Tags)

	w = doJSON(t, srv, "GET", "/api/tasks?priority=high", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []database.Task
	decode(t, w, &listed)
	require.Len(t, listed, 1)

	w = doJSON(t, srv, "PUT", "/api/tasks/"+created.ID, map[string]string{"status": "done"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated database.Task
	decode(t, w, &updated)
	assert.Equal(t, "done", updated.Status)
	assert.Equal(t, "Ship v2", updated.Title)

	w = doJSON(t, srv, "DELETE", "/api/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, "GET", "/api/tasks", nil)
	decode(t, w, &listed)
	assert.Empty(t, listed)
}

func TestCreateTask_TitleRequired(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv, "POST", "/api/tasks", map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTask_PriorityNormalized(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv, "POST", "/api/tasks", map[string]string{"title": "x", "priority": "sky-high"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created database.Task
	decode(t, w, &created)
	assert.Equal(t, "medium", created.Priority)
}

func TestUpdateTask_NotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv, "PUT", "/api/tasks/missing-id", map[string]string{"status": "done"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseTask_AlwaysSucceeds(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) {
		d.Tasks = &fakeTaskParser{draft: interpret.TaskDraft{
			Title:    "buy milk",
			Priority: interpret.PriorityMedium,
			Tags:     []string{},
		}}
	})

	w := doJSON(t, srv, "POST", "/api/tasks/parse", map[string]string{"prompt": "buy milk"})
	require.Equal(t, http.StatusOK, w.Code)

	var draft interpret.TaskDraft
	decode(t, w, &draft)
	assert.Equal(t, "buy milk", draft.Title)
	assert.Equal(t, interpret.PriorityMedium, draft.Priority)
}

func TestParseTask_PromptRequired(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv, "POST", "/api/tasks/parse", map[string]string{"prompt": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	start := time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC)
	w := doJSON(t, srv, "POST", "/api/events", map[string]interface{}{
		"title":     "Sprint review",
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, "GET", "/api/events?from=2026-09-01&to=2026-09-30", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []database.CalendarEvent
	decode(t, w, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "Sprint review", events[0].Title)
}

func TestParseEvent(t *testing.T) {
	start := time.Date(2026, 9, 3, 14, 0, 0, 0, time.UTC)
	srv := newTestServer(t, func(d *Deps) {
		d.Events = &fakeEventParser{draft: interpret.EventDraft{
			Title:     "Demo",
			StartTime: start,
			EndTime:   start.Add(time.Hour),
			Attendees: []string{},
		}}
	})

	w := doJSON(t, srv, "POST", "/api/events/parse", map[string]string{"prompt": "demo at 2"})
	require.Equal(t, http.StatusOK, w.Code)

	var draft interpret.EventDraft
	decode(t, w, &draft)
	assert.Equal(t, "Demo", draft.Title)
	assert.Equal(t, time.Hour, draft.EndTime.Sub(draft.StartTime))
}

func TestCheckApproval_PersistsRecord(t *testing.T) {
	approver := &fakeApprover{decision: &interpret.Decision{
		RequiresApproval: true,
		Reason:           "irreversible deletion",
		RiskLevel:        interpret.RiskHigh,
		Category:         "file_delete",
	}}
	srv := newTestServer(t, func(d *Deps) { d.Approver = approver })

	w := doJSON(t, srv, "POST", "/api/approvals/check", map[string]interface{}{
		"action":  "delete 500 files",
		"context": map[string]interface{}{"reversible": false},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "delete 500 files", approver.action)

	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, true, resp["requiresApproval"])
	approvalID, ok := resp["approvalId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, approvalID)

	w = doJSON(t, srv, "GET", "/api/approvals/"+approvalID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var approval database.Approval
	decode(t, w, &approval)
	assert.Equal(t, "delete 500 files", approval.Title)
	assert.Equal(t, "mission-control", approval.RequestedBy)
	assert.Equal(t, database.ApprovalPending, approval.Status)
	assert.Contains(t, approval.Metadata, `"riskLevel":"high"`)
	assert.Contains(t, approval.Metadata, `"reversible":false`)
}

func TestCheckApproval_NoPersistWhenNotRequired(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) {
		d.Approver = &fakeApprover{decision: &interpret.Decision{
			RequiresApproval: false,
			Reason:           "read only",
			RiskLevel:        interpret.RiskLow,
		}}
	})

	w := doJSON(t, srv, "POST", "/api/approvals/check", map[string]string{"action": "list files"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "approvalId")

	w = doJSON(t, srv, "GET", "/api/approvals", nil)
	var approvals []database.Approval
	decode(t, w, &approvals)
	assert.Empty(t, approvals)
}

func TestCheckApproval_ErrorMapping(t *testing.T) {
	tests := []struct {
		kind agent.ErrorKind
		want int
	}{
		{agent.KindAgentUnavailable, http.StatusServiceUnavailable},
		{agent.KindTimeout, http.StatusGatewayTimeout},
		{agent.KindMalformedResponse, http.StatusBadGateway},
		{agent.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			srv := newTestServer(t, func(d *Deps) {
				d.Approver = &fakeApprover{err: agent.NewError(tt.kind, "boom", nil)}
			})

			w := doJSON(t, srv, "POST", "/api/approvals/check", map[string]string{"action": "deploy"})
			assert.Equal(t, tt.want, w.Code)

			var resp map[string]string
			decode(t, w, &resp)
			assert.Equal(t, string(tt.kind), resp["kind"])
		})
	}
}

func TestApprovalRespond(t *testing.T) {
	srv := newTestServer(t, nil)

	w := doJSON(t, srv, "POST", "/api/approvals", map[string]string{
		"title":       "rotate credentials",
		"requestedBy": "agent",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var approval database.Approval
	decode(t, w, &approval)

	w = doJSON(t, srv, "PUT", "/api/approvals/"+approval.ID, map[string]string{
		"status":   "approved",
		"response": "go ahead",
	})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &approval)
	assert.Equal(t, database.ApprovalApproved, approval.Status)
	assert.NotNil(t, approval.RespondedAt)

	w = doJSON(t, srv, "PUT", "/api/approvals/"+approval.ID, map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPeopleEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	w := doJSON(t, srv, "POST", "/api/people", map[string]interface{}{
		"name":  "Ana Torres",
		"email": "ana@example.com",
		"tags":  []string{"design"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var person database.Person
	decode(t, w, &person)

	w = doJSON(t, srv, "GET", "/api/people?search=ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var people []database.Person
	decode(t, w, &people)
	require.Len(t, people, 1)

	w = doJSON(t, srv, "PUT", "/api/people/"+person.ID, map[string]string{"phone": "+1 555 0100"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, "DELETE", "/api/people/"+person.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doJSON(t, srv, "GET", "/api/nonsense", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
