package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	return store
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestTaskCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &Task{Title: "Write release notes", Status: "todo", Priority: "high"}
	require.NoError(t, store.CreateTask(ctx, task))
	require.NotEmpty(t, task.ID)

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write release notes", got.Title)
	assert.Equal(t, "high", got.Priority)

	got.Status = "done"
	require.NoError(t, store.UpdateTask(ctx, got))

	got, err = store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", got.Status)

	require.NoError(t, store.DeleteTask(ctx, task.ID))
	_, err = store.GetTask(ctx, task.ID)
	assert.Error(t, err)
}

func TestListTasks_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []*Task{
		{Title: "Fix login bug", Status: "todo", Priority: "high", ProjectID: "p1"},
		{Title: "Update docs", Status: "done", Priority: "low", ProjectID: "p1"},
		{Title: "Fix signup bug", Status: "todo", Priority: "medium", ProjectID: "p2"},
	}
	for _, task := range seed {
		require.NoError(t, store.CreateTask(ctx, task))
	}

	all, err := store.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	todos, err := store.ListTasks(ctx, TaskFilter{Status: "todo"})
	require.NoError(t, err)
	assert.Len(t, todos, 2)

	high, err := store.ListTasks(ctx, TaskFilter{Priority: "high"})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "Fix login bug", high[0].Title)

	p2, err := store.ListTasks(ctx, TaskFilter{ProjectID: "p2"})
	require.NoError(t, err)
	assert.Len(t, p2, 1)

	bugs, err := store.ListTasks(ctx, TaskFilter{Search: "bug"})
	require.NoError(t, err)
	assert.Len(t, bugs, 2)

	none, err := store.ListTasks(ctx, TaskFilter{Status: "todo", Priority: "low"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListEvents_Window(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"early", "middle", "late"} {
		event := &CalendarEvent{
			Title:     title,
			StartTime: base.AddDate(0, 0, i*7),
			EndTime:   base.AddDate(0, 0, i*7).Add(time.Hour),
		}
		require.NoError(t, store.CreateEvent(ctx, event))
	}

	all, err := store.ListEvents(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "early", all[0].Title)

	window, err := store.ListEvents(ctx, base.AddDate(0, 0, 3), base.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "middle", window[0].Title)
}

func TestUpsertEventByProviderID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 9, 2, 14, 0, 0, 0, time.UTC)
	first := &CalendarEvent{
		Title:         "Planning",
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		GoogleEventID: "gog-123",
	}
	require.NoError(t, store.UpsertEventByProviderID(ctx, first))
	firstID := first.ID

	// Same provider ID again: the row is refreshed, not duplicated.
	second := &CalendarEvent{
		Title:         "Planning (moved)",
		StartTime:     start.Add(2 * time.Hour),
		EndTime:       start.Add(3 * time.Hour),
		GoogleEventID: "gog-123",
	}
	require.NoError(t, store.UpsertEventByProviderID(ctx, second))
	assert.Equal(t, firstID, second.ID)

	all, err := store.ListEvents(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Planning (moved)", all[0].Title)
}

func TestUpsertEventWithoutProviderIDCreates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event := &CalendarEvent{Title: "Local only", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)}
	require.NoError(t, store.UpsertEventByProviderID(ctx, event))
	assert.NotEmpty(t, event.ID)
}

func TestApprovalLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	approval := &Approval{
		Title:       "delete archived projects",
		RequestedBy: "mission-control",
		Metadata:    `{"riskLevel":"high"}`,
	}
	require.NoError(t, store.CreateApproval(ctx, approval))
	assert.Equal(t, "pending", approval.Status)
	assert.False(t, approval.RequestedAt.IsZero())

	responded, err := store.RespondToApproval(ctx, approval.ID, ApprovalApproved, "go ahead", "reviewed")
	require.NoError(t, err)
	assert.Equal(t, ApprovalApproved, responded.Status)
	assert.Equal(t, "go ahead", responded.Response)
	require.NotNil(t, responded.RespondedAt)

	// Reopening clears the response timestamp.
	reopened, err := store.RespondToApproval(ctx, approval.ID, ApprovalPending, "", "")
	require.NoError(t, err)
	assert.Nil(t, reopened.RespondedAt)
}

func TestListApprovals_PendingFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := &Approval{Title: "a"}
	require.NoError(t, store.CreateApproval(ctx, a))
	b := &Approval{Title: "b"}
	require.NoError(t, store.CreateApproval(ctx, b))
	_, err := store.RespondToApproval(ctx, a.ID, ApprovalApproved, "ok", "")
	require.NoError(t, err)

	all, err := store.ListApprovals(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ApprovalPending, all[0].Status)
	assert.Equal(t, ApprovalApproved, all[1].Status)

	pending, err := store.ListApprovals(ctx, ApprovalPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].Title)
}

func TestPeopleCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	person := &Person{Name: "Ana Torres", Email: "ana@example.com"}
	require.NoError(t, store.CreatePerson(ctx, person))

	require.NoError(t, store.CreatePerson(ctx, &Person{Name: "Raj Patel", Email: "raj@example.com"}))

	found, err := store.ListPeople(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ana Torres", found[0].Name)

	got, err := store.GetPerson(ctx, person.ID)
	require.NoError(t, err)
	got.Phone = "+34 600 000 000"
	require.NoError(t, store.UpdatePerson(ctx, got))

	require.NoError(t, store.DeletePerson(ctx, person.ID))
	remaining, err := store.ListPeople(ctx, "")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
