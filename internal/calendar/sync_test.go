package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionctl/missionctl/internal/database"
)

// fakeStore records events without a database.
type fakeStore struct {
	created  []*database.CalendarEvent
	upserted []*database.CalendarEvent
	updated  []*database.CalendarEvent
	deleted  []string
	err      error
}

func (f *fakeStore) CreateEvent(_ context.Context, e *database.CalendarEvent) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, e)
	return nil
}

func (f *fakeStore) UpsertEventByProviderID(_ context.Context, e *database.CalendarEvent) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, e)
	return nil
}

func (f *fakeStore) UpdateEvent(_ context.Context, e *database.CalendarEvent) error {
	f.updated = append(f.updated, e)
	return nil
}

func (f *fakeStore) DeleteEvent(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

// writeProviderStub installs a shell script standing in for the calendar
// CLI.
func writeProviderStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gog")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

const providerListing = `[
  {
    "id": "evt-1",
    "summary": "Team sync",
    "start": {"dateTime": "2026-09-01T10:00:00Z"},
    "end": {"dateTime": "2026-09-01T11:00:00Z"},
    "location": "Zoom",
    "attendees": [{"email": "ana@example.com"}]
  },
  {
    "id": "evt-2",
    "summary": "Company holiday",
    "start": {"date": "2026-09-15"},
    "end": {"date": "2026-09-16"}
  },
  {
    "id": "evt-3",
    "summary": "Broken",
    "start": {},
    "end": {"dateTime": "2026-09-02T11:00:00Z"}
  }
]`

func TestSync(t *testing.T) {
	binary := writeProviderStub(t, `cat <<'EOF'
`+providerListing+`
EOF`)
	store := &fakeStore{}
	s := NewSyncer(binary, "", 30, store, logr.Discard())

	synced, err := s.Sync(context.Background())

	// Two good events land; the timestampless one is reported, not fatal.
	assert.Equal(t, 2, synced)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evt-3")

	require.Len(t, store.upserted, 2)
	assert.Equal(t, "Team sync", store.upserted[0].Title)
	assert.Equal(t, "evt-1", store.upserted[0].GoogleEventID)
	assert.JSONEq(t, `["ana@example.com"]`, store.upserted[0].Attendees)
	assert.Equal(t, "Company holiday", store.upserted[1].Title)
}

func TestSync_ProviderFailure(t *testing.T) {
	binary := writeProviderStub(t, `exit 1`)
	s := NewSyncer(binary, "", 30, &fakeStore{}, logr.Discard())

	synced, err := s.Sync(context.Background())
	assert.Zero(t, synced)
	assert.Error(t, err)
}

func TestSync_WritesICSMirror(t *testing.T) {
	binary := writeProviderStub(t, `cat <<'EOF'
`+providerListing+`
EOF`)
	icsDir := filepath.Join(t.TempDir(), "ics")
	s := NewSyncer(binary, icsDir, 30, &fakeStore{}, logr.Discard())

	_, _ = s.Sync(context.Background())

	data, err := os.ReadFile(filepath.Join(icsDir, "evt-1.ics"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "BEGIN:VCALENDAR")
	assert.Contains(t, content, "UID:evt-1")
	assert.Contains(t, content, "SUMMARY:Team sync")
	assert.Contains(t, content, "DTSTART:20260901T100000Z")
}

func TestCreate(t *testing.T) {
	binary := writeProviderStub(t, `cat <<'EOF'
{
  "id": "evt-new",
  "summary": "Dentist",
  "start": {"dateTime": "2026-09-05T09:00:00Z"},
  "end": {"dateTime": "2026-09-05T10:00:00Z"}
}
EOF`)
	store := &fakeStore{}
	s := NewSyncer(binary, "", 30, store, logr.Discard())

	event, err := s.Create(context.Background(), CreateRequest{
		Title:    "Dentist",
		Date:     "2026-09-05",
		Time:     "09:00",
		Location: "Main St clinic",
	})
	require.NoError(t, err)

	assert.Equal(t, "Dentist", event.Title)
	assert.Equal(t, "evt-new", event.GoogleEventID)
	assert.Equal(t, "Main St clinic", event.Location)
	require.Len(t, store.created, 1)
}

func TestUpdateTitle(t *testing.T) {
	binary := writeProviderStub(t, `exit 0`)
	store := &fakeStore{}
	s := NewSyncer(binary, "", 30, store, logr.Discard())

	event := &database.CalendarEvent{ID: "local-1", Title: "Old", GoogleEventID: "evt-1"}
	require.NoError(t, s.UpdateTitle(context.Background(), event, "New"))
	assert.Equal(t, "New", event.Title)
	require.Len(t, store.updated, 1)
}

func TestUpdateTitle_RequiresProviderID(t *testing.T) {
	s := NewSyncer("gog", "", 30, &fakeStore{}, logr.Discard())
	err := s.UpdateTitle(context.Background(), &database.CalendarEvent{ID: "local-1"}, "New")
	assert.Error(t, err)
}

func TestDelete_LocalOnlyEventSkipsProvider(t *testing.T) {
	// The binary would fail if invoked; a local-only event must not reach it.
	binary := writeProviderStub(t, `exit 1`)
	store := &fakeStore{}
	s := NewSyncer(binary, "", 30, store, logr.Discard())

	require.NoError(t, s.Delete(context.Background(), &database.CalendarEvent{ID: "local-2"}))
	assert.Equal(t, []string{"local-2"}, store.deleted)
}

func TestProviderTime(t *testing.T) {
	ts, err := providerTime{DateTime: "2026-09-01T10:00:00+02:00"}.Time()
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	ts, err = providerTime{Date: "2026-09-15"}.Time()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.Local), ts)

	_, err = providerTime{}.Time()
	assert.Error(t, err)
}

func TestRenderICS_UntitledFallback(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	content := renderICS("uid-1", "", "", "", now, now.Add(time.Hour), now)
	assert.Contains(t, content, "SUMMARY:Untitled")
	assert.Contains(t, content, "DTEND:20260831T130000Z")
}
