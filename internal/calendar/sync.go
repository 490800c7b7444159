// Package calendar syncs provider events into the local database through
// the calendar CLI, keeping an ICS file mirror alongside.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"

	"github.com/missionctl/missionctl/internal/database"
)

const commandTimeout = 60 * time.Second

// EventStore is the slice of the database the syncer needs.
type EventStore interface {
	CreateEvent(ctx context.Context, event *database.CalendarEvent) error
	UpsertEventByProviderID(ctx context.Context, event *database.CalendarEvent) error
	UpdateEvent(ctx context.Context, event *database.CalendarEvent) error
	DeleteEvent(ctx context.Context, id string) error
}

// Syncer shells out to the calendar CLI and mirrors its events locally.
type Syncer struct {
	binary     string
	icsDir     string
	windowDays int
	store      EventStore
	log        logr.Logger
	now        func() time.Time
}

// NewSyncer creates a calendar syncer.
func NewSyncer(binary, icsDir string, windowDays int, store EventStore, log logr.Logger) *Syncer {
	if binary == "" {
		binary = "gog"
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	return &Syncer{
		binary:     binary,
		icsDir:     icsDir,
		windowDays: windowDays,
		store:      store,
		log:        log.WithName("calendar-sync"),
		now:        time.Now,
	}
}

type providerTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

func (t providerTime) Time() (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.ParseInLocation("2006-01-02", t.Date, time.Local)
	}
	return time.Time{}, fmt.Errorf("provider event has no timestamp")
}

type providerEvent struct {
	ID          string       `json:"id"`
	Summary     string       `json:"summary"`
	Description string       `json:"description"`
	Start       providerTime `json:"start"`
	End         providerTime `json:"end"`
	Location    string       `json:"location"`
	Attendees   []struct {
		Email string `json:"email"`
	} `json:"attendees"`
}

func (s *Syncer) run(ctx context.Context, args ...string) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(cmdCtx, s.binary, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", s.binary, strings.Join(args, " "), err)
	}
	return out, nil
}

// Sync pulls the provider's events for the configured window and upserts
// them locally. Individual event failures are collected rather than
// aborting the pass; the error aggregates whatever went wrong.
func (s *Syncer) Sync(ctx context.Context) (synced int, err error) {
	from := s.now().Format("2006-01-02")
	to := s.now().AddDate(0, 0, s.windowDays).Format("2006-01-02")

	out, runErr := s.run(ctx, "calendar", "list", "--from", from, "--to", to, "--json")
	if runErr != nil {
		return 0, runErr
	}

	var events []providerEvent
	if jsonErr := json.Unmarshal(out, &events); jsonErr != nil {
		return 0, fmt.Errorf("failed to decode provider events: %w", jsonErr)
	}

	var errs *multierror.Error
	for _, pe := range events {
		if upsertErr := s.upsert(ctx, pe); upsertErr != nil {
			errs = multierror.Append(errs, fmt.Errorf("event %s: %w", pe.ID, upsertErr))
			continue
		}
		synced++
	}

	s.log.Info("calendar sync finished", "synced", synced, "failed", len(events)-synced)
	return synced, errs.ErrorOrNil()
}

func (s *Syncer) upsert(ctx context.Context, pe providerEvent) error {
	row, err := s.toRow(pe)
	if err != nil {
		return err
	}
	if err := s.store.UpsertEventByProviderID(ctx, row); err != nil {
		return err
	}
	s.writeICS(pe)
	return nil
}

func (s *Syncer) toRow(pe providerEvent) (*database.CalendarEvent, error) {
	start, err := pe.Start.Time()
	if err != nil {
		return nil, fmt.Errorf("bad start time: %w", err)
	}
	end, err := pe.End.Time()
	if err != nil {
		return nil, fmt.Errorf("bad end time: %w", err)
	}

	title := pe.Summary
	if title == "" {
		title = "Untitled"
	}
	var attendees string
	if len(pe.Attendees) > 0 {
		emails := make([]string, 0, len(pe.Attendees))
		for _, a := range pe.Attendees {
			emails = append(emails, a.Email)
		}
		encoded, _ := json.Marshal(emails)
		attendees = string(encoded)
	}

	return &database.CalendarEvent{
		Title:         title,
		Description:   pe.Description,
		StartTime:     start,
		EndTime:       end,
		Location:      pe.Location,
		Attendees:     attendees,
		GoogleEventID: pe.ID,
	}, nil
}

// CreateRequest describes an event to create at the provider.
type CreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Duration    string   `json:"duration,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
}

// Create adds the event at the provider, then mirrors it locally.
func (s *Syncer) Create(ctx context.Context, req CreateRequest) (*database.CalendarEvent, error) {
	duration := req.Duration
	if duration == "" {
		duration = "1h"
	}

	out, err := s.run(ctx, "calendar", "add", req.Title,
		"--date", req.Date, "--time", req.Time, "--duration", duration, "--json")
	if err != nil {
		return nil, err
	}

	var pe providerEvent
	if err := json.Unmarshal(out, &pe); err != nil {
		return nil, fmt.Errorf("failed to decode created event: %w", err)
	}

	row, err := s.toRow(pe)
	if err != nil {
		return nil, err
	}
	if row.Title == "Untitled" && req.Title != "" {
		row.Title = req.Title
	}
	row.Description = req.Description
	row.Location = req.Location
	if len(req.Attendees) > 0 {
		encoded, _ := json.Marshal(req.Attendees)
		row.Attendees = string(encoded)
	}

	if err := s.store.CreateEvent(ctx, row); err != nil {
		return nil, err
	}
	s.writeICS(pe)
	return row, nil
}

// UpdateTitle renames the event at the provider and locally.
func (s *Syncer) UpdateTitle(ctx context.Context, event *database.CalendarEvent, title string) error {
	if event.GoogleEventID == "" {
		return fmt.Errorf("provider event id required for update")
	}
	if _, err := s.run(ctx, "calendar", "update", event.GoogleEventID, "--title", title); err != nil {
		return err
	}
	event.Title = title
	return s.store.UpdateEvent(ctx, event)
}

// Delete removes the event at the provider (when linked) and locally.
func (s *Syncer) Delete(ctx context.Context, event *database.CalendarEvent) error {
	if event.GoogleEventID != "" {
		if _, err := s.run(ctx, "calendar", "delete", event.GoogleEventID); err != nil {
			return err
		}
	}
	return s.store.DeleteEvent(ctx, event.ID)
}

// writeICS mirrors one provider event to an .ics file. File write failures
// never fail the sync; the database row is the source of truth.
func (s *Syncer) writeICS(pe providerEvent) {
	if s.icsDir == "" {
		return
	}
	start, err1 := pe.Start.Time()
	end, err2 := pe.End.Time()
	if err1 != nil || err2 != nil {
		return
	}

	if err := os.MkdirAll(s.icsDir, 0o755); err != nil {
		s.log.Error(err, "failed to create ICS directory", "dir", s.icsDir)
		return
	}

	content := renderICS(pe.ID, pe.Summary, pe.Description, pe.Location, start, end, s.now())
	path := filepath.Join(s.icsDir, pe.ID+".ics")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		s.log.Error(err, "failed to write ICS file", "path", path)
	}
}

func icsTimestamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func renderICS(uid, summary, description, location string, start, end, stamp time.Time) string {
	if summary == "" {
		summary = "Untitled"
	}
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Mission Control//Calendar//EN",
		"BEGIN:VEVENT",
		"UID:" + uid,
		"DTSTAMP:" + icsTimestamp(stamp),
		"DTSTART:" + icsTimestamp(start),
		"DTEND:" + icsTimestamp(end),
		"SUMMARY:" + summary,
		"DESCRIPTION:" + description,
		"LOCATION:" + location,
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, "\n")
}
