// Package database is the relational persistence layer: tasks, projects,
// calendar events, approvals and people as rows behind a small Store API.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store wraps the gorm handle. All methods take a context and are safe for
// concurrent use.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and runs migrations.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&Task{}, &Project{}, &CalendarEvent{}, &Approval{}, &Person{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// TaskFilter narrows task listings. Zero fields match everything.
type TaskFilter struct {
	Status    string
	Priority  string
	ProjectID string
	Search    string
}

func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	q := s.db.WithContext(ctx).Model(&Task{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.ProjectID != "" {
		q = q.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var tasks []Task
	if err := q.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return &task, nil
}

func (s *Store) CreateTask(ctx context.Context, task *Task) error {
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, task *Task) error {
	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Task{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, from, to time.Time) ([]CalendarEvent, error) {
	q := s.db.WithContext(ctx).Model(&CalendarEvent{})
	if !from.IsZero() {
		q = q.Where("start_time >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("start_time < ?", to)
	}

	var events []CalendarEvent
	if err := q.Order("start_time ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*CalendarEvent, error) {
	var event CalendarEvent
	if err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return &event, nil
}

func (s *Store) CreateEvent(ctx context.Context, event *CalendarEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// UpsertEventByProviderID creates the event or, when a row with the same
// provider ID exists, refreshes its mutable fields.
func (s *Store) UpsertEventByProviderID(ctx context.Context, event *CalendarEvent) error {
	if event.GoogleEventID == "" {
		return s.CreateEvent(ctx, event)
	}

	var existing CalendarEvent
	err := s.db.WithContext(ctx).
		First(&existing, "google_event_id = ?", event.GoogleEventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.CreateEvent(ctx, event)
	}
	if err != nil {
		return fmt.Errorf("failed to look up event %s: %w", event.GoogleEventID, err)
	}

	existing.Title = event.Title
	existing.Description = event.Description
	existing.StartTime = event.StartTime
	existing.EndTime = event.EndTime
	existing.Location = event.Location
	existing.Attendees = event.Attendees
	if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to upsert event %s: %w", event.GoogleEventID, err)
	}
	*event = existing
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, event *CalendarEvent) error {
	if err := s.db.WithContext(ctx).Save(event).Error; err != nil {
		return fmt.Errorf("failed to update event %s: %w", event.ID, err)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&CalendarEvent{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	return nil
}

func (s *Store) CreateApproval(ctx context.Context, approval *Approval) error {
	if err := s.db.WithContext(ctx).Create(approval).Error; err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}
	return nil
}

// ListApprovals returns approvals, pending first, newest request first
// within a status.
func (s *Store) ListApprovals(ctx context.Context, status string) ([]Approval, error) {
	q := s.db.WithContext(ctx).Model(&Approval{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var approvals []Approval
	if err := q.Order("CASE WHEN status = 'pending' THEN 0 ELSE 1 END").
		Order("requested_at DESC").Find(&approvals).Error; err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	return approvals, nil
}

func (s *Store) GetApproval(ctx context.Context, id string) (*Approval, error) {
	var approval Approval
	if err := s.db.WithContext(ctx).First(&approval, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get approval %s: %w", id, err)
	}
	return &approval, nil
}

// RespondToApproval records the human decision. Moving back to pending
// clears the response timestamp.
func (s *Store) RespondToApproval(ctx context.Context, id, status, response, notes string) (*Approval, error) {
	approval, err := s.GetApproval(ctx, id)
	if err != nil {
		return nil, err
	}

	approval.Status = status
	approval.Response = response
	approval.Notes = notes
	if status == ApprovalPending {
		approval.RespondedAt = nil
	} else {
		now := time.Now()
		approval.RespondedAt = &now
	}

	if err := s.db.WithContext(ctx).Save(approval).Error; err != nil {
		return nil, fmt.Errorf("failed to update approval %s: %w", id, err)
	}
	return approval, nil
}

func (s *Store) ListPeople(ctx context.Context, search string) ([]Person, error) {
	q := s.db.WithContext(ctx).Model(&Person{})
	if search != "" {
		pattern := "%" + search + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", pattern, pattern)
	}

	var people []Person
	if err := q.Order("name ASC").Find(&people).Error; err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	return people, nil
}

func (s *Store) GetPerson(ctx context.Context, id string) (*Person, error) {
	var person Person
	if err := s.db.WithContext(ctx).First(&person, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get person %s: %w", id, err)
	}
	return &person, nil
}

func (s *Store) CreatePerson(ctx context.Context, person *Person) error {
	if err := s.db.WithContext(ctx).Create(person).Error; err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

func (s *Store) UpdatePerson(ctx context.Context, person *Person) error {
	if err := s.db.WithContext(ctx).Save(person).Error; err != nil {
		return fmt.Errorf("failed to update person %s: %w", person.ID, err)
	}
	return nil
}

func (s *Store) DeletePerson(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Person{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete person %s: %w", id, err)
	}
	return nil
}
