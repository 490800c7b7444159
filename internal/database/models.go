package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is a persisted to-do item. Tags is a JSON-encoded string list.
type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `gorm:"index;default:todo" json:"status"`
	Priority    string     `gorm:"index;default:medium" json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	Tags        string     `json:"tags,omitempty"`
	ProjectID   string     `gorm:"index" json:"projectId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Project groups tasks.
type Project struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `gorm:"default:active" json:"status"`
	Progress    int        `json:"progress"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Docs        string     `json:"docs,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// CalendarEvent mirrors one provider event locally. GoogleEventID links the
// row back to the provider for upserts during sync.
type CalendarEvent struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Description   string    `json:"description,omitempty"`
	StartTime     time.Time `gorm:"index" json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Location      string    `json:"location,omitempty"`
	Attendees     string    `json:"attendees,omitempty"`
	GoogleEventID string    `gorm:"uniqueIndex" json:"googleEventId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (e *CalendarEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Approval statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalDenied   = "denied"
)

// Approval is an immutable audit record of a risk decision awaiting (or
// past) human sign off. Metadata snapshots the full action context plus the
// classifier's risk fields as JSON.
type Approval struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description,omitempty"`
	RequestedBy string     `json:"requestedBy,omitempty"`
	Status      string     `gorm:"index;default:pending" json:"status"`
	Response    string     `json:"response,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Metadata    string     `json:"metadata,omitempty"`
	RequestedAt time.Time  `json:"requestedAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

func (a *Approval) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.RequestedAt.IsZero() {
		a.RequestedAt = time.Now()
	}
	return nil
}

// Person is a contact record.
type Person struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"not null;index" json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Tags        string     `json:"tags,omitempty"`
	SocialLinks string     `json:"socialLinks,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	LastContact *time.Time `json:"lastContact,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (p *Person) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
