// internal/domain/campaign/campaign.go
package campaign

import (
	"database/sql"
	"fmt"
	"time"
)

// Status is the lifecycle state of a campaign.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further transitions are permitted from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid reports whether s is one of the known campaign statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ScheduleType selects which quota field group of a campaign is in effect.
type ScheduleType string

const (
	ScheduleDaily  ScheduleType = "DAILY"
	ScheduleWeekly ScheduleType = "WEEKLY"
)

// Sentinel errors for lifecycle transitions.
var (
	ErrTerminalState     = fmt.Errorf("campaign is in a terminal state")
	ErrInvalidTransition = fmt.Errorf("invalid campaign status transition")
)

// ValidationError describes a malformed campaign configuration. It is never
// retried; the scheduler logs it and skips the campaign.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid campaign config: %s: %s", e.Field, e.Reason)
}

// Campaign is an outreach campaign with a timezone-local delivery calendar.
// Exactly one of the DAILY (DailyEmails) or WEEKLY (WeeklyDays,
// WeeklyEmailsPerDay) field groups is populated, matching ScheduleType.
type Campaign struct {
	ID                 string
	Name               string
	Model              string // AI model used for draft generation
	Context            string // campaign briefing fed to the draft generator
	Status             Status
	ScheduleType       ScheduleType
	DailyEmails        sql.NullInt32
	WeeklyDays         []int // weekdays 0 (Sunday) .. 6 (Saturday)
	WeeklyEmailsPerDay sql.NullInt32
	DurationDays       int
	StartDateUTC       time.Time
	Timezone           string // IANA zone name
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate checks that the quota configuration matches the declared schedule
// type and that the calendar fields are usable.
func (c *Campaign) Validate() error {
	if c.DurationDays < 1 {
		return &ValidationError{Field: "durationDays", Reason: "must be at least 1"}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return &ValidationError{Field: "timezone", Reason: fmt.Sprintf("unknown IANA zone %q", c.Timezone)}
	}

	switch c.ScheduleType {
	case ScheduleDaily:
		if !c.DailyEmails.Valid || c.DailyEmails.Int32 <= 0 {
			return &ValidationError{Field: "dailyEmails", Reason: "required for DAILY schedule"}
		}
	case ScheduleWeekly:
		if len(c.WeeklyDays) == 0 {
			return &ValidationError{Field: "weeklyDays", Reason: "required for WEEKLY schedule"}
		}
		for _, d := range c.WeeklyDays {
			// 7 is accepted as an alias for Sunday.
			if d < 0 || d > 7 {
				return &ValidationError{Field: "weeklyDays", Reason: fmt.Sprintf("day %d out of range 0..7", d)}
			}
		}
		if !c.WeeklyEmailsPerDay.Valid || c.WeeklyEmailsPerDay.Int32 <= 0 {
			return &ValidationError{Field: "weeklyEmailsPerDay", Reason: "required for WEEKLY schedule"}
		}
	default:
		return &ValidationError{Field: "scheduleType", Reason: fmt.Sprintf("unknown schedule type %q", c.ScheduleType)}
	}
	return nil
}

// DailyLimit returns the number of emails this campaign may send on a sending
// day, regardless of schedule type.
func (c *Campaign) DailyLimit() int {
	switch c.ScheduleType {
	case ScheduleDaily:
		if c.DailyEmails.Valid {
			return int(c.DailyEmails.Int32)
		}
	case ScheduleWeekly:
		if c.WeeklyEmailsPerDay.Valid {
			return int(c.WeeklyEmailsPerDay.Int32)
		}
	}
	return 0
}

// ShouldSendOn reports whether the campaign sends on the given local weekday
// (0 = Sunday .. 6 = Saturday). DAILY campaigns send every day. A configured
// day of 7 counts as Sunday.
func (c *Campaign) ShouldSendOn(weekday int) bool {
	if c.ScheduleType == ScheduleDaily {
		return true
	}
	for _, d := range c.WeeklyDays {
		if d%7 == weekday {
			return true
		}
	}
	return false
}

// TransitionTo moves the campaign to the next status if the lifecycle state
// machine permits it. COMPLETED and CANCELLED are terminal.
func (c *Campaign) TransitionTo(next Status) error {
	if c.Status.IsTerminal() {
		return fmt.Errorf("%w: campaign %s is %s", ErrTerminalState, c.ID, c.Status)
	}
	if !next.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	allowed := false
	switch c.Status {
	case StatusDraft:
		allowed = next == StatusActive
	case StatusActive:
		allowed = next == StatusPaused || next == StatusCompleted || next == StatusCancelled
	case StatusPaused:
		allowed = next == StatusActive || next == StatusCancelled
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, next)
	}

	c.Status = next
	return nil
}
