package models

import (
	"fmt"
	"time"
)

// Event belongs to a community. A nil Capacity means unbounded.
type Event struct {
	ID          int64     `json:"id" db:"id"`
	CommunityID int64     `json:"communityId" db:"community_id"`
	Name        string    `json:"name" db:"event_name"`
	Date        time.Time `json:"date" db:"event_date"`
	Location    *string   `json:"location,omitempty" db:"location"`
	Description *string   `json:"description,omitempty" db:"description"`
	EventType   *string   `json:"eventType,omitempty" db:"event_type"`
	Capacity    *int      `json:"capacity,omitempty" db:"capacity"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// RSVPStatus is a member's answer to an event invitation
type RSVPStatus string

const (
	RSVPAccepted  RSVPStatus = "Accepted"
	RSVPTentative RSVPStatus = "Tentative"
	RSVPDeclined  RSVPStatus = "Declined"
)

// ParseRSVPStatus maps the wire value onto the closed status set.
func ParseRSVPStatus(s string) (RSVPStatus, error) {
	switch RSVPStatus(s) {
	case RSVPAccepted, RSVPTentative, RSVPDeclined:
		return RSVPStatus(s), nil
	default:
		return "", fmt.Errorf("unknown RSVP status %q", s)
	}
}

// RSVP is unique per (user, event)
type RSVP struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"userId" db:"user_id"`
	EventID   int64      `json:"eventId" db:"event_id"`
	Status    RSVPStatus `json:"status" db:"status"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`

	Event *Event `json:"event,omitempty"`
}

// EventOrdering is one of the sort orders event search accepts
type EventOrdering string

const (
	OrderEventDate     EventOrdering = "date"
	OrderEventDateDesc EventOrdering = "-date"
	OrderEventName     EventOrdering = "event_name"
	OrderEventNameDesc EventOrdering = "-event_name"
)

// ParseEventOrdering maps unknown or blank values to OrderEventDate.
func ParseEventOrdering(s string) EventOrdering {
	switch o := EventOrdering(s); o {
	case OrderEventDate, OrderEventDateDesc, OrderEventName, OrderEventNameDesc:
		return o
	default:
		return OrderEventDate
	}
}

// EventSearch filters events visible to ViewerID: those of public
// communities and of communities the viewer belongs to. From is inclusive,
// Until exclusive.
type EventSearch struct {
	ViewerID  int64
	Text      string
	EventType string
	From      *time.Time
	Until     *time.Time
	Ordering  EventOrdering
}
