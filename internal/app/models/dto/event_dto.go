package dto

import (
	"time"

	"github.com/unihub/unihub/internal/app/models"
)

// CreateEventRequest represents a new community event
type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required,notblank,max=200" example:"Spring Blitz"`
	Date        time.Time `json:"date" binding:"required" example:"2025-05-01T18:00:00Z"`
	Location    *string   `json:"location,omitempty" binding:"omitempty,max=500" example:"Room 2.14"`
	Description *string   `json:"description,omitempty"`
	EventType   *string   `json:"eventType,omitempty" binding:"omitempty,max=50" example:"meeting"`
	Capacity    *int      `json:"capacity,omitempty" binding:"omitempty,min=1" example:"30"`
}

// RSVPRequest sets the caller's RSVP for an event
type RSVPRequest struct {
	Status string `json:"status" binding:"required" example:"Accepted"`
}

// RSVPResponse is the caller's RSVP after an update
type RSVPResponse struct {
	RSVP    *models.RSVP `json:"rsvp"`
	Created bool         `json:"created"`
}
