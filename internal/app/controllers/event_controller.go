package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unihub/unihub/internal/app/models/dto"
	"github.com/unihub/unihub/internal/app/services"
	"github.com/unihub/unihub/internal/middleware"
	"github.com/unihub/unihub/internal/pkg/helpers"
)

// EventController handles events, RSVPs and announcements
type EventController struct {
	eventService        services.EventService
	announcementService services.AnnouncementService
}

// NewEventController creates a new EventController
func NewEventController(eventService services.EventService, announcementService services.AnnouncementService) *EventController {
	return &EventController{
		eventService:        eventService,
		announcementService: announcementService,
	}
}

// CreateEvent creates a community event
// @Summary Create event
// @Description Leader or Event Manager only. Meeting-type events get a meeting link when the integration is enabled.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.CreateEventRequest true "Event"
// @Success 201 {object} dto.APIResponse{data=models.Event}
// @Failure 403 {object} dto.ErrorResponse "Not staff"
// @Router /communities/{id}/events [post]
func (c *EventController) CreateEvent(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	event, err := c.eventService.CreateEvent(ctx.Request.Context(), id, middleware.UserID(ctx), services.CreateEventParams{
		Name:        req.Name,
		Date:        req.Date,
		Location:    req.Location,
		Description: req.Description,
		EventType:   req.EventType,
		Capacity:    req.Capacity,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(event))
}

// ListCommunityEvents lists a community's events with attendance
// @Summary List community events
// @Tags events
// @Produce json
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=[]services.EventSummary}
// @Router /communities/{id}/events [get]
func (c *EventController) ListCommunityEvents(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	events, err := c.eventService.ListCommunityEvents(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(events))
}

// GetEvent returns one event with attendance
// @Summary Get event
// @Tags events
// @Produce json
// @Param eventId path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=services.EventSummary}
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Router /events/{eventId} [get]
func (c *EventController) GetEvent(ctx *gin.Context) {
	eventID, ok := pathID(ctx, "eventId", "event")
	if !ok {
		return
	}
	summary, err := c.eventService.EventSummary(ctx.Request.Context(), eventID, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summary))
}

// SetRSVP records the caller's answer to an event
// @Summary RSVP to event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventId path int true "Event ID"
// @Param request body dto.RSVPRequest true "Accepted, Declined or Tentative"
// @Success 200 {object} dto.APIResponse{data=dto.RSVPResponse}
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Failure 409 {object} dto.ErrorResponse "Event at capacity"
// @Router /events/{eventId}/rsvp [put]
func (c *EventController) SetRSVP(ctx *gin.Context) {
	eventID, ok := pathID(ctx, "eventId", "event")
	if !ok {
		return
	}
	var req dto.RSVPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	rsvp, created, err := c.eventService.SetRSVP(ctx.Request.Context(), eventID, middleware.UserID(ctx), req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RSVPResponse{RSVP: rsvp, Created: created}))
}

// ListMyRSVPs lists the caller's RSVPs
// @Summary List my RSVPs
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.RSVP}
// @Router /users/me/rsvps [get]
func (c *EventController) ListMyRSVPs(ctx *gin.Context) {
	rsvps, err := c.eventService.ListUserRSVPs(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(rsvps))
}

// CreateAnnouncement posts an announcement and emails the members
// @Summary Create announcement
// @Tags announcements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.CreateAnnouncementRequest true "Announcement"
// @Success 201 {object} dto.APIResponse{data=models.Announcement}
// @Failure 403 {object} dto.ErrorResponse "Not staff"
// @Router /communities/{id}/announcements [post]
func (c *EventController) CreateAnnouncement(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	var req dto.CreateAnnouncementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	announcement, err := c.announcementService.CreateAnnouncement(ctx.Request.Context(), id, middleware.UserID(ctx), req.Title, req.Content)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(announcement))
}

// ListAnnouncements lists a community's announcements, newest first
// @Summary List announcements
// @Tags announcements
// @Produce json
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Announcement}
// @Router /communities/{id}/announcements [get]
func (c *EventController) ListAnnouncements(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	announcements, err := c.announcementService.ListAnnouncements(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(announcements))
}

// SearchEvents searches the events of public communities and the caller's own
// @Summary Search events
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param q query string false "Text matched against name, description and location"
// @Param type query string false "Event type; all matches every type"
// @Param when query string false "upcoming, past, today, this_week, next_week, this_month or custom"
// @Param start query string false "First day for when=custom (YYYY-MM-DD)"
// @Param end query string false "Last day for when=custom (YYYY-MM-DD)"
// @Param ordering query string false "date, -date, event_name or -event_name" default(date)
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 400 {object} dto.ErrorResponse "Unknown date filter or bad date"
// @Router /events [get]
func (c *EventController) SearchEvents(ctx *gin.Context) {
	start, ok := queryDate(ctx, "start")
	if !ok {
		return
	}
	end, ok := queryDate(ctx, "end")
	if !ok {
		return
	}
	page, size := helpers.ParsePagination(ctx.Query("page"), ctx.Query("size"))

	events, err := c.eventService.SearchEvents(ctx.Request.Context(), middleware.UserID(ctx), services.EventSearchParams{
		Text:       ctx.Query("q"),
		EventType:  ctx.Query("type"),
		DateFilter: ctx.Query("when"),
		StartDate:  start,
		EndDate:    end,
		Ordering:   ctx.Query("ordering"),
	}, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      events,
		Pagination: dto.PaginationInfo{CurrentPage: page, PageSize: size},
	}))
}
