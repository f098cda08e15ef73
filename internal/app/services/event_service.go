package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/auth"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/email"
	"github.com/unihub/unihub/internal/pkg/helpers"
	"github.com/unihub/unihub/internal/pkg/meeting"
)

// CreateEventParams holds the fields of a new event
type CreateEventParams struct {
	Name        string
	Date        time.Time
	Location    *string
	Description *string
	EventType   *string
	Capacity    *int
}

// EventSummary is an event with its attendance as seen by one viewer
type EventSummary struct {
	models.Event
	AcceptedCount int                `json:"acceptedCount"`
	ViewerStatus  *models.RSVPStatus `json:"viewerStatus,omitempty"`
}

// EventService defines event and RSVP operations
type EventService interface {
	CreateEvent(ctx context.Context, communityID, actorID int64, params CreateEventParams) (*models.Event, error)
	SetRSVP(ctx context.Context, eventID, actorID int64, status string) (*models.RSVP, bool, error)
	ListUserRSVPs(ctx context.Context, userID int64) ([]models.RSVP, error)
	EventSummary(ctx context.Context, eventID, viewerID int64) (*EventSummary, error)
	ListCommunityEvents(ctx context.Context, communityID, viewerID int64) ([]EventSummary, error)
	SearchEvents(ctx context.Context, viewerID int64, params EventSearchParams, page, size int) ([]models.Event, error)
}

// EventSearchParams holds the event search filters. DateFilter is one of
// upcoming, past, today, this_week, next_week, this_month or custom; custom
// uses StartDate and EndDate, both inclusive days. EventType "all" matches
// every type.
type EventSearchParams struct {
	Text       string
	EventType  string
	DateFilter string
	StartDate  *time.Time
	EndDate    *time.Time
	Ordering   string
}

type eventServiceImpl struct {
	store      repositories.Store
	scheduler  meeting.Scheduler
	meetingFor map[string]struct{}
	notify     notifier
	now        func() time.Time
	logger     zerolog.Logger
}

// NewEventService creates a new EventService. scheduler may be nil; when set,
// events whose type is listed in meetingTypes get a meeting link.
func NewEventService(store repositories.Store, scheduler meeting.Scheduler, meetingTypes []string, queue email.Queue, logger zerolog.Logger) EventService {
	logger = logger.With().Str("service", "events").Logger()
	types := make(map[string]struct{}, len(meetingTypes))
	for _, t := range meetingTypes {
		types[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &eventServiceImpl{
		store:      store,
		scheduler:  scheduler,
		meetingFor: types,
		notify:     notifier{queue: queue, logger: logger},
		now:        time.Now,
		logger:     logger,
	}
}

// CreateEvent adds an event to a community. Leader or EventManager only.
func (s *eventServiceImpl) CreateEvent(ctx context.Context, communityID, actorID int64, params CreateEventParams) (*models.Event, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}
	name, err := requiredText("event name", params.Name)
	if err != nil {
		return nil, err
	}
	if params.Date.IsZero() {
		return nil, apperrors.NewBadRequestError("event date is required")
	}
	if params.Capacity != nil && *params.Capacity < 1 {
		return nil, apperrors.NewBadRequestError("capacity must be at least 1")
	}

	repos := s.store.Repos()
	if _, err := repos.Communities.GetByID(ctx, communityID); err != nil {
		return nil, err
	}
	if _, err := auth.RequireStaff(ctx, repos, communityID, actorID); err != nil {
		return nil, err
	}

	event := &models.Event{
		CommunityID: communityID,
		Name:        name,
		Date:        params.Date.UTC(),
		Location:    optionalText(params.Location),
		Description: optionalText(params.Description),
		EventType:   optionalText(params.EventType),
		Capacity:    params.Capacity,
	}
	event.Location = s.attachMeeting(ctx, event)

	if _, err := repos.Events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info().Int64("eventID", event.ID).Int64("communityID", communityID).Int64("userID", actorID).Msg("Event created")
	return event, nil
}

// attachMeeting returns the location with a meeting link appended when the
// event type asks for one. Failures keep the original location.
func (s *eventServiceImpl) attachMeeting(ctx context.Context, event *models.Event) *string {
	if s.scheduler == nil || event.EventType == nil {
		return event.Location
	}
	if _, ok := s.meetingFor[strings.ToLower(*event.EventType)]; !ok {
		return event.Location
	}

	joinURL, err := s.scheduler.CreateMeeting(ctx, event.Name, event.Date)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", event.Name).Msg("Could not create meeting, continuing without link")
		return event.Location
	}

	base := "Online"
	if event.Location != nil {
		base = *event.Location
	}
	location := base + " | Zoom Link: " + joinURL
	return &location
}

// SetRSVP records the actor's answer to an event. Accepting is refused once
// the event is full, unless the actor had already accepted.
func (s *eventServiceImpl) SetRSVP(ctx context.Context, eventID, actorID int64, status string) (*models.RSVP, bool, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, false, err
	}

	var (
		rsvp    *models.RSVP
		created bool
		event   *models.Event
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		if event, err = repos.Events.LockByID(ctx, eventID); err != nil {
			return err
		}
		if _, err := auth.RequireMember(ctx, repos, event.CommunityID, actorID); err != nil {
			return err
		}
		parsed, err := models.ParseRSVPStatus(status)
		if err != nil {
			return apperrors.ErrInvalidRSVPStatus
		}

		if parsed == models.RSVPAccepted && event.Capacity != nil {
			existing, err := repos.RSVPs.Find(ctx, eventID, actorID)
			if err != nil {
				return fmt.Errorf("failed to load rsvp: %w", err)
			}
			if existing == nil || existing.Status != models.RSVPAccepted {
				accepted, err := repos.RSVPs.CountAccepted(ctx, eventID)
				if err != nil {
					return fmt.Errorf("failed to count rsvps: %w", err)
				}
				if accepted >= *event.Capacity {
					return apperrors.ErrEventAtCapacity
				}
			}
		}

		if rsvp, created, err = repos.RSVPs.Upsert(ctx, eventID, actorID, parsed); err != nil {
			return fmt.Errorf("failed to save rsvp: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrEventAtCapacity) {
			s.logger.Warn().Int64("eventID", eventID).Int64("userID", actorID).Msg("RSVP rejected, event full")
		}
		return nil, false, err
	}

	s.logger.Debug().Int64("eventID", eventID).Int64("userID", actorID).Str("status", string(rsvp.Status)).Bool("created", created).Msg("RSVP saved")
	s.notifyOwner(ctx, event, actorID, rsvp.Status)
	return rsvp, created, nil
}

func (s *eventServiceImpl) notifyOwner(ctx context.Context, event *models.Event, actorID int64, status models.RSVPStatus) {
	repos := s.store.Repos()
	community, err := repos.Communities.GetByID(ctx, event.CommunityID)
	if err != nil {
		s.logger.Error().Err(err).Int64("eventID", event.ID).Msg("Failed to load community for RSVP notification")
		return
	}
	ownerID, ok := community.Kind.Owner()
	if !ok || ownerID == actorID {
		return
	}

	users, err := usersByID(ctx, repos.Users.ListByIDs, []int64{ownerID, actorID})
	if err != nil {
		s.logger.Error().Err(err).Int64("eventID", event.ID).Msg("Failed to load users for RSVP notification")
		return
	}
	owner, found := users[ownerID]
	if !found {
		return
	}
	actor := users[actorID]
	s.notify.send(&owner, email.Notification{
		Template:      email.TemplateRSVP,
		ActorName:     actor.FullName(),
		CommunityName: community.Name,
		EventName:     event.Name,
		Status:        string(status),
	})
}

// ListUserRSVPs returns the user's RSVPs ordered by event date
func (s *eventServiceImpl) ListUserRSVPs(ctx context.Context, userID int64) ([]models.RSVP, error) {
	if err := auth.RequireUser(userID); err != nil {
		return nil, err
	}
	rsvps, err := s.store.Repos().RSVPs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	return rsvps, nil
}

// EventSummary returns an event with its accepted count and the viewer's own status
func (s *eventServiceImpl) EventSummary(ctx context.Context, eventID, viewerID int64) (*EventSummary, error) {
	repos := s.store.Repos()
	event, err := repos.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return summarize(ctx, repos, *event, viewerID)
}

// ListCommunityEvents returns the community's events, soonest first
func (s *eventServiceImpl) ListCommunityEvents(ctx context.Context, communityID, viewerID int64) ([]EventSummary, error) {
	repos := s.store.Repos()
	if _, err := repos.Communities.GetByID(ctx, communityID); err != nil {
		return nil, err
	}
	events, err := repos.Events.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	out := make([]EventSummary, 0, len(events))
	for _, e := range events {
		summary, err := summarize(ctx, repos, e, viewerID)
		if err != nil {
			return nil, err
		}
		out = append(out, *summary)
	}
	return out, nil
}

func summarize(ctx context.Context, repos *repositories.Repositories, event models.Event, viewerID int64) (*EventSummary, error) {
	accepted, err := repos.RSVPs.CountAccepted(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rsvps: %w", err)
	}
	summary := &EventSummary{Event: event, AcceptedCount: accepted}
	if viewerID > 0 {
		own, err := repos.RSVPs.Find(ctx, event.ID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rsvp: %w", err)
		}
		if own != nil {
			summary.ViewerStatus = &own.Status
		}
	}
	return summary, nil
}

// SearchEvents pages through the events the viewer may see: those of public
// communities and of the viewer's own communities
func (s *eventServiceImpl) SearchEvents(ctx context.Context, viewerID int64, params EventSearchParams, page, size int) ([]models.Event, error) {
	if err := auth.RequireUser(viewerID); err != nil {
		return nil, err
	}
	from, until, err := eventWindow(params.DateFilter, s.now().UTC(), params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}

	eventType := strings.TrimSpace(params.EventType)
	if strings.EqualFold(eventType, "all") {
		eventType = ""
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	events, err := s.store.Repos().Events.Search(ctx, models.EventSearch{
		ViewerID:  viewerID,
		Text:      strings.TrimSpace(params.Text),
		EventType: eventType,
		From:      from,
		Until:     until,
		Ordering:  models.ParseEventOrdering(params.Ordering),
	}, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	return events, nil
}

// eventWindow turns a named date filter into a [from, until) range relative
// to now. Weeks start on Monday.
func eventWindow(filter string, now time.Time, start, end *time.Time) (from, until *time.Time, err error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	week := day.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
	span := func(a, b time.Time) (*time.Time, *time.Time, error) { return &a, &b, nil }

	switch filter {
	case "":
		return nil, nil, nil
	case "upcoming":
		return &now, nil, nil
	case "past":
		return nil, &now, nil
	case "today":
		return span(day, day.AddDate(0, 0, 1))
	case "this_week":
		return span(week, week.AddDate(0, 0, 7))
	case "next_week":
		return span(week.AddDate(0, 0, 7), week.AddDate(0, 0, 14))
	case "this_month":
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return span(month, month.AddDate(0, 1, 0))
	case "custom":
		if start != nil {
			s := start.UTC()
			from = &s
		}
		if end != nil {
			e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
			until = &e
		}
		if from != nil && until != nil && !from.Before(*until) {
			return nil, nil, apperrors.NewBadRequestError("start date must not be after end date")
		}
		return from, until, nil
	default:
		return nil, nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown date filter %q", filter))
	}
}
