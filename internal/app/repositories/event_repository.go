package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/dberrors"
)

var eventColumns = []string{"id", "community_id", "event_name", "event_date", "location", "description", "event_type", "capacity", "created_at"}

// EventRepository handles database operations for events
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row pgx.Row, e *models.Event, extra ...any) error {
	dest := []any{&e.ID, &e.CommunityID, &e.Name, &e.Date, &e.Location, &e.Description, &e.EventType, &e.Capacity, &e.CreatedAt}
	return row.Scan(append(dest, extra...)...)
}

// Create inserts an event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) (int64, error) {
	query := squirrel.Insert("events").
		Columns("community_id", "event_name", "event_date", "location", "description", "event_type", "capacity").
		Values(event.CommunityID, event.Name, event.Date, event.Location, event.Description, event.EventType, event.Capacity).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&event.ID, &event.CreatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.ErrCommunityNotFound
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return event.ID, nil
}

func (r *EventRepository) getOne(ctx context.Context, id int64, suffix string) (*models.Event, error) {
	query := squirrel.Select(eventColumns...).
		From("events").
		Where("id = ?", id).
		Suffix(suffix).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var e models.Event
	if err := scanEvent(r.db.QueryRow(ctx, sql, args...), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return &e, nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	return r.getOne(ctx, id, "")
}

// LockByID retrieves an event holding its row lock, serializing capacity checks
func (r *EventRepository) LockByID(ctx context.Context, id int64) (*models.Event, error) {
	return r.getOne(ctx, id, "FOR UPDATE")
}

// ListByCommunity retrieves a community's events by date
func (r *EventRepository) ListByCommunity(ctx context.Context, communityID int64) ([]models.Event, error) {
	query := squirrel.Select(eventColumns...).
		From("events").
		Where("community_id = ?", communityID).
		OrderBy("event_date", "id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteByCommunity removes every event of a community; RSVPs must already be gone
func (r *EventRepository) DeleteByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("events").
		Where("community_id = ?", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

// RSVPRepository handles event RSVPs
type RSVPRepository struct {
	db DBTX
}

// NewRSVPRepository creates a new RSVPRepository
func NewRSVPRepository(db DBTX) *RSVPRepository {
	return &RSVPRepository{db: db}
}

// Find retrieves a user's RSVP for an event, nil when absent
func (r *RSVPRepository) Find(ctx context.Context, eventID, userID int64) (*models.RSVP, error) {
	query := squirrel.Select("id", "user_id", "event_id", "status", "updated_at").
		From("rsvps").
		Where("event_id = ? AND user_id = ?", eventID, userID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var rsvp models.RSVP
	err = r.db.QueryRow(ctx, sql, args...).Scan(&rsvp.ID, &rsvp.UserID, &rsvp.EventID, &rsvp.Status, &rsvp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return &rsvp, nil
}

// Upsert creates or updates the RSVP; created is true when a new row was inserted
func (r *RSVPRepository) Upsert(ctx context.Context, eventID, userID int64, status models.RSVPStatus) (*models.RSVP, bool, error) {
	const query = `
		INSERT INTO rsvps (user_id, event_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, event_id) DO UPDATE
			SET status = EXCLUDED.status, updated_at = NOW()
		RETURNING id, user_id, event_id, status, updated_at, (xmax = 0) AS inserted
	`

	var rsvp models.RSVP
	var created bool
	err := r.db.QueryRow(ctx, query, userID, eventID, status).
		Scan(&rsvp.ID, &rsvp.UserID, &rsvp.EventID, &rsvp.Status, &rsvp.UpdatedAt, &created)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return nil, false, apperrors.ErrEventNotFound
		}
		return nil, false, fmt.Errorf("error executing query: %w", err)
	}
	return &rsvp, created, nil
}

// CountAccepted counts Accepted RSVPs for an event
func (r *RSVPRepository) CountAccepted(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM rsvps WHERE event_id = $1 AND status = $2`,
		eventID, models.RSVPAccepted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return count, nil
}

// ListByUser retrieves a user's RSVPs with their events, soonest event first
func (r *RSVPRepository) ListByUser(ctx context.Context, userID int64) ([]models.RSVP, error) {
	cols := make([]string, 0, len(eventColumns)+5)
	for _, c := range eventColumns {
		cols = append(cols, "e."+c)
	}
	cols = append(cols, "r.id", "r.user_id", "r.event_id", "r.status", "r.updated_at")

	query := squirrel.Select(cols...).
		From("rsvps r").
		Join("events e ON e.id = r.event_id").
		Where("r.user_id = ?", userID).
		OrderBy("e.event_date", "e.id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	rsvps := []models.RSVP{}
	for rows.Next() {
		var e models.Event
		var rsvp models.RSVP
		if err := scanEvent(rows, &e, &rsvp.ID, &rsvp.UserID, &rsvp.EventID, &rsvp.Status, &rsvp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		rsvp.Event = &e
		rsvps = append(rsvps, rsvp)
	}
	return rsvps, rows.Err()
}

// DeleteByCommunity removes the RSVPs of every event in a community
func (r *RSVPRepository) DeleteByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("rsvps").
		Where("event_id IN (SELECT id FROM events WHERE community_id = ?)", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

var eventOrderings = map[models.EventOrdering]string{
	models.OrderEventDate:     "e.event_date ASC, e.id ASC",
	models.OrderEventDateDesc: "e.event_date DESC, e.id DESC",
	models.OrderEventName:     "e.event_name ASC, e.id ASC",
	models.OrderEventNameDesc: "e.event_name DESC, e.id DESC",
}

// Search pages through the events params.ViewerID may see
func (r *EventRepository) Search(ctx context.Context, params models.EventSearch, offset uint64, limit int) ([]models.Event, error) {
	order, ok := eventOrderings[params.Ordering]
	if !ok {
		order = eventOrderings[models.OrderEventDate]
	}

	cols := make([]string, 0, len(eventColumns))
	for _, c := range eventColumns {
		cols = append(cols, "e."+c)
	}

	query := squirrel.Select(cols...).
		From("events e").
		Join("communities c ON c.id = e.community_id").
		Where(squirrel.Or{
			squirrel.Eq{"c.privacy": models.PrivacyPublic},
			squirrel.Expr("EXISTS (SELECT 1 FROM memberships m WHERE m.community_id = e.community_id AND m.user_id = ?)", params.ViewerID),
		}).
		OrderBy(order).
		Offset(offset).
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	if params.Text != "" {
		pattern := "%" + escapeLike(params.Text) + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"e.event_name": pattern},
			squirrel.ILike{"e.description": pattern},
			squirrel.ILike{"e.location": pattern},
		})
	}
	if params.EventType != "" {
		query = query.Where("LOWER(e.event_type) = LOWER(?)", params.EventType)
	}
	if params.From != nil {
		query = query.Where(squirrel.GtOrEq{"e.event_date": *params.From})
	}
	if params.Until != nil {
		query = query.Where(squirrel.Lt{"e.event_date": *params.Until})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
