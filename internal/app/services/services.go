// Package services implements UniHub's business operations. Every
// operation takes the acting user explicitly (0 for anonymous) and returns
// models or apperrors kinds; nothing here depends on HTTP.
//
// Multi-step mutations run inside Store.WithTx and only use the
// transaction-bound repositories handed to the callback. Notifications are
// queued after the transaction commits.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/email"
)

// notifier queues best-effort notifications; a nil queue disables them.
type notifier struct {
	queue  email.Queue
	logger zerolog.Logger
}

func (n notifier) send(to *models.User, msg email.Notification) {
	if n.queue == nil || to == nil || to.Email == "" {
		return
	}
	if !n.queue.Enqueue(email.Recipient{Email: to.Email, Name: to.FullName()}, msg) {
		n.logger.Warn().
			Int64("userID", to.ID).
			Str("template", string(msg.Template)).
			Msg("notification not queued")
	}
}

// Feed pushes live updates to clients subscribed to a community. Evict
// disconnects a user's subscriptions, or every subscription when userID is 0.
type Feed interface {
	Publish(communityID int64, kind string, payload any)
	Evict(communityID, userID int64)
}

// Live update kinds
const (
	FeedPinAdded            = "pin.added"
	FeedPinRemoved          = "pin.removed"
	FeedPinsReordered       = "pins.reordered"
	FeedAnnouncementCreated = "announcement.created"
)

func publish(feed Feed, communityID int64, kind string, payload any) {
	if feed != nil {
		feed.Publish(communityID, kind, payload)
	}
}

func evict(feed Feed, communityID, userID int64) {
	if feed != nil {
		feed.Evict(communityID, userID)
	}
}

// usersByID loads users and indexes them by id
func usersByID(ctx context.Context, list func(context.Context, []int64) ([]models.User, error), ids []int64) (map[int64]models.User, error) {
	out := make(map[int64]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := list(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// requiredText trims s and rejects it when empty.
func requiredText(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperrors.NewBadRequestError(field + " is required")
	}
	return s, nil
}

// optionalText trims s and maps blank to nil.
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
