package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/auth"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/email"
)

// AnnouncementService defines staff broadcasts to a community
type AnnouncementService interface {
	CreateAnnouncement(ctx context.Context, communityID, actorID int64, title, content string) (*models.Announcement, error)
	ListAnnouncements(ctx context.Context, communityID int64) ([]models.Announcement, error)
}

type announcementServiceImpl struct {
	store  repositories.Store
	notify notifier
	feed   Feed
	logger zerolog.Logger
}

// NewAnnouncementService creates a new AnnouncementService. queue and feed may be nil.
func NewAnnouncementService(store repositories.Store, queue email.Queue, feed Feed, logger zerolog.Logger) AnnouncementService {
	logger = logger.With().Str("service", "announcements").Logger()
	return &announcementServiceImpl{
		store:  store,
		notify: notifier{queue: queue, logger: logger},
		feed:   feed,
		logger: logger,
	}
}

// CreateAnnouncement posts an announcement and notifies every other member
func (s *announcementServiceImpl) CreateAnnouncement(ctx context.Context, communityID, actorID int64, title, content string) (*models.Announcement, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}
	title, err := requiredText("title", title)
	if err != nil {
		return nil, err
	}
	content, err = requiredText("content", content)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	community, err := repos.Communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if _, err := auth.RequireStaff(ctx, repos, communityID, actorID); err != nil {
		return nil, err
	}

	announcement := &models.Announcement{CommunityID: communityID, Title: title, Content: content, CreatedBy: actorID}
	if _, err := repos.Announcements.Create(ctx, announcement); err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}

	s.logger.Info().Int64("communityID", communityID).Int64("userID", actorID).Int64("announcementID", announcement.ID).Msg("Announcement created")
	publish(s.feed, communityID, FeedAnnouncementCreated, announcement)
	s.broadcast(ctx, community, announcement)
	return announcement, nil
}

func (s *announcementServiceImpl) broadcast(ctx context.Context, community *models.Community, a *models.Announcement) {
	repos := s.store.Repos()
	members, err := repos.Memberships.ListByCommunity(ctx, community.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("communityID", community.ID).Msg("Failed to load members for announcement")
		return
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if m.UserID != a.CreatedBy {
			ids = append(ids, m.UserID)
		}
	}
	ids = append(ids, a.CreatedBy)
	users, err := usersByID(ctx, repos.Users.ListByIDs, ids)
	if err != nil {
		s.logger.Error().Err(err).Int64("communityID", community.ID).Msg("Failed to load members for announcement")
		return
	}

	author := users[a.CreatedBy]
	msg := email.Notification{
		Template:      email.TemplateAnnouncement,
		ActorName:     author.FullName(),
		CommunityName: community.Name,
		Title:         a.Title,
		Content:       a.Content,
	}
	for _, id := range ids[:len(ids)-1] {
		if u, ok := users[id]; ok {
			s.notify.send(&u, msg)
		}
	}
}

// ListAnnouncements returns a community's announcements, newest first
func (s *announcementServiceImpl) ListAnnouncements(ctx context.Context, communityID int64) ([]models.Announcement, error) {
	repos := s.store.Repos()
	if _, err := repos.Communities.GetByID(ctx, communityID); err != nil {
		return nil, err
	}
	out, err := repos.Announcements.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return out, nil
}
