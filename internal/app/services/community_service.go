package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/auth"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/email"
)

// CreateCommunityParams holds the fields of a new community
type CreateCommunityParams struct {
	Name        string
	Description *string
	Rules       *string
	Privacy     string
	Keywords    []string
}

// Member is a membership joined with its user
type Member struct {
	models.Membership
	User models.User `json:"user"`
}

// PendingRequest is a join request joined with the requesting user
type PendingRequest struct {
	models.JoinRequest
	User models.User `json:"user"`
}

// CommunityDetail is a community as seen by one viewer
type CommunityDetail struct {
	Community    models.Community       `json:"community"`
	OwnerID      *int64                 `json:"ownerId,omitempty"`
	IsGlobal     bool                   `json:"isGlobal"`
	MemberCount  int                    `json:"memberCount"`
	ViewerRole   *models.MembershipRole `json:"viewerRole,omitempty"`
	HasRequested bool                   `json:"hasRequested"`
}

// CommunityService defines the community lifecycle operations
type CommunityService interface {
	Create(ctx context.Context, actorID int64, params CreateCommunityParams) (*models.Community, error)
	Get(ctx context.Context, communityID, viewerID int64) (*CommunityDetail, error)
	UpdateKeywords(ctx context.Context, communityID, actorID int64, keywords []string) (*models.Community, error)
	Delete(ctx context.Context, communityID, actorID int64) error
	TransferOwnership(ctx context.Context, communityID, actorID, newOwnerID int64) error
	UpdateRole(ctx context.Context, communityID, actorID, targetID int64, role string) error

	Join(ctx context.Context, communityID, actorID int64) error
	Leave(ctx context.Context, communityID, actorID int64) error
	RequestJoin(ctx context.Context, communityID, actorID int64) (*models.JoinRequest, error)
	CancelRequest(ctx context.Context, communityID, actorID int64) error
	ApproveRequest(ctx context.Context, requestID, actorID int64) error
	DenyRequest(ctx context.Context, requestID, actorID int64) error

	ListMembers(ctx context.Context, communityID int64) ([]Member, error)
	ListJoinRequests(ctx context.Context, communityID, actorID int64) ([]PendingRequest, error)
	ListUserCommunities(ctx context.Context, userID int64) ([]models.Community, error)
	SuggestKeywords(ctx context.Context, term string) ([]string, error)

	AuthorizeFeed(ctx context.Context, communityID, userID int64) error
}

// communityServiceImpl implements CommunityService
type communityServiceImpl struct {
	store  repositories.Store
	notify notifier
	feed   Feed
	logger zerolog.Logger
}

// NewCommunityService creates a new CommunityService. feed may be nil.
func NewCommunityService(store repositories.Store, queue email.Queue, feed Feed, logger zerolog.Logger) CommunityService {
	logger = logger.With().Str("service", "community").Logger()
	return &communityServiceImpl{
		store:  store,
		notify: notifier{queue: queue, logger: logger},
		feed:   feed,
		logger: logger,
	}
}

// Create creates a community with the actor as its Leader
func (s *communityServiceImpl) Create(ctx context.Context, actorID int64, params CreateCommunityParams) (*models.Community, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}
	name, err := requiredText("name", params.Name)
	if err != nil {
		return nil, err
	}
	privacy, err := models.ParsePrivacy(params.Privacy)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	community := &models.Community{
		Name:        name,
		Description: optionalText(params.Description),
		Rules:       optionalText(params.Rules),
		Privacy:     privacy,
		Kind:        models.OwnedBy(actorID),
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Communities.Create(ctx, community); err != nil {
			return fmt.Errorf("failed to create community: %w", err)
		}
		leader := &models.Membership{UserID: actorID, CommunityID: community.ID, Role: models.RoleLeader}
		if err := repos.Memberships.Create(ctx, leader); err != nil {
			return fmt.Errorf("failed to create leader membership: %w", err)
		}
		keywords, err := replaceKeywords(ctx, repos, community.ID, params.Keywords)
		if err != nil {
			return err
		}
		community.Keywords = keywords
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("communityID", community.ID).Int64("userID", actorID).Msg("Community created")
	return community, nil
}

// replaceKeywords normalizes raw, get-or-creates the vocabulary entries and
// replaces the community's links. It returns the stored keywords.
func replaceKeywords(ctx context.Context, repos *repositories.Repositories, communityID int64, raw []string) ([]string, error) {
	normalized := models.NormalizeTags(raw)
	keywords, err := repos.Keywords.GetOrCreate(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to store keywords: %w", err)
	}

	ids := make([]int64, 0, len(keywords))
	names := make([]string, 0, len(keywords))
	for _, k := range keywords {
		ids = append(ids, k.ID)
		names = append(names, k.Keyword)
	}
	if err := repos.Keywords.ReplaceLinks(ctx, communityID, ids); err != nil {
		return nil, fmt.Errorf("failed to link keywords: %w", err)
	}
	return names, nil
}

// Get returns a community with its keywords and the viewer's standing
func (s *communityServiceImpl) Get(ctx context.Context, communityID, viewerID int64) (*CommunityDetail, error) {
	repos := s.store.Repos()

	community, err := repos.Communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	keywords, err := repos.Keywords.ListByCommunities(ctx, []int64{communityID})
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords: %w", err)
	}
	community.Keywords = keywords[communityID]

	members, err := repos.Memberships.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	detail := &CommunityDetail{
		Community:   *community,
		IsGlobal:    community.Kind.IsGlobal(),
		MemberCount: len(members),
	}
	if owner, ok := community.Kind.Owner(); ok {
		detail.OwnerID = &owner
	}

	if viewerID > 0 {
		for _, m := range members {
			if m.UserID == viewerID {
				role := m.Role
				detail.ViewerRole = &role
				break
			}
		}
		if detail.ViewerRole == nil && community.IsPrivate() {
			_, err := repos.JoinRequests.Find(ctx, communityID, viewerID)
			switch {
			case err == nil:
				detail.HasRequested = true
			case !errors.Is(err, apperrors.ErrNotFound):
				return nil, fmt.Errorf("failed to load join request: %w", err)
			}
		}
	}
	return detail, nil
}

// UpdateKeywords replaces the community's keywords. Owner only.
func (s *communityServiceImpl) UpdateKeywords(ctx context.Context, communityID, actorID int64, keywords []string) (*models.Community, error) {
	var community *models.Community
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		c, err := auth.LoadOwnedCommunity(ctx, repos, communityID, actorID)
		if err != nil {
			return err
		}
		names, err := replaceKeywords(ctx, repos, communityID, keywords)
		if err != nil {
			return err
		}
		c.Keywords = names
		community = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return community, nil
}

// Delete removes a community and everything hanging off it. Owner only.
//
// Children are removed in a fixed order so that no step references a row a
// previous step already dropped: likes, comments, pinned posts, posts,
// RSVPs, events, announcements, join requests, memberships, keyword links,
// then the community.
func (s *communityServiceImpl) Delete(ctx context.Context, communityID, actorID int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := auth.LoadOwnedCommunity(ctx, repos, communityID, actorID); err != nil {
			return err
		}

		steps := []struct {
			name string
			fn   func(context.Context, int64) (int64, error)
		}{
			{"likes", repos.Likes.DeleteByCommunity},
			{"comments", repos.Comments.DeleteByCommunity},
			{"pinned posts", repos.PinnedPosts.DeleteByCommunity},
			{"posts", repos.Posts.DeleteByCommunity},
			{"rsvps", repos.RSVPs.DeleteByCommunity},
			{"events", repos.Events.DeleteByCommunity},
			{"announcements", repos.Announcements.DeleteByCommunity},
			{"join requests", repos.JoinRequests.DeleteByCommunity},
			{"memberships", repos.Memberships.DeleteByCommunity},
			{"keyword links", repos.Keywords.DeleteLinksByCommunity},
		}
		for _, step := range steps {
			n, err := step.fn(ctx, communityID)
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", step.name, err)
			}
			s.logger.Debug().Int64("communityID", communityID).Int64("rows", n).Msgf("Deleted %s", step.name)
		}

		if err := repos.Communities.Delete(ctx, communityID); err != nil {
			return fmt.Errorf("failed to delete community: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindInternal {
			s.logger.Error().Err(err).Int64("communityID", communityID).Msg("Community deletion rolled back")
		}
		return err
	}

	evict(s.feed, communityID, 0)
	s.logger.Info().Int64("communityID", communityID).Int64("userID", actorID).Msg("Community deleted")
	return nil
}

// TransferOwnership makes newOwnerID the Leader and demotes the actor to
// Member. Owner only; the new owner must already be a member.
func (s *communityServiceImpl) TransferOwnership(ctx context.Context, communityID, actorID, newOwnerID int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := auth.LoadOwnedCommunity(ctx, repos, communityID, actorID); err != nil {
			return err
		}
		if newOwnerID == actorID {
			return apperrors.NewBadRequestError("you already own this community")
		}

		exists, err := repos.Users.Exists(ctx, newOwnerID)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return apperrors.ErrUserNotFound
		}

		member, err := auth.IsMember(ctx, repos, communityID, newOwnerID)
		if err != nil {
			return err
		}
		if !member {
			return apperrors.NewBadRequestError("the new owner must be a member of the community")
		}

		if err := repos.Memberships.UpdateRole(ctx, communityID, actorID, models.RoleMember); err != nil {
			return fmt.Errorf("failed to demote previous owner: %w", err)
		}
		if err := repos.Memberships.UpdateRole(ctx, communityID, newOwnerID, models.RoleLeader); err != nil {
			return fmt.Errorf("failed to promote new owner: %w", err)
		}
		if err := repos.Communities.SetOwner(ctx, communityID, newOwnerID); err != nil {
			return fmt.Errorf("failed to set owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Int64("communityID", communityID).
		Int64("fromUserID", actorID).
		Int64("toUserID", newOwnerID).
		Msg("Community ownership transferred")
	return nil
}

// UpdateRole changes a member's role. Owner only. Leader cannot be granted
// here and the owner's own role cannot be changed; both go through
// TransferOwnership.
func (s *communityServiceImpl) UpdateRole(ctx context.Context, communityID, actorID, targetID int64, role string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := auth.LoadOwnedCommunity(ctx, repos, communityID, actorID); err != nil {
			return err
		}

		newRole, err := models.ParseMembershipRole(role)
		if err != nil {
			return apperrors.ErrInvalidRole
		}
		if newRole == models.RoleLeader {
			return apperrors.NewBadRequestError("use ownership transfer to assign the Leader role")
		}

		target, err := repos.Memberships.Get(ctx, communityID, targetID)
		if err != nil {
			return err
		}
		if target.Role == models.RoleLeader {
			return apperrors.NewBadRequestError("the Leader's role can only change through ownership transfer")
		}

		if err := repos.Memberships.UpdateRole(ctx, communityID, targetID, newRole); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		return nil
	})
}

// Join adds the actor to a public community
func (s *communityServiceImpl) Join(ctx context.Context, communityID, actorID int64) error {
	if err := auth.RequireUser(actorID); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		community, err := repos.Communities.LockByID(ctx, communityID)
		if err != nil {
			return err
		}
		member, err := auth.IsMember(ctx, repos, communityID, actorID)
		if err != nil {
			return err
		}
		if member {
			return apperrors.ErrAlreadyMember
		}
		if community.IsPrivate() {
			return apperrors.NewForbiddenError("this community is private; send a join request instead")
		}
		return repos.Memberships.Create(ctx, &models.Membership{UserID: actorID, CommunityID: communityID, Role: models.RoleMember})
	})
}

// Leave removes the actor from a community. The Leader must transfer
// ownership first and nobody leaves the Global community.
func (s *communityServiceImpl) Leave(ctx context.Context, communityID, actorID int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		community, err := repos.Communities.LockByID(ctx, communityID)
		if err != nil {
			return err
		}
		if community.Kind.IsGlobal() {
			return apperrors.ErrGlobalCommunity
		}

		m, err := repos.Memberships.Get(ctx, communityID, actorID)
		if err != nil {
			return err
		}
		if m.Role == models.RoleLeader {
			return apperrors.NewForbiddenError("the Leader must transfer ownership before leaving")
		}
		return repos.Memberships.Delete(ctx, communityID, actorID)
	})
	if err != nil {
		return err
	}

	evict(s.feed, communityID, actorID)
	return nil
}

// RequestJoin queues a request to join a private community
func (s *communityServiceImpl) RequestJoin(ctx context.Context, communityID, actorID int64) (*models.JoinRequest, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}

	var req *models.JoinRequest
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		community, err := repos.Communities.LockByID(ctx, communityID)
		if err != nil {
			return err
		}
		if !community.IsPrivate() {
			return apperrors.NewBadRequestError("this community is public; join it directly")
		}
		member, err := auth.IsMember(ctx, repos, communityID, actorID)
		if err != nil {
			return err
		}
		if member {
			return apperrors.ErrAlreadyMember
		}

		req, err = repos.JoinRequests.Create(ctx, communityID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CancelRequest withdraws the actor's pending request
func (s *communityServiceImpl) CancelRequest(ctx context.Context, communityID, actorID int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		req, err := repos.JoinRequests.Find(ctx, communityID, actorID)
		if err != nil {
			return err
		}
		return repos.JoinRequests.Delete(ctx, req.ID)
	})
}

// ApproveRequest turns a pending request into a membership. Owner only.
func (s *communityServiceImpl) ApproveRequest(ctx context.Context, requestID, actorID int64) error {
	var (
		req       *models.JoinRequest
		community *models.Community
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		if req, err = repos.JoinRequests.GetByID(ctx, requestID); err != nil {
			return err
		}
		if community, err = auth.LoadOwnedCommunity(ctx, repos, req.CommunityID, actorID); err != nil {
			return err
		}

		m := &models.Membership{UserID: req.UserID, CommunityID: req.CommunityID, Role: models.RoleMember}
		if err := repos.Memberships.Create(ctx, m); err != nil && !errors.Is(err, apperrors.ErrAlreadyMember) {
			return fmt.Errorf("failed to create membership: %w", err)
		}
		return repos.JoinRequests.Delete(ctx, req.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("communityID", req.CommunityID).Int64("userID", req.UserID).Msg("Join request approved")

	requester, err := s.store.Repos().Users.GetByID(ctx, req.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", req.UserID).Msg("Failed to load requester for notification")
		return nil
	}
	s.notify.send(requester, email.Notification{
		Template:      email.TemplateJoinApproved,
		CommunityName: community.Name,
	})
	return nil
}

// DenyRequest drops a pending request. Owner only.
func (s *communityServiceImpl) DenyRequest(ctx context.Context, requestID, actorID int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		req, err := repos.JoinRequests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if _, err := auth.LoadOwnedCommunity(ctx, repos, req.CommunityID, actorID); err != nil {
			return err
		}
		return repos.JoinRequests.Delete(ctx, req.ID)
	})
}

// AuthorizeFeed checks that userID may subscribe to the community's live
// updates: any signed-in user for Global, members otherwise.
func (s *communityServiceImpl) AuthorizeFeed(ctx context.Context, communityID, userID int64) error {
	if err := auth.RequireUser(userID); err != nil {
		return err
	}
	repos := s.store.Repos()
	community, err := repos.Communities.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if community.Kind.IsGlobal() {
		return nil
	}
	_, err = auth.RequireMember(ctx, repos, communityID, userID)
	return err
}

// ListMembers returns the community's members with their profiles
func (s *communityServiceImpl) ListMembers(ctx context.Context, communityID int64) ([]Member, error) {
	repos := s.store.Repos()
	if _, err := repos.Communities.GetByID(ctx, communityID); err != nil {
		return nil, err
	}

	memberships, err := repos.Memberships.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	ids := make([]int64, len(memberships))
	for i, m := range memberships {
		ids[i] = m.UserID
	}
	users, err := usersByID(ctx, repos.Users.ListByIDs, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	out := make([]Member, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, Member{Membership: m, User: users[m.UserID]})
	}
	return out, nil
}

// ListJoinRequests returns pending requests. Owner only.
func (s *communityServiceImpl) ListJoinRequests(ctx context.Context, communityID, actorID int64) ([]PendingRequest, error) {
	repos := s.store.Repos()
	community, err := repos.Communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(community, actorID); err != nil {
		return nil, err
	}

	requests, err := repos.JoinRequests.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	ids := make([]int64, len(requests))
	for i, r := range requests {
		ids[i] = r.UserID
	}
	users, err := usersByID(ctx, repos.Users.ListByIDs, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load requesters: %w", err)
	}

	out := make([]PendingRequest, 0, len(requests))
	for _, r := range requests {
		out = append(out, PendingRequest{JoinRequest: r, User: users[r.UserID]})
	}
	return out, nil
}

// ListUserCommunities returns the communities userID belongs to
func (s *communityServiceImpl) ListUserCommunities(ctx context.Context, userID int64) ([]models.Community, error) {
	repos := s.store.Repos()

	ids, err := repos.Memberships.ListCommunityIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user communities: %w", err)
	}
	if len(ids) == 0 {
		return []models.Community{}, nil
	}

	communities, err := repos.Communities.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load communities: %w", err)
	}
	keywords, err := repos.Keywords.ListByCommunities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords: %w", err)
	}
	for i := range communities {
		communities[i].Keywords = keywords[communities[i].ID]
	}
	return communities, nil
}

// SuggestKeywords returns up to suggestionLimit keywords matching term
func (s *communityServiceImpl) SuggestKeywords(ctx context.Context, term string) ([]string, error) {
	term, ok := suggestionTerm(term)
	if !ok {
		return []string{}, nil
	}
	out, err := s.store.Repos().Keywords.Suggest(ctx, term, suggestionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest keywords: %w", err)
	}
	return out, nil
}
