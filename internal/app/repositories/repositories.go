package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/db"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, so every
// repository runs unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IUserRepository defines the interface for user-related database operations
type IUserRepository interface {
	Create(ctx context.Context, user *models.User, passwordHash string) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, string, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	SetProfilePicture(ctx context.Context, userID int64, url *string) error
	ActivityCounts(ctx context.Context, userID int64) (models.ActivityCounts, error)

	// Interests
	AddInterests(ctx context.Context, userID int64, interests []string) error
	ListInterests(ctx context.Context, userID int64) ([]string, error)
	SuggestInterests(ctx context.Context, term string, limit int) ([]string, error)

	Search(ctx context.Context, params models.UserSearch, offset uint64, limit int) ([]models.User, error)
}

// IAchievementRepository defines the interface for profile achievements
type IAchievementRepository interface {
	Create(ctx context.Context, achievement *models.Achievement) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Achievement, error)
	// ListByUser orders by date achieved, newest first, undated last.
	ListByUser(ctx context.Context, userID int64) ([]models.Achievement, error)
	Delete(ctx context.Context, id int64) error
}

// ICommunityRepository defines the interface for community rows
type ICommunityRepository interface {
	Create(ctx context.Context, community *models.Community) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Community, error)
	// LockByID reads the community row with FOR UPDATE; only meaningful inside a transaction.
	LockByID(ctx context.Context, id int64) (*models.Community, error)
	GetGlobal(ctx context.Context) (*models.Community, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.Community, error)
	ListOwnedIDs(ctx context.Context, ownerID int64) ([]int64, error)
	SetOwner(ctx context.Context, communityID, ownerID int64) error
	Delete(ctx context.Context, id int64) error
}

// IKeywordRepository defines the interface for the keyword vocabulary and community links
type IKeywordRepository interface {
	// GetOrCreate expects normalized keywords.
	GetOrCreate(ctx context.Context, keywords []string) ([]models.Keyword, error)
	ReplaceLinks(ctx context.Context, communityID int64, keywordIDs []int64) error
	DeleteLinksByCommunity(ctx context.Context, communityID int64) (int64, error)
	ListByCommunities(ctx context.Context, communityIDs []int64) (map[int64][]string, error)
	IDsForCommunities(ctx context.Context, communityIDs []int64) ([]int64, error)
	LinksForKeywords(ctx context.Context, keywordIDs []int64) ([]models.KeywordLink, error)
	Suggest(ctx context.Context, term string, limit int) ([]string, error)
}

// IMembershipRepository defines the interface for the membership store
type IMembershipRepository interface {
	Get(ctx context.Context, communityID, userID int64) (*models.Membership, error)
	Create(ctx context.Context, membership *models.Membership) error
	UpdateRole(ctx context.Context, communityID, userID int64, role models.MembershipRole) error
	Delete(ctx context.Context, communityID, userID int64) error
	DeleteByCommunity(ctx context.Context, communityID int64) (int64, error)
	ListByCommunity(ctx context.Context, communityID int64) ([]models.Membership, error)
	ListCommunityIDsByUser(ctx context.Context, userID int64) ([]int64, error)
}

// IJoinRequestRepository defines the interface for pending join requests
type IJoinRequestRepository interface {
	Create(ctx context.Context, communityID, userID int64) (*models.JoinRequest, error)
	GetByID(ctx context.Context, id int64) (*models.JoinRequest, error)
	Find(ctx context.Context, communityID, userID int64) (*models.JoinRequest, error)
	Delete(ctx context.Context, id int64) error
	DeleteByCommunity(ctx context.Context, communityID int64) (int64, error)
	ListByCommunity(ctx context.Context, communityID int64) ([]models.JoinRequest, error)
}

// IPostRepository defines the interface for posts and their hashtags
type IPostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByCommunity(ctx context.Context, communityID int64, includeMembersOnly bool, offset uint64, limit int) ([]models.Post, error)
	// The feed lists below return members-only posts only where viewerID is a member.
	ListByAuthor(ctx context.Context, authorID, viewerID int64, offset uint64, limit int) ([]models.Post, error)
	ListByFollowed(ctx context.Context, viewerID int64, offset uint64, limit int) ([]models.Post, error)
	// ListByJoinedCommunities skips the Global community and the viewer's own posts.
	ListByJoinedCommunities(ctx context.Context, viewerID int64, offset uint64, limit int) ([]models.Post, error)
	ListByHashtag(ctx context.Context, hashtag string, viewerID int64, offset uint64, limit int) ([]models.Post, error)
	SetHashtags(ctx context.Context, postID int64, hashtags []string) error
	// DeleteUnusedHashtags removes the named hashtags that no post references any more.
	DeleteUnusedHashtags(ctx context.Context, hashtags []string) (int64, error)
	SuggestHashtags(ctx context.Context, term string, limit int) ([]models.Hashtag, error)
	Delete(ctx context.Context, id int64) error
	DeleteByCommunity(ctx context.Context, communityID int64) (int64, error)
}

// ILikeRepository defines the interface for post likes
type ILikeRepository interface {
	Add(ctx context.Context, postID, userID int64) error
	// Remove reports whether a like existed.
	Remove(ctx context.Context, postID, userID int64) (bool, error)
	Count(ctx context.Context, postID int64) (int, error)
	DeleteByPost(ctx context.Context, postID int64) (int64, error)
	DeleteByCommunity(ctx context.Context, communityID int64) (int64, error)
}

// ICommentRepository defines the interface for post comments
type ICommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) (int64, error)
	ListByPost(ctx context.Context, postID int64) ([]models.Comment, error)
	DeleteByPost(ctx context.Context, postID int64) (int64, error)
	DeleteByCommunity(ctx context.Context, communityID int64) (int64, error)
}

// IPinnedPostRepository defines the interface for the ordered pinned list
type IPinnedPostRepository interface {
	ListByCommunity(ctx context.Context, communityID int64) ([]models.PinnedPost, error)
	GetByPostID(ctx context.Context, postID int64) (*models.PinnedPost, error)
	Create(ctx context.Context, pin *models.PinnedPost) (int64, error)
	Delete(ctx context.Context, id int64) error
	// ShiftDownAfter decrements every order greater than order in the community.
	ShiftDownAfter(ctx context.Context, communityID int64, order int) error
	SetOrder(ctx context.Context, id int64, order int) error
	DeleteByCommunity(ctx context.Context, communityID int64) (int64, error)
}

// IFollowRepository defines the interface for the follow graph
type IFollowRepository interface {
	Create(ctx context.Context, followerID, followedID int64) error
	// Delete reports whether the edge existed.
	Delete(ctx context.Context, followerID, followedID int64) (bool, error)
	Exists(ctx context.Context, followerID, followedID int64) (bool, error)
	ListFollowingIDs(ctx context.Context, userID int64) ([]int64, error)
	ListFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
	// ListEdgesFrom returns every edge whose follower is in followerIDs.
	ListEdgesFrom(ctx context.Context, followerIDs []int64) ([]models.Follow, error)
}

// IEventRepository defines the interface for events
type IEventRepository interface {
	Create(ctx context.Context, event *models.Event) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	LockByID(ctx context.Context, id int64) (*models.Event, error)
	ListByCommunity(ctx context.Context, communityID int64) ([]models.Event, error)
	Search(ctx context.Context, params models.EventSearch, offset uint64, limit int) ([]models.Event, error)
	DeleteByCommunity(ctx context.Context, communityID int64) (int64, error)
}

// IRSVPRepository defines the interface for RSVPs
type IRSVPRepository interface {
	// Find returns nil without error when the user has not answered.
	Find(ctx context.Context, eventID, userID int64) (*models.RSVP, error)
	Upsert(ctx context.Context, eventID, userID int64, status models.RSVPStatus) (*models.RSVP, bool, error)
	CountAccepted(ctx context.Context, eventID int64) (int, error)
	ListByUser(ctx context.Context, userID int64) ([]models.RSVP, error)
	DeleteByCommunity(ctx context.Context, communityID int64) (int64, error)
}

// IAnnouncementRepository defines the interface for announcements
type IAnnouncementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) (int64, error)
	ListByCommunity(ctx context.Context, communityID int64) ([]models.Announcement, error)
	DeleteByCommunity(ctx context.Context, communityID int64) (int64, error)
}

// Repositories holds all the repository instances bound to one DBTX
type Repositories struct {
	Users         IUserRepository
	Communities   ICommunityRepository
	Keywords      IKeywordRepository
	Memberships   IMembershipRepository
	JoinRequests  IJoinRequestRepository
	Posts         IPostRepository
	Likes         ILikeRepository
	Comments      ICommentRepository
	PinnedPosts   IPinnedPostRepository
	Follows       IFollowRepository
	Events        IEventRepository
	RSVPs         IRSVPRepository
	Announcements IAnnouncementRepository
	Achievements  IAchievementRepository
}

// TxFn runs against repositories bound to an open transaction
type TxFn func(ctx context.Context, repos *Repositories) error

// Store hands out repositories and runs multi-step mutations atomically.
type Store interface {
	Repos() *Repositories
	WithTx(ctx context.Context, fn TxFn) error
}

// NewRepositories initializes all repositories over db
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		Communities:   NewCommunityRepository(db),
		Keywords:      NewKeywordRepository(db),
		Memberships:   NewMembershipRepository(db),
		JoinRequests:  NewJoinRequestRepository(db),
		Posts:         NewPostRepository(db),
		Likes:         NewLikeRepository(db),
		Comments:      NewCommentRepository(db),
		PinnedPosts:   NewPinnedPostRepository(db),
		Follows:       NewFollowRepository(db),
		Events:        NewEventRepository(db),
		RSVPs:         NewRSVPRepository(db),
		Announcements: NewAnnouncementRepository(db),
		Achievements:  NewAchievementRepository(db),
	}
}

// PostgresStore is the pgx-backed Store
type PostgresStore struct {
	db    *db.PostgresDB
	repos *Repositories
}

// NewPostgresStore creates a Store over the connection pool
func NewPostgresStore(database *db.PostgresDB) *PostgresStore {
	return &PostgresStore{
		db:    database,
		repos: NewRepositories(database.Pool),
	}
}

// Repos returns pool-bound repositories
func (s *PostgresStore) Repos() *Repositories {
	return s.repos
}

// WithTx runs fn with repositories bound to a single transaction
func (s *PostgresStore) WithTx(ctx context.Context, fn TxFn) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}
