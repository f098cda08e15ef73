package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/testutil/memstore"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	t     *testing.T
	Store *memstore.Store
	seq   int
}

// NewFixtures creates a Fixtures over a fresh in-memory store.
func NewFixtures(t *testing.T) *Fixtures {
	t.Helper()
	return &Fixtures{t: t, Store: memstore.New()}
}

// Repos returns non-transactional repositories for direct access in tests.
func (f *Fixtures) Repos() *repositories.Repositories {
	return f.Store.Repos()
}

// Logger returns a logger that discards output unless -v is set.
func Logger(t *testing.T) zerolog.Logger {
	if testing.Verbose() {
		return zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	}
	return zerolog.Nop()
}

// CreateUser creates a test user with a unique email.
func (f *Fixtures) CreateUser(firstName string) models.User {
	f.t.Helper()

	f.seq++
	user := models.User{
		Email:     fmt.Sprintf("%s.%d@uni.test", firstName, f.seq),
		FirstName: firstName,
		LastName:  "Test",
	}
	if _, err := f.Repos().Users.Create(context.Background(), &user, "hash"); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateCommunity creates an owned community with its Leader membership and keywords.
func (f *Fixtures) CreateCommunity(owner int64, name string, privacy models.Privacy, keywords ...string) models.Community {
	f.t.Helper()

	ctx := context.Background()
	c := models.Community{Name: name, Privacy: privacy, Kind: models.OwnedBy(owner)}
	err := f.Store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Communities.Create(ctx, &c); err != nil {
			return err
		}
		if err := repos.Memberships.Create(ctx, &models.Membership{UserID: owner, CommunityID: c.ID, Role: models.RoleLeader}); err != nil {
			return err
		}
		kws, err := repos.Keywords.GetOrCreate(ctx, models.NormalizeTags(keywords))
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(kws))
		for _, k := range kws {
			ids = append(ids, k.ID)
			c.Keywords = append(c.Keywords, k.Keyword)
		}
		return repos.Keywords.ReplaceLinks(ctx, c.ID, ids)
	})
	if err != nil {
		f.t.Fatalf("failed to create test community: %v", err)
	}
	return c
}

// CreateGlobalCommunity creates the Global feed community.
func (f *Fixtures) CreateGlobalCommunity() models.Community {
	f.t.Helper()

	c := models.Community{Name: models.GlobalCommunityName, Privacy: models.PrivacyPublic, Kind: models.GlobalKind()}
	if _, err := f.Repos().Communities.Create(context.Background(), &c); err != nil {
		f.t.Fatalf("failed to create global community: %v", err)
	}
	return c
}

// AddMember adds userID to a community with role.
func (f *Fixtures) AddMember(communityID, userID int64, role models.MembershipRole) {
	f.t.Helper()

	m := models.Membership{UserID: userID, CommunityID: communityID, Role: role}
	if err := f.Repos().Memberships.Create(context.Background(), &m); err != nil {
		f.t.Fatalf("failed to add member: %v", err)
	}
}

// CreatePost creates a post by userID in a community.
func (f *Fixtures) CreatePost(communityID, userID int64, text string) models.Post {
	f.t.Helper()

	p := models.Post{CommunityID: communityID, UserID: userID, Text: &text}
	if _, err := f.Repos().Posts.Create(context.Background(), &p); err != nil {
		f.t.Fatalf("failed to create post: %v", err)
	}
	return p
}

// Like records a like on a post.
func (f *Fixtures) Like(postID, userID int64) {
	f.t.Helper()

	if err := f.Repos().Likes.Add(context.Background(), postID, userID); err != nil {
		f.t.Fatalf("failed to like post: %v", err)
	}
}

// Comment adds a comment to a post.
func (f *Fixtures) Comment(postID, userID int64, text string) {
	f.t.Helper()

	c := models.Comment{PostID: postID, UserID: userID, Text: text}
	if _, err := f.Repos().Comments.Create(context.Background(), &c); err != nil {
		f.t.Fatalf("failed to comment: %v", err)
	}
}

// Follow creates the edge follower -> followed.
func (f *Fixtures) Follow(followerID, followedID int64) {
	f.t.Helper()

	if err := f.Repos().Follows.Create(context.Background(), followerID, followedID); err != nil {
		f.t.Fatalf("failed to follow: %v", err)
	}
}

// CreateEvent creates an event; capacity < 0 means unbounded.
func (f *Fixtures) CreateEvent(communityID int64, name string, capacity int) models.Event {
	f.t.Helper()

	e := models.Event{CommunityID: communityID, Name: name, Date: time.Now().Add(72 * time.Hour).UTC()}
	if capacity >= 0 {
		e.Capacity = &capacity
	}
	if _, err := f.Repos().Events.Create(context.Background(), &e); err != nil {
		f.t.Fatalf("failed to create event: %v", err)
	}
	return e
}

// RSVP sets a user's RSVP directly, bypassing admission checks.
func (f *Fixtures) RSVP(eventID, userID int64, status models.RSVPStatus) {
	f.t.Helper()

	if _, _, err := f.Repos().RSVPs.Upsert(context.Background(), eventID, userID, status); err != nil {
		f.t.Fatalf("failed to rsvp: %v", err)
	}
}
