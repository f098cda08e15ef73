// Package memstore is an in-memory repositories.Store for service tests.
// Transactions hold the store lock for their whole duration and restore a
// snapshot on error, so a failed mutation leaves no trace.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
)

type pair struct{ a, b int64 }

type userRow struct {
	user models.User
	hash string
}

type state struct {
	nextID int64

	users         map[int64]userRow
	interests     map[string]int64
	userInterests map[int64]map[string]struct{}

	communities       map[int64]models.Community
	keywords          map[string]int64
	keywordNames      map[int64]string
	communityKeywords map[int64]map[int64]struct{}

	memberships  map[pair]models.Membership // {community, user}
	joinRequests map[int64]models.JoinRequest

	posts    map[int64]models.Post
	hashtags map[string]int64
	likes    map[pair]time.Time // {post, user}
	comments map[int64]models.Comment
	pins     map[int64]models.PinnedPost

	follows map[pair]time.Time // {follower, followed}

	events        map[int64]models.Event
	rsvps         map[int64]models.RSVP
	announcements map[int64]models.Announcement
	achievements  map[int64]models.Achievement
}

func newState() *state {
	return &state{
		users:             map[int64]userRow{},
		interests:         map[string]int64{},
		userInterests:     map[int64]map[string]struct{}{},
		communities:       map[int64]models.Community{},
		keywords:          map[string]int64{},
		keywordNames:      map[int64]string{},
		communityKeywords: map[int64]map[int64]struct{}{},
		memberships:       map[pair]models.Membership{},
		joinRequests:      map[int64]models.JoinRequest{},
		posts:             map[int64]models.Post{},
		hashtags:          map[string]int64{},
		likes:             map[pair]time.Time{},
		comments:          map[int64]models.Comment{},
		pins:              map[int64]models.PinnedPost{},
		follows:           map[pair]time.Time{},
		events:            map[int64]models.Event{},
		rsvps:             map[int64]models.RSVP{},
		announcements:     map[int64]models.Announcement{},
		achievements:      map[int64]models.Achievement{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySetMap[K comparable, E comparable](m map[K]map[E]struct{}) map[K]map[E]struct{} {
	out := make(map[K]map[E]struct{}, len(m))
	for k, set := range m {
		out[k] = copyMap(set)
	}
	return out
}

func (s *state) clone() *state {
	c := *s
	c.users = copyMap(s.users)
	c.interests = copyMap(s.interests)
	c.userInterests = copySetMap(s.userInterests)
	c.communities = copyMap(s.communities)
	c.keywords = copyMap(s.keywords)
	c.keywordNames = copyMap(s.keywordNames)
	c.communityKeywords = copySetMap(s.communityKeywords)
	c.memberships = copyMap(s.memberships)
	c.joinRequests = copyMap(s.joinRequests)
	c.posts = copyMap(s.posts)
	c.hashtags = copyMap(s.hashtags)
	c.likes = copyMap(s.likes)
	c.comments = copyMap(s.comments)
	c.pins = copyMap(s.pins)
	c.follows = copyMap(s.follows)
	c.events = copyMap(s.events)
	c.rsvps = copyMap(s.rsvps)
	c.announcements = copyMap(s.announcements)
	c.achievements = copyMap(s.achievements)
	return &c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// checkDeferred mirrors the constraints postgres checks at commit.
func (s *state) checkDeferred() error {
	seen := map[pair]int64{}
	for _, p := range s.pins {
		key := pair{p.CommunityID, int64(p.Order)}
		if other, ok := seen[key]; ok {
			return fmt.Errorf("duplicate pinned order %d in community %d (pins %d and %d)", p.Order, p.CommunityID, other, p.ID)
		}
		seen[key] = p.ID
	}
	return nil
}

// Store implements repositories.Store in memory.
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
	now      func() time.Time
}

var _ repositories.Store = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{
		st:       newState(),
		failures: map[string]error{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FailOn makes every later call of op return err. op is "<Repo>.<Method>",
// e.g. "Posts.DeleteByCommunity". A nil err clears the injection.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Repos returns repositories that lock per call
func (s *Store) Repos() *repositories.Repositories {
	return s.repos(false)
}

// WithTx runs fn holding the store lock and rolls back on error or panic
func (s *Store) WithTx(ctx context.Context, fn repositories.TxFn) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if r := recover(); r != nil {
			s.st = snapshot
			panic(r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx, s.repos(true)); err != nil {
		s.st = snapshot
		return err
	}
	if err := s.st.checkDeferred(); err != nil {
		s.st = snapshot
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of rows in a logical table, for assertions
func (s *Store) Count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch table {
	case "users":
		return len(s.st.users)
	case "communities":
		return len(s.st.communities)
	case "community_keywords":
		n := 0
		for _, set := range s.st.communityKeywords {
			n += len(set)
		}
		return n
	case "memberships":
		return len(s.st.memberships)
	case "join_requests":
		return len(s.st.joinRequests)
	case "posts":
		return len(s.st.posts)
	case "hashtags":
		return len(s.st.hashtags)
	case "post_likes":
		return len(s.st.likes)
	case "comments":
		return len(s.st.comments)
	case "pinned_posts":
		return len(s.st.pins)
	case "follows":
		return len(s.st.follows)
	case "events":
		return len(s.st.events)
	case "rsvps":
		return len(s.st.rsvps)
	case "announcements":
		return len(s.st.announcements)
	case "achievements":
		return len(s.st.achievements)
	default:
		panic("memstore: unknown table " + table)
	}
}

type handle struct {
	s    *Store
	inTx bool
}

func (h handle) run(op string, fn func(st *state) error) error {
	if !h.inTx {
		h.s.mu.Lock()
		defer h.s.mu.Unlock()
	}
	if err, ok := h.s.failures[op]; ok {
		return err
	}
	return fn(h.s.st)
}

func (s *Store) repos(inTx bool) *repositories.Repositories {
	h := handle{s: s, inTx: inTx}
	return &repositories.Repositories{
		Users:         userRepo{h},
		Communities:   communityRepo{h},
		Keywords:      keywordRepo{h},
		Memberships:   membershipRepo{h},
		JoinRequests:  joinRequestRepo{h},
		Posts:         postRepo{h},
		Likes:         likeRepo{h},
		Comments:      commentRepo{h},
		PinnedPosts:   pinRepo{h},
		Follows:       followRepo{h},
		Events:        eventRepo{h},
		RSVPs:         rsvpRepo{h},
		Announcements: announcementRepo{h},
		Achievements:  achievementRepo{h},
	}
}
