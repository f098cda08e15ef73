package services

import (
	"context"
	"testing"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/testutil"
)

type pinSetup struct {
	f         *testutil.Fixtures
	svc       PinService
	feed      *recordingFeed
	owner     models.User
	member    models.User
	community models.Community
	posts     []models.Post
}

func newPinSetup(t *testing.T, posts int) *pinSetup {
	t.Helper()
	f := testutil.NewFixtures(t)
	s := &pinSetup{f: f, feed: &recordingFeed{}}
	s.svc = NewPinService(f.Store, s.feed, testutil.Logger(t))
	s.owner = f.CreateUser("owner")
	s.member = f.CreateUser("member")
	s.community = f.CreateCommunity(s.owner.ID, "Robotics", models.PrivacyPublic)
	f.AddMember(s.community.ID, s.member.ID, models.RoleMember)
	for i := 0; i < posts; i++ {
		s.posts = append(s.posts, f.CreatePost(s.community.ID, s.member.ID, "post"))
	}
	return s
}

func (s *pinSetup) list(t *testing.T) []models.PinnedPost {
	t.Helper()
	pins, err := s.f.Repos().PinnedPosts.ListByCommunity(context.Background(), s.community.ID)
	if err != nil {
		t.Fatalf("ListByCommunity() error = %v", err)
	}
	return pins
}

func assertDenseOrders(t *testing.T, pins []models.PinnedPost) {
	t.Helper()
	for i, p := range pins {
		if p.Order != i {
			t.Fatalf("orders are not dense: %+v", pins)
		}
	}
}

func TestPinAppendsAndCapsAtThree(t *testing.T) {
	s := newPinSetup(t, 4)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		pin, err := s.svc.Pin(ctx, s.community.ID, s.posts[i].ID, s.owner.ID)
		if err != nil {
			t.Fatalf("Pin(%d) error = %v", i, err)
		}
		if pin.Order != i {
			t.Errorf("Pin(%d) order = %d, want %d", i, pin.Order, i)
		}
	}

	_, err := s.svc.Pin(ctx, s.community.ID, s.posts[3].ID, s.owner.ID)
	assertKind(t, err, apperrors.KindConflict)
	if !apperrors.Is(err, apperrors.ErrPinLimitReached) {
		t.Errorf("expected ErrPinLimitReached, got %v", err)
	}

	pins := s.list(t)
	if len(pins) != 3 {
		t.Fatalf("pins after rejected pin = %d, want 3", len(pins))
	}
	assertDenseOrders(t, pins)
}

func TestPinRejections(t *testing.T) {
	s := newPinSetup(t, 1)
	ctx := context.Background()
	other := s.f.CreateCommunity(s.owner.ID, "Chess", models.PrivacyPublic)
	foreign := s.f.CreatePost(other.ID, s.owner.ID, "elsewhere")

	if _, err := s.svc.Pin(ctx, s.community.ID, s.posts[0].ID, s.owner.ID); err != nil {
		t.Fatalf("Pin() error = %v", err)
	}

	tests := []struct {
		name        string
		communityID int64
		postID      int64
		actorID     int64
		want        apperrors.Kind
	}{
		{"not owner", s.community.ID, s.posts[0].ID, s.member.ID, apperrors.KindForbidden},
		{"already pinned", s.community.ID, s.posts[0].ID, s.owner.ID, apperrors.KindConflict},
		{"post from another community", s.community.ID, foreign.ID, s.owner.ID, apperrors.KindInvalidArgument},
		{"unknown post", s.community.ID, 9999, s.owner.ID, apperrors.KindNotFound},
		{"unknown community", 9999, s.posts[0].ID, s.owner.ID, apperrors.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.svc.Pin(ctx, tt.communityID, tt.postID, tt.actorID)
			assertKind(t, err, tt.want)
		})
	}
}

func TestUnpinRenumbers(t *testing.T) {
	s := newPinSetup(t, 3)
	ctx := context.Background()
	for _, p := range s.posts {
		if _, err := s.svc.Pin(ctx, s.community.ID, p.ID, s.owner.ID); err != nil {
			t.Fatalf("Pin() error = %v", err)
		}
	}

	if err := s.svc.Unpin(ctx, s.posts[1].ID, s.owner.ID); err != nil {
		t.Fatalf("Unpin() error = %v", err)
	}

	pins := s.list(t)
	assertDenseOrders(t, pins)
	orders := pinOrders(t, pins)
	if len(orders) != 2 || orders[s.posts[0].ID] != 0 || orders[s.posts[2].ID] != 1 {
		t.Errorf("orders after unpin = %v", orders)
	}

	kinds := s.feed.kinds()
	if len(kinds) != 4 || kinds[3] != FeedPinRemoved {
		t.Errorf("feed events = %v, want three pins then a removal", kinds)
	}
}

func TestUnpinRejections(t *testing.T) {
	s := newPinSetup(t, 2)
	ctx := context.Background()
	if _, err := s.svc.Pin(ctx, s.community.ID, s.posts[0].ID, s.owner.ID); err != nil {
		t.Fatalf("Pin() error = %v", err)
	}

	assertKind(t, s.svc.Unpin(ctx, s.posts[1].ID, s.owner.ID), apperrors.KindNotFound)
	assertKind(t, s.svc.Unpin(ctx, s.posts[0].ID, s.member.ID), apperrors.KindForbidden)

	if len(s.list(t)) != 1 {
		t.Error("rejected unpin changed the pinned list")
	}
	if n := len(s.feed.kinds()); n != 1 {
		t.Errorf("rejected unpins published %d extra events", n-1)
	}
}

func TestReorder(t *testing.T) {
	s := newPinSetup(t, 3)
	ctx := context.Background()
	var pinIDs []int64
	for _, p := range s.posts {
		pin, err := s.svc.Pin(ctx, s.community.ID, p.ID, s.owner.ID)
		if err != nil {
			t.Fatalf("Pin() error = %v", err)
		}
		pinIDs = append(pinIDs, pin.ID)
	}
	k0, k1, k2 := pinIDs[0], pinIDs[1], pinIDs[2]
	p0, p1, p2 := s.posts[0].ID, s.posts[1].ID, s.posts[2].ID

	bad := []struct {
		name string
		ids  []int64
		want apperrors.Kind
	}{
		{"missing one", []int64{k2, k0}, apperrors.KindInvalidArgument},
		{"duplicate", []int64{k2, k0, k0}, apperrors.KindInvalidArgument},
		{"unknown id", []int64{k2, k0, 9999}, apperrors.KindInvalidArgument},
		{"too many", []int64{k2, k0, k1, k1}, apperrors.KindInvalidArgument},
		{"post ids instead of pin ids", []int64{p2, p0, p1}, apperrors.KindInvalidArgument},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.svc.Reorder(ctx, s.community.ID, s.owner.ID, tt.ids)
			assertKind(t, err, tt.want)
		})
	}

	_, err := s.svc.Reorder(ctx, s.community.ID, s.member.ID, []int64{k2, k0, k1})
	assertKind(t, err, apperrors.KindForbidden)

	reordered, err := s.svc.Reorder(ctx, s.community.ID, s.owner.ID, []int64{k2, k0, k1})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if len(reordered) != 3 || reordered[0].ID != k2 || reordered[0].Order != 0 {
		t.Errorf("Reorder() = %+v", reordered)
	}
	if kinds := s.feed.kinds(); kinds[len(kinds)-1] != FeedPinsReordered || len(kinds) != 4 {
		t.Errorf("feed events = %v", kinds)
	}

	entries, err := s.svc.List(ctx, s.community.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []int64{p2, p0, p1}
	if len(entries) != len(want) {
		t.Fatalf("List() returned %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.PostID != want[i] || e.Order != i || e.Post.ID != want[i] {
			t.Errorf("entry %d = post %d order %d, want post %d order %d", i, e.PostID, e.Order, want[i], i)
		}
	}
}

func TestDeletePinnedPostRenumbers(t *testing.T) {
	s := newPinSetup(t, 3)
	ctx := context.Background()
	for _, p := range s.posts {
		if _, err := s.svc.Pin(ctx, s.community.ID, p.ID, s.owner.ID); err != nil {
			t.Fatalf("Pin() error = %v", err)
		}
	}
	s.f.Like(s.posts[0].ID, s.owner.ID)
	s.f.Comment(s.posts[0].ID, s.owner.ID, "nice")

	posts := NewPostService(s.f.Store, nil, testutil.Logger(t))
	if err := posts.DeletePost(ctx, s.posts[0].ID, s.member.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}

	pins := s.list(t)
	assertDenseOrders(t, pins)
	orders := pinOrders(t, pins)
	if orders[s.posts[1].ID] != 0 || orders[s.posts[2].ID] != 1 {
		t.Errorf("orders after delete = %v", orders)
	}
	if n := s.f.Store.Count("post_likes"); n != 0 {
		t.Errorf("likes left = %d", n)
	}
	if n := s.f.Store.Count("comments"); n != 0 {
		t.Errorf("comments left = %d", n)
	}
}
