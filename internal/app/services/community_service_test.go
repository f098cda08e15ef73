package services

import (
	"context"
	"testing"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/email"
	"github.com/unihub/unihub/internal/testutil"
)

func newCommunityService(t *testing.T, f *testutil.Fixtures, queue email.Queue) CommunityService {
	t.Helper()
	return NewCommunityService(f.Store, queue, nil, testutil.Logger(t))
}

func roleOf(t *testing.T, f *testutil.Fixtures, communityID, userID int64) models.MembershipRole {
	t.Helper()
	m, err := f.Repos().Memberships.Get(context.Background(), communityID, userID)
	if err != nil {
		t.Fatalf("Memberships.Get(%d, %d) error = %v", communityID, userID, err)
	}
	return m.Role
}

func TestCreateCommunity(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newCommunityService(t, f, nil)
	owner := f.CreateUser("owner")

	c, err := svc.Create(ctx, owner.ID, CreateCommunityParams{
		Name:     " Go Club ",
		Privacy:  "private",
		Keywords: []string{"Golang", "golang ", "#Backend", ""},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Name != "Go Club" || !c.IsPrivate() || !c.Kind.IsOwnedBy(owner.ID) {
		t.Errorf("community = %+v", c)
	}
	if len(c.Keywords) != 2 {
		t.Errorf("keywords = %v, want 2 normalized entries", c.Keywords)
	}
	if role := roleOf(t, f, c.ID, owner.ID); role != models.RoleLeader {
		t.Errorf("owner role = %s, want Leader", role)
	}

	detail, err := svc.Get(ctx, c.ID, owner.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if detail.MemberCount != 1 || detail.ViewerRole == nil || *detail.ViewerRole != models.RoleLeader {
		t.Errorf("detail = %+v", detail)
	}
	if detail.OwnerID == nil || *detail.OwnerID != owner.ID || detail.IsGlobal {
		t.Errorf("detail ownership = %+v", detail)
	}

	bad := []struct {
		name    string
		actorID int64
		params  CreateCommunityParams
		want    apperrors.Kind
	}{
		{"anonymous", 0, CreateCommunityParams{Name: "x"}, apperrors.KindUnauthenticated},
		{"blank name", owner.ID, CreateCommunityParams{Name: " "}, apperrors.KindInvalidArgument},
		{"unknown privacy", owner.ID, CreateCommunityParams{Name: "x", Privacy: "secret"}, apperrors.KindInvalidArgument},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.actorID, tt.params)
			assertKind(t, err, tt.want)
		})
	}
}

func TestUpdateKeywords(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newCommunityService(t, f, nil)
	owner, member := f.CreateUser("owner"), f.CreateUser("member")
	c := f.CreateCommunity(owner.ID, "Go Club", models.PrivacyPublic, "golang", "backend")
	f.AddMember(c.ID, member.ID, models.RoleMember)

	_, err := svc.UpdateKeywords(ctx, c.ID, member.ID, []string{"x"})
	assertKind(t, err, apperrors.KindForbidden)

	updated, err := svc.UpdateKeywords(ctx, c.ID, owner.ID, []string{"Concurrency"})
	if err != nil {
		t.Fatalf("UpdateKeywords() error = %v", err)
	}
	if len(updated.Keywords) != 1 || updated.Keywords[0] != "concurrency" {
		t.Errorf("keywords = %v", updated.Keywords)
	}
	if n := f.Store.Count("community_keywords"); n != 1 {
		t.Errorf("keyword links = %d, want 1", n)
	}

	suggestions, err := svc.SuggestKeywords(ctx, "CON")
	if err != nil {
		t.Fatalf("SuggestKeywords() error = %v", err)
	}
	if len(suggestions) != 1 || suggestions[0] != "concurrency" {
		t.Errorf("suggestions = %v", suggestions)
	}
	if short, _ := svc.SuggestKeywords(ctx, "c"); len(short) != 0 {
		t.Errorf("one-letter term returned %v", short)
	}
}

func TestJoinLeave(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newCommunityService(t, f, nil)
	owner, user := f.CreateUser("owner"), f.CreateUser("user")
	public := f.CreateCommunity(owner.ID, "Open", models.PrivacyPublic)
	private := f.CreateCommunity(owner.ID, "Closed", models.PrivacyPrivate)
	global := f.CreateGlobalCommunity()

	if err := svc.Join(ctx, public.ID, user.ID); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if role := roleOf(t, f, public.ID, user.ID); role != models.RoleMember {
		t.Errorf("joined role = %s", role)
	}

	assertKind(t, svc.Join(ctx, public.ID, user.ID), apperrors.KindConflict)
	assertKind(t, svc.Join(ctx, private.ID, user.ID), apperrors.KindForbidden)
	assertKind(t, svc.Join(ctx, 9999, user.ID), apperrors.KindNotFound)

	assertKind(t, svc.Leave(ctx, public.ID, owner.ID), apperrors.KindForbidden)
	assertKind(t, svc.Leave(ctx, private.ID, user.ID), apperrors.KindNotFound)
	assertKind(t, svc.Leave(ctx, global.ID, user.ID), apperrors.KindInvalidArgument)

	if err := svc.Leave(ctx, public.ID, user.ID); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if ok, _ := f.Repos().Memberships.Get(ctx, public.ID, user.ID); ok != nil {
		t.Error("membership still present after Leave")
	}
}

func TestJoinRequestFlow(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	queue := &recordingQueue{}
	svc := newCommunityService(t, f, queue)
	owner, alice, bob := f.CreateUser("owner"), f.CreateUser("alice"), f.CreateUser("bob")
	private := f.CreateCommunity(owner.ID, "Closed", models.PrivacyPrivate)
	public := f.CreateCommunity(owner.ID, "Open", models.PrivacyPublic)

	_, err := svc.RequestJoin(ctx, public.ID, alice.ID)
	assertKind(t, err, apperrors.KindInvalidArgument)
	_, err = svc.RequestJoin(ctx, private.ID, owner.ID)
	assertKind(t, err, apperrors.KindConflict)

	req, err := svc.RequestJoin(ctx, private.ID, alice.ID)
	if err != nil {
		t.Fatalf("RequestJoin() error = %v", err)
	}
	_, err = svc.RequestJoin(ctx, private.ID, alice.ID)
	assertKind(t, err, apperrors.KindConflict)

	detail, err := svc.Get(ctx, private.ID, alice.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !detail.HasRequested || detail.ViewerRole != nil {
		t.Errorf("detail for requester = %+v", detail)
	}

	_, err = svc.ListJoinRequests(ctx, private.ID, alice.ID)
	assertKind(t, err, apperrors.KindForbidden)
	pending, err := svc.ListJoinRequests(ctx, private.ID, owner.ID)
	if err != nil {
		t.Fatalf("ListJoinRequests() error = %v", err)
	}
	if len(pending) != 1 || pending[0].User.ID != alice.ID {
		t.Errorf("pending = %+v", pending)
	}

	assertKind(t, svc.ApproveRequest(ctx, req.ID, alice.ID), apperrors.KindForbidden)
	if err := svc.ApproveRequest(ctx, req.ID, owner.ID); err != nil {
		t.Fatalf("ApproveRequest() error = %v", err)
	}
	if role := roleOf(t, f, private.ID, alice.ID); role != models.RoleMember {
		t.Errorf("approved role = %s", role)
	}
	if n := f.Store.Count("join_requests"); n != 0 {
		t.Errorf("join requests left = %d", n)
	}
	if got := queue.recipients(); len(got) != 1 || got[0] != alice.Email {
		t.Errorf("approval notifications = %v", got)
	} else if queue.sent[0].n.Template != email.TemplateJoinApproved || queue.sent[0].n.CommunityName != "Closed" {
		t.Errorf("approval notification = %+v", queue.sent[0].n)
	}
	assertKind(t, svc.ApproveRequest(ctx, req.ID, owner.ID), apperrors.KindNotFound)

	bobReq, err := svc.RequestJoin(ctx, private.ID, bob.ID)
	if err != nil {
		t.Fatalf("RequestJoin() error = %v", err)
	}
	if err := svc.DenyRequest(ctx, bobReq.ID, owner.ID); err != nil {
		t.Fatalf("DenyRequest() error = %v", err)
	}
	if _, err := f.Repos().Memberships.Get(ctx, private.ID, bob.ID); err == nil {
		t.Error("denied requester became a member")
	}

	if _, err := svc.RequestJoin(ctx, private.ID, bob.ID); err != nil {
		t.Fatalf("RequestJoin() after deny error = %v", err)
	}
	if err := svc.CancelRequest(ctx, private.ID, bob.ID); err != nil {
		t.Fatalf("CancelRequest() error = %v", err)
	}
	assertKind(t, svc.CancelRequest(ctx, private.ID, bob.ID), apperrors.KindNotFound)
}

func TestTransferOwnership(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newCommunityService(t, f, nil)
	owner, heir, manager, outsider := f.CreateUser("owner"), f.CreateUser("heir"), f.CreateUser("manager"), f.CreateUser("outsider")
	c := f.CreateCommunity(owner.ID, "Rowing", models.PrivacyPublic)
	f.AddMember(c.ID, heir.ID, models.RoleMember)
	f.AddMember(c.ID, manager.ID, models.RoleEventManager)

	bad := []struct {
		name     string
		actorID  int64
		newOwner int64
		want     apperrors.Kind
	}{
		{"not owner", heir.ID, heir.ID, apperrors.KindForbidden},
		{"to self", owner.ID, owner.ID, apperrors.KindInvalidArgument},
		{"unknown user", owner.ID, 9999, apperrors.KindNotFound},
		{"not a member", owner.ID, outsider.ID, apperrors.KindInvalidArgument},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			assertKind(t, svc.TransferOwnership(ctx, c.ID, tt.actorID, tt.newOwner), tt.want)
		})
	}

	if err := svc.TransferOwnership(ctx, c.ID, owner.ID, heir.ID); err != nil {
		t.Fatalf("TransferOwnership() error = %v", err)
	}

	if role := roleOf(t, f, c.ID, heir.ID); role != models.RoleLeader {
		t.Errorf("new owner role = %s, want Leader", role)
	}
	if role := roleOf(t, f, c.ID, owner.ID); role != models.RoleMember {
		t.Errorf("old owner role = %s, want Member", role)
	}
	if role := roleOf(t, f, c.ID, manager.ID); role != models.RoleEventManager {
		t.Errorf("bystander role changed to %s", role)
	}
	stored, err := f.Repos().Communities.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !stored.Kind.IsOwnedBy(heir.ID) {
		t.Errorf("owner pointer not moved: %+v", stored.Kind)
	}

	if err := svc.Leave(ctx, c.ID, owner.ID); err != nil {
		t.Errorf("former owner cannot leave: %v", err)
	}
}

func TestTransferOwnershipRollsBack(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newCommunityService(t, f, nil)
	owner, heir := f.CreateUser("owner"), f.CreateUser("heir")
	c := f.CreateCommunity(owner.ID, "Rowing", models.PrivacyPublic)
	f.AddMember(c.ID, heir.ID, models.RoleMember)

	f.Store.FailOn("Communities.SetOwner", errInjected)
	assertKind(t, svc.TransferOwnership(ctx, c.ID, owner.ID, heir.ID), apperrors.KindInternal)
	f.Store.FailOn("Communities.SetOwner", nil)

	if role := roleOf(t, f, c.ID, owner.ID); role != models.RoleLeader {
		t.Errorf("owner role after rollback = %s", role)
	}
	if role := roleOf(t, f, c.ID, heir.ID); role != models.RoleMember {
		t.Errorf("heir role after rollback = %s", role)
	}
}

func TestUpdateRole(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newCommunityService(t, f, nil)
	owner, member, outsider := f.CreateUser("owner"), f.CreateUser("member"), f.CreateUser("outsider")
	c := f.CreateCommunity(owner.ID, "Rowing", models.PrivacyPublic)
	f.AddMember(c.ID, member.ID, models.RoleMember)

	bad := []struct {
		name    string
		actorID int64
		target  int64
		role    string
		want    apperrors.Kind
	}{
		{"not owner", member.ID, member.ID, "EventManager", apperrors.KindForbidden},
		{"unknown role", owner.ID, member.ID, "Admin", apperrors.KindInvalidArgument},
		{"leader via update", owner.ID, member.ID, "Leader", apperrors.KindInvalidArgument},
		{"demote leader", owner.ID, owner.ID, "Member", apperrors.KindInvalidArgument},
		{"not a member", owner.ID, outsider.ID, "Member", apperrors.KindNotFound},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			assertKind(t, svc.UpdateRole(ctx, c.ID, tt.actorID, tt.target, tt.role), tt.want)
		})
	}

	if err := svc.UpdateRole(ctx, c.ID, owner.ID, member.ID, "EventManager"); err != nil {
		t.Fatalf("UpdateRole() error = %v", err)
	}
	if role := roleOf(t, f, c.ID, member.ID); role != models.RoleEventManager {
		t.Errorf("role = %s, want EventManager", role)
	}
}

// seedCommunity fills a community with one row of every dependent table
func seedCommunity(t *testing.T, f *testutil.Fixtures, c models.Community, owner, member models.User) {
	t.Helper()
	ctx := context.Background()

	f.AddMember(c.ID, member.ID, models.RoleMember)
	post := f.CreatePost(c.ID, member.ID, "hello")
	f.Like(post.ID, owner.ID)
	f.Comment(post.ID, owner.ID, "welcome")
	pin := models.PinnedPost{PostID: post.ID, CommunityID: c.ID, PinnedBy: owner.ID, Order: 0}
	if _, err := f.Repos().PinnedPosts.Create(ctx, &pin); err != nil {
		t.Fatalf("pin: %v", err)
	}
	event := f.CreateEvent(c.ID, "Meetup", 10)
	f.RSVP(event.ID, member.ID, models.RSVPAccepted)
	a := models.Announcement{CommunityID: c.ID, Title: "t", Content: "c", CreatedBy: owner.ID}
	if _, err := f.Repos().Announcements.Create(ctx, &a); err != nil {
		t.Fatalf("announcement: %v", err)
	}
}

func TestDeleteCommunityCascades(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newCommunityService(t, f, nil)
	owner, member, requester := f.CreateUser("owner"), f.CreateUser("member"), f.CreateUser("requester")

	doomed := f.CreateCommunity(owner.ID, "Doomed", models.PrivacyPrivate, "golang")
	seedCommunity(t, f, doomed, owner, member)
	if _, err := f.Repos().JoinRequests.Create(ctx, doomed.ID, requester.ID); err != nil {
		t.Fatalf("join request: %v", err)
	}

	kept := f.CreateCommunity(owner.ID, "Kept", models.PrivacyPublic, "golang")
	seedCommunity(t, f, kept, owner, member)

	tables := []string{
		"communities", "community_keywords", "memberships", "join_requests", "posts",
		"post_likes", "comments", "pinned_posts", "events", "rsvps", "announcements",
	}
	before := map[string]int{}
	for _, table := range tables {
		before[table] = f.Store.Count(table)
	}

	assertKind(t, svc.Delete(ctx, doomed.ID, member.ID), apperrors.KindForbidden)

	if err := svc.Delete(ctx, doomed.ID, owner.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// the remaining rows all belong to the kept community
	want := map[string]int{
		"communities": 1, "community_keywords": 1, "memberships": 2, "join_requests": 0, "posts": 1,
		"post_likes": 1, "comments": 1, "pinned_posts": 1, "events": 1, "rsvps": 1, "announcements": 1,
	}
	for _, table := range tables {
		if got := f.Store.Count(table); got != want[table] {
			t.Errorf("%s: %d rows left (was %d), want %d", table, got, before[table], want[table])
		}
	}

	if _, err := svc.Get(ctx, doomed.ID, owner.ID); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("Get() after delete error = %v, want NotFound", err)
	}
}

func TestDeleteCommunityRollsBack(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newCommunityService(t, f, nil)
	owner, member := f.CreateUser("owner"), f.CreateUser("member")
	c := f.CreateCommunity(owner.ID, "Sturdy", models.PrivacyPublic, "golang")
	seedCommunity(t, f, c, owner, member)

	tables := []string{"communities", "memberships", "posts", "post_likes", "comments", "pinned_posts", "events", "rsvps"}
	before := map[string]int{}
	for _, table := range tables {
		before[table] = f.Store.Count(table)
	}

	f.Store.FailOn("Posts.DeleteByCommunity", errInjected)
	assertKind(t, svc.Delete(ctx, c.ID, owner.ID), apperrors.KindInternal)

	for _, table := range tables {
		if got := f.Store.Count(table); got != before[table] {
			t.Errorf("%s: %d rows after failed delete, want %d", table, got, before[table])
		}
	}
}

func TestListMembersAndUserCommunities(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newCommunityService(t, f, nil)
	owner, member := f.CreateUser("owner"), f.CreateUser("member")
	c1 := f.CreateCommunity(owner.ID, "One", models.PrivacyPublic, "alpha")
	c2 := f.CreateCommunity(owner.ID, "Two", models.PrivacyPublic)
	f.AddMember(c1.ID, member.ID, models.RoleMember)

	members, err := svc.ListMembers(ctx, c1.ID)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 2 || members[0].Role != models.RoleLeader || members[0].User.ID != owner.ID {
		t.Errorf("members = %+v", members)
	}

	communities, err := svc.ListUserCommunities(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListUserCommunities() error = %v", err)
	}
	if len(communities) != 2 || communities[0].ID != c1.ID || communities[1].ID != c2.ID {
		t.Errorf("owner communities = %+v", communities)
	}
	if len(communities[0].Keywords) != 1 {
		t.Errorf("keywords not loaded: %+v", communities[0])
	}

	none, err := svc.ListUserCommunities(ctx, f.CreateUser("loner").ID)
	if err != nil || len(none) != 0 {
		t.Errorf("loner communities = %v, %v", none, err)
	}
}

func TestAuthorizeFeed(t *testing.T) {
	f := testutil.NewFixtures(t)
	svc := newCommunityService(t, f, nil)
	ctx := context.Background()

	owner, member, outsider := f.CreateUser("owner"), f.CreateUser("member"), f.CreateUser("outsider")
	c := f.CreateCommunity(owner.ID, "Chess", models.PrivacyPrivate)
	f.AddMember(c.ID, member.ID, models.RoleMember)
	global := f.CreateGlobalCommunity()

	for _, id := range []int64{owner.ID, member.ID} {
		if err := svc.AuthorizeFeed(ctx, c.ID, id); err != nil {
			t.Errorf("AuthorizeFeed(member %d) error = %v", id, err)
		}
	}
	if err := svc.AuthorizeFeed(ctx, global.ID, outsider.ID); err != nil {
		t.Errorf("AuthorizeFeed(global) error = %v", err)
	}

	assertKind(t, svc.AuthorizeFeed(ctx, c.ID, outsider.ID), apperrors.KindForbidden)
	assertKind(t, svc.AuthorizeFeed(ctx, c.ID, 0), apperrors.KindUnauthenticated)
	assertKind(t, svc.AuthorizeFeed(ctx, 9999, member.ID), apperrors.KindNotFound)
}

func TestMembershipLossEvictsFeedSubscribers(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	owner, member := f.CreateUser("owner"), f.CreateUser("member")
	c := f.CreateCommunity(owner.ID, "Chess", models.PrivacyPublic)
	f.AddMember(c.ID, member.ID, models.RoleMember)

	tests := []struct {
		name string
		act  func(svc CommunityService) error
		want [][2]int64
	}{
		{"leader cannot leave", func(svc CommunityService) error { return svc.Leave(ctx, c.ID, owner.ID) }, nil},
		{"outsider delete", func(svc CommunityService) error { return svc.Delete(ctx, c.ID, member.ID) }, nil},
		{"member leaves", func(svc CommunityService) error { return svc.Leave(ctx, c.ID, member.ID) }, [][2]int64{{c.ID, member.ID}}},
		{"owner deletes", func(svc CommunityService) error { return svc.Delete(ctx, c.ID, owner.ID) }, [][2]int64{{c.ID, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &recordingFeed{}
			err := tt.act(NewCommunityService(f.Store, nil, feed, testutil.Logger(t)))
			if (err == nil) != (tt.want != nil) {
				t.Fatalf("error = %v", err)
			}
			got := feed.evicted()
			if len(got) != len(tt.want) {
				t.Fatalf("evictions = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("evictions = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
