package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestCreatePost(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	storage := newMemBlobStorage()
	svc := NewPostService(f.Store, storage, testutil.Logger(t))

	global := f.CreateGlobalCommunity()
	owner, member, outsider := f.CreateUser("owner"), f.CreateUser("member"), f.CreateUser("outsider")
	c := f.CreateCommunity(owner.ID, "Photo", models.PrivacyPublic)
	f.AddMember(c.ID, member.ID, models.RoleMember)

	feed, err := svc.CreatePost(ctx, outsider.ID, CreatePostParams{Text: strPtr(" hello world "), Hashtags: []string{"#News", "news", "Campus"}})
	if err != nil {
		t.Fatalf("CreatePost(global) error = %v", err)
	}
	if feed.CommunityID != global.ID || *feed.Text != "hello world" {
		t.Errorf("feed post = %+v", feed)
	}
	if len(feed.Hashtags) != 2 || feed.Hashtags[0] != "news" || feed.Hashtags[1] != "campus" {
		t.Errorf("hashtags = %v", feed.Hashtags)
	}

	post, err := svc.CreatePost(ctx, member.ID, CreatePostParams{
		CommunityID:   &c.ID,
		IsMembersOnly: true,
		Image:         &Upload{Filename: "sunset.PNG", Data: pngHeader},
	})
	if err != nil {
		t.Fatalf("CreatePost(community) error = %v", err)
	}
	if post.ImageURL == nil || storage.count() != 1 || !post.IsMembersOnly {
		t.Errorf("image post = %+v, stored objects = %d", post, storage.count())
	}

	bad := []struct {
		name    string
		actorID int64
		params  CreatePostParams
		want    apperrors.Kind
	}{
		{"anonymous", 0, CreatePostParams{Text: strPtr("x")}, apperrors.KindUnauthenticated},
		{"empty", member.ID, CreatePostParams{CommunityID: &c.ID, Text: strPtr("  ")}, apperrors.KindInvalidArgument},
		{"not a member", outsider.ID, CreatePostParams{CommunityID: &c.ID, Text: strPtr("x")}, apperrors.KindForbidden},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, tt.actorID, tt.params)
			assertKind(t, err, tt.want)
		})
	}
}

func TestCreatePostRemovesImageOnRollback(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	storage := newMemBlobStorage()
	svc := NewPostService(f.Store, storage, testutil.Logger(t))

	owner := f.CreateUser("owner")
	c := f.CreateCommunity(owner.ID, "Photo", models.PrivacyPublic)

	f.Store.FailOn("Posts.SetHashtags", errInjected)
	_, err := svc.CreatePost(ctx, owner.ID, CreatePostParams{
		CommunityID: &c.ID,
		Hashtags:    []string{"sky"},
		Image:       &Upload{Filename: "a.png", Data: pngHeader},
	})
	assertKind(t, err, apperrors.KindInternal)

	if n := f.Store.Count("posts"); n != 0 {
		t.Errorf("posts = %d after rollback", n)
	}
	if storage.count() != 0 {
		t.Errorf("image left behind after rollback")
	}

	storage.err = errors.New("disk full")
	_, err = svc.CreatePost(ctx, owner.ID, CreatePostParams{CommunityID: &c.ID, Image: &Upload{Filename: "b.png", Data: pngHeader}})
	assertKind(t, err, apperrors.KindInternal)
}

func TestMembersOnlyVisibility(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewPostService(f.Store, nil, testutil.Logger(t))

	owner, outsider := f.CreateUser("owner"), f.CreateUser("outsider")
	c := f.CreateCommunity(owner.ID, "Secret", models.PrivacyPublic)
	public := f.CreatePost(c.ID, owner.ID, "for all")
	hidden, err := svc.CreatePost(ctx, owner.ID, CreatePostParams{CommunityID: &c.ID, Text: strPtr("members"), IsMembersOnly: true})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	if _, err := svc.GetPost(ctx, hidden.ID, owner.ID); err != nil {
		t.Errorf("member cannot read members-only post: %v", err)
	}
	_, err = svc.GetPost(ctx, hidden.ID, outsider.ID)
	assertKind(t, err, apperrors.KindForbidden)
	_, err = svc.GetPost(ctx, hidden.ID, 0)
	assertKind(t, err, apperrors.KindForbidden)
	if _, err := svc.GetPost(ctx, public.ID, 0); err != nil {
		t.Errorf("anonymous cannot read public post: %v", err)
	}

	memberView, err := svc.ListCommunityPosts(ctx, c.ID, owner.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListCommunityPosts() error = %v", err)
	}
	outsiderView, err := svc.ListCommunityPosts(ctx, c.ID, outsider.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListCommunityPosts() error = %v", err)
	}
	if len(memberView) != 2 || len(outsiderView) != 1 || outsiderView[0].ID != public.ID {
		t.Errorf("member sees %d, outsider sees %d", len(memberView), len(outsiderView))
	}

	_, err = svc.ToggleLike(ctx, hidden.ID, outsider.ID)
	assertKind(t, err, apperrors.KindForbidden)
	_, err = svc.AddComment(ctx, hidden.ID, outsider.ID, "let me in")
	assertKind(t, err, apperrors.KindForbidden)
}

func TestToggleLikeAndComments(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewPostService(f.Store, nil, testutil.Logger(t))

	owner, fan := f.CreateUser("owner"), f.CreateUser("fan")
	c := f.CreateCommunity(owner.ID, "Music", models.PrivacyPublic)
	post := f.CreatePost(c.ID, owner.ID, "new single")

	state, err := svc.ToggleLike(ctx, post.ID, fan.ID)
	if err != nil || !state.Liked || state.LikeCount != 1 {
		t.Fatalf("first toggle = %+v, %v", state, err)
	}
	state, err = svc.ToggleLike(ctx, post.ID, fan.ID)
	if err != nil || state.Liked || state.LikeCount != 0 {
		t.Fatalf("second toggle = %+v, %v", state, err)
	}

	if _, err := svc.AddComment(ctx, post.ID, fan.ID, "  great  "); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	_, err = svc.AddComment(ctx, post.ID, fan.ID, " ")
	assertKind(t, err, apperrors.KindInvalidArgument)

	comments, err := svc.ListComments(ctx, post.ID, 0)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 1 || comments[0].Text != "great" {
		t.Errorf("comments = %+v", comments)
	}
}

func TestDeletePost(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewPostService(f.Store, nil, testutil.Logger(t))

	global := f.CreateGlobalCommunity()
	owner, author, bystander := f.CreateUser("owner"), f.CreateUser("author"), f.CreateUser("bystander")
	c := f.CreateCommunity(owner.ID, "Music", models.PrivacyPublic)
	f.AddMember(c.ID, author.ID, models.RoleMember)
	f.AddMember(c.ID, bystander.ID, models.RoleEventManager)

	tests := []struct {
		name      string
		community int64
		actor     int64
		want      apperrors.Kind
	}{
		{"other member", c.ID, bystander.ID, apperrors.KindForbidden},
		{"anonymous", c.ID, 0, apperrors.KindForbidden},
		{"nobody owns global", global.ID, owner.ID, apperrors.KindForbidden},
		{"author", c.ID, author.ID, ""},
		{"community owner", c.ID, owner.ID, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := f.CreatePost(tt.community, author.ID, "bye")
			f.Like(post.ID, bystander.ID)
			f.Comment(post.ID, bystander.ID, "why")

			err := svc.DeletePost(ctx, post.ID, tt.actor)
			if tt.want != "" {
				assertKind(t, err, tt.want)
				if _, err := f.Repos().Posts.GetByID(ctx, post.ID); err != nil {
					t.Errorf("post gone after rejected delete: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeletePost() error = %v", err)
			}
			assertKind(t, svc.DeletePost(ctx, post.ID, tt.actor), apperrors.KindNotFound)
		})
	}

	if n := f.Store.Count("posts"); n != 3 {
		t.Errorf("posts left = %d, want the 3 rejected ones", n)
	}
	if n := f.Store.Count("post_likes"); n != 3 {
		t.Errorf("likes left = %d, want 3", n)
	}
	if n := f.Store.Count("comments"); n != 3 {
		t.Errorf("comments left = %d, want 3", n)
	}
}

func TestDeletePostDropsUnusedHashtags(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewPostService(f.Store, nil, testutil.Logger(t))

	owner, member := f.CreateUser("owner"), f.CreateUser("member")
	c := f.CreateCommunity(owner.ID, "Chess", models.PrivacyPublic)
	f.AddMember(c.ID, member.ID, models.RoleMember)

	first, err := svc.CreatePost(ctx, member.ID, CreatePostParams{CommunityID: &c.ID, Text: strPtr("opening"), Hashtags: []string{"chess", "sicilian"}})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if _, err := svc.CreatePost(ctx, owner.ID, CreatePostParams{CommunityID: &c.ID, Text: strPtr("endgame"), Hashtags: []string{"#Chess"}}); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if n := f.Store.Count("hashtags"); n != 2 {
		t.Fatalf("hashtags = %d, want 2", n)
	}

	if err := svc.DeletePost(ctx, first.ID, owner.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}

	tags, err := svc.SuggestHashtags(ctx, "")
	if err != nil {
		t.Fatalf("SuggestHashtags() error = %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "chess" {
		t.Errorf("hashtags after delete = %+v, want only chess", tags)
	}
}

func TestPostFeeds(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewPostService(f.Store, nil, testutil.Logger(t))

	global := f.CreateGlobalCommunity()
	viewer, friend, stranger := f.CreateUser("viewer"), f.CreateUser("friend"), f.CreateUser("stranger")
	joined := f.CreateCommunity(friend.ID, "Hiking", models.PrivacyPublic)
	other := f.CreateCommunity(stranger.ID, "Sailing", models.PrivacyPublic)
	f.AddMember(joined.ID, viewer.ID, models.RoleMember)
	f.AddMember(other.ID, friend.ID, models.RoleMember)
	f.AddMember(global.ID, viewer.ID, models.RoleMember)
	f.Follow(viewer.ID, friend.ID)

	post := func(community, author int64, membersOnly bool, tags ...string) int64 {
		t.Helper()
		p, err := svc.CreatePost(ctx, author, CreatePostParams{
			CommunityID:   &community,
			Text:          strPtr("text"),
			IsMembersOnly: membersOnly,
			Hashtags:      tags,
		})
		if err != nil {
			t.Fatalf("CreatePost() error = %v", err)
		}
		return p.ID
	}
	friendGlobal := post(global.ID, friend.ID, false, "trail")
	friendJoinedHidden := post(joined.ID, friend.ID, true, "trail")
	friendOtherHidden := post(other.ID, friend.ID, true, "trail")
	friendOther := post(other.ID, friend.ID, false)
	viewerJoined := post(joined.ID, viewer.ID, false, "Trail")
	strangerOther := post(other.ID, stranger.ID, false, "regatta")

	tests := []struct {
		name string
		list func() ([]models.Post, error)
		want []int64
	}{
		{"following", func() ([]models.Post, error) { return svc.FollowingFeed(ctx, viewer.ID, 1, 10) },
			[]int64{friendOther, friendJoinedHidden, friendGlobal}},
		{"joined communities", func() ([]models.Post, error) { return svc.CommunitiesFeed(ctx, viewer.ID, 1, 10) },
			[]int64{friendJoinedHidden}},
		{"by user as member", func() ([]models.Post, error) { return svc.ListUserPosts(ctx, friend.ID, viewer.ID, 1, 10) },
			[]int64{friendOther, friendJoinedHidden, friendGlobal}},
		{"by user anonymous", func() ([]models.Post, error) { return svc.ListUserPosts(ctx, friend.ID, 0, 1, 10) },
			[]int64{friendOther, friendGlobal}},
		{"by user second page", func() ([]models.Post, error) { return svc.ListUserPosts(ctx, friend.ID, friend.ID, 2, 2) },
			[]int64{friendJoinedHidden, friendGlobal}},
		{"by hashtag", func() ([]models.Post, error) { return svc.ListHashtagPosts(ctx, "#TRAIL", viewer.ID, 1, 10) },
			[]int64{viewerJoined, friendJoinedHidden, friendGlobal}},
		{"by hashtag as author", func() ([]models.Post, error) { return svc.ListHashtagPosts(ctx, "trail", friend.ID, 1, 10) },
			[]int64{viewerJoined, friendOtherHidden, friendJoinedHidden, friendGlobal}},
		{"by other hashtag", func() ([]models.Post, error) { return svc.ListHashtagPosts(ctx, "regatta", 0, 1, 10) },
			[]int64{strangerOther}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := tt.list()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got := postIDs(posts); !equalIDs(got, tt.want) {
				t.Errorf("posts = %v, want %v", got, tt.want)
			}
		})
	}

	_, err := svc.FollowingFeed(ctx, 0, 1, 10)
	assertKind(t, err, apperrors.KindUnauthenticated)
	_, err = svc.CommunitiesFeed(ctx, 0, 1, 10)
	assertKind(t, err, apperrors.KindUnauthenticated)
	_, err = svc.ListHashtagPosts(ctx, " # ", viewer.ID, 1, 10)
	assertKind(t, err, apperrors.KindInvalidArgument)
	_, err = svc.ListUserPosts(ctx, 9999, viewer.ID, 1, 10)
	assertKind(t, err, apperrors.KindNotFound)
}

func TestSuggestHashtags(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewPostService(f.Store, nil, testutil.Logger(t))

	user := f.CreateUser("poster")
	f.CreateGlobalCommunity()
	tags := []string{"art", "artificial", "smart", "music", "maths", "mural", "movies", "chess", "go", "golf", "tennis", "yoga"}
	if _, err := svc.CreatePost(ctx, user.ID, CreatePostParams{Text: strPtr("tags"), Hashtags: tags}); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	tests := []struct {
		term string
		want []string
	}{
		{"ART", []string{"art", "artificial", "smart"}},
		{"#m", []string{"maths", "movies", "mural", "music", "smart"}},
		{"", []string{"art", "artificial", "chess", "go", "golf", "maths", "movies", "mural", "music", "smart"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := svc.SuggestHashtags(ctx, tt.term)
			if err != nil {
				t.Fatalf("SuggestHashtags() error = %v", err)
			}
			names := make([]string, 0, len(got))
			for _, h := range got {
				if h.ID == 0 {
					t.Errorf("hashtag %q has no id", h.Name)
				}
				names = append(names, h.Name)
			}
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("SuggestHashtags(%q) = %v, want %v", tt.term, names, tt.want)
			}
		})
	}
}

func postIDs(posts []models.Post) []int64 {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
