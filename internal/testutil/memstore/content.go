package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
)

// posts

type postRepo struct{ h handle }

func (st *state) hydratePost(p models.Post) models.Post {
	p.LikeCount = 0
	for k := range st.likes {
		if k.a == p.ID {
			p.LikeCount++
		}
	}
	p.Hashtags = append([]string(nil), p.Hashtags...)
	return p
}

func (r postRepo) Create(_ context.Context, p *models.Post) (int64, error) {
	err := r.h.run("Posts.Create", func(st *state) error {
		if _, ok := st.communities[p.CommunityID]; !ok {
			return apperrors.ErrCommunityNotFound
		}
		p.ID = st.id()
		p.CreatedAt = r.h.s.now()
		row := *p
		row.Hashtags = nil
		row.LikeCount = 0
		st.posts[p.ID] = row
		return nil
	})
	return p.ID, err
}

func (r postRepo) GetByID(_ context.Context, id int64) (*models.Post, error) {
	var out *models.Post
	err := r.h.run("Posts.GetByID", func(st *state) error {
		p, ok := st.posts[id]
		if !ok {
			return apperrors.ErrPostNotFound
		}
		p = st.hydratePost(p)
		out = &p
		return nil
	})
	return out, err
}

func (r postRepo) ListByCommunity(_ context.Context, communityID int64, includeMembersOnly bool, offset uint64, limit int) ([]models.Post, error) {
	return r.list("Posts.ListByCommunity", offset, limit, func(st *state, p models.Post) bool {
		return p.CommunityID == communityID && (!p.IsMembersOnly || includeMembersOnly)
	})
}

func (r postRepo) ListByAuthor(_ context.Context, authorID, viewerID int64, offset uint64, limit int) ([]models.Post, error) {
	return r.list("Posts.ListByAuthor", offset, limit, func(st *state, p models.Post) bool {
		return p.UserID == authorID && st.postVisible(p, viewerID)
	})
}

func (r postRepo) ListByFollowed(_ context.Context, viewerID int64, offset uint64, limit int) ([]models.Post, error) {
	return r.list("Posts.ListByFollowed", offset, limit, func(st *state, p models.Post) bool {
		_, follows := st.follows[pair{viewerID, p.UserID}]
		return follows && st.postVisible(p, viewerID)
	})
}

func (r postRepo) ListByJoinedCommunities(_ context.Context, viewerID int64, offset uint64, limit int) ([]models.Post, error) {
	return r.list("Posts.ListByJoinedCommunities", offset, limit, func(st *state, p models.Post) bool {
		if p.UserID == viewerID || st.communities[p.CommunityID].Kind.IsGlobal() {
			return false
		}
		_, member := st.memberships[pair{p.CommunityID, viewerID}]
		return member
	})
}

func (r postRepo) ListByHashtag(_ context.Context, hashtag string, viewerID int64, offset uint64, limit int) ([]models.Post, error) {
	return r.list("Posts.ListByHashtag", offset, limit, func(st *state, p models.Post) bool {
		for _, h := range p.Hashtags {
			if h == hashtag {
				return st.postVisible(p, viewerID)
			}
		}
		return false
	})
}

func (st *state) postVisible(p models.Post, viewerID int64) bool {
	if !p.IsMembersOnly {
		return true
	}
	_, member := st.memberships[pair{p.CommunityID, viewerID}]
	return member
}

// list pages the matching posts newest first
func (r postRepo) list(op string, offset uint64, limit int, match func(*state, models.Post) bool) ([]models.Post, error) {
	out := []models.Post{}
	err := r.h.run(op, func(st *state) error {
		for _, p := range st.posts {
			if match(st, p) {
				out = append(out, st.hydratePost(p))
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
		out = page(out, offset, limit)
		return nil
	})
	return out, err
}

func (r postRepo) SetHashtags(_ context.Context, postID int64, hashtags []string) error {
	return r.h.run("Posts.SetHashtags", func(st *state) error {
		p, ok := st.posts[postID]
		if !ok {
			return apperrors.ErrPostNotFound
		}
		tags := append([]string(nil), hashtags...)
		sort.Strings(tags)
		for _, h := range tags {
			if _, ok := st.hashtags[h]; !ok {
				st.hashtags[h] = st.id()
			}
		}
		p.Hashtags = tags
		st.posts[postID] = p
		return nil
	})
}

func (r postRepo) DeleteUnusedHashtags(_ context.Context, hashtags []string) (int64, error) {
	var n int64
	err := r.h.run("Posts.DeleteUnusedHashtags", func(st *state) error {
		for _, h := range hashtags {
			if _, ok := st.hashtags[h]; !ok || st.hashtagUsed(h) {
				continue
			}
			delete(st.hashtags, h)
			n++
		}
		return nil
	})
	return n, err
}

func (st *state) hashtagUsed(h string) bool {
	for _, p := range st.posts {
		for _, tag := range p.Hashtags {
			if tag == h {
				return true
			}
		}
	}
	return false
}

func (r postRepo) SuggestHashtags(_ context.Context, term string, limit int) ([]models.Hashtag, error) {
	out := []models.Hashtag{}
	err := r.h.run("Posts.SuggestHashtags", func(st *state) error {
		vocab := make([]string, 0, len(st.hashtags))
		for h := range st.hashtags {
			vocab = append(vocab, h)
		}
		for _, name := range suggest(vocab, term, limit) {
			out = append(out, models.Hashtag{ID: st.hashtags[name], Name: name})
		}
		return nil
	})
	return out, err
}

func (r postRepo) Delete(_ context.Context, id int64) error {
	return r.h.run("Posts.Delete", func(st *state) error {
		if _, ok := st.posts[id]; !ok {
			return apperrors.ErrPostNotFound
		}
		if err := st.postReferenced(id); err != nil {
			return err
		}
		delete(st.posts, id)
		return nil
	})
}

func (r postRepo) DeleteByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("Posts.DeleteByCommunity", func(st *state) error {
		for id, p := range st.posts {
			if p.CommunityID != communityID {
				continue
			}
			if err := st.postReferenced(id); err != nil {
				return err
			}
			delete(st.posts, id)
			n++
		}
		return nil
	})
	return n, err
}

// postReferenced mirrors the RESTRICT foreign keys on posts
func (st *state) postReferenced(id int64) error {
	for k := range st.likes {
		if k.a == id {
			return fmt.Errorf("post %d still referenced by post_likes", id)
		}
	}
	for _, c := range st.comments {
		if c.PostID == id {
			return fmt.Errorf("post %d still referenced by comments", id)
		}
	}
	for _, p := range st.pins {
		if p.PostID == id {
			return fmt.Errorf("post %d still referenced by pinned_posts", id)
		}
	}
	return nil
}

// likes

type likeRepo struct{ h handle }

func (r likeRepo) Add(_ context.Context, postID, userID int64) error {
	return r.h.run("Likes.Add", func(st *state) error {
		if _, ok := st.posts[postID]; !ok {
			return apperrors.ErrPostNotFound
		}
		key := pair{postID, userID}
		if _, ok := st.likes[key]; !ok {
			st.likes[key] = r.h.s.now()
		}
		return nil
	})
}

func (r likeRepo) Remove(_ context.Context, postID, userID int64) (bool, error) {
	var removed bool
	err := r.h.run("Likes.Remove", func(st *state) error {
		key := pair{postID, userID}
		if _, ok := st.likes[key]; ok {
			delete(st.likes, key)
			removed = true
		}
		return nil
	})
	return removed, err
}

func (r likeRepo) Count(_ context.Context, postID int64) (int, error) {
	var n int
	err := r.h.run("Likes.Count", func(st *state) error {
		for k := range st.likes {
			if k.a == postID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r likeRepo) DeleteByPost(_ context.Context, postID int64) (int64, error) {
	var n int64
	err := r.h.run("Likes.DeleteByPost", func(st *state) error {
		for k := range st.likes {
			if k.a == postID {
				delete(st.likes, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r likeRepo) DeleteByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("Likes.DeleteByCommunity", func(st *state) error {
		for k := range st.likes {
			if p, ok := st.posts[k.a]; ok && p.CommunityID == communityID {
				delete(st.likes, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

// comments

type commentRepo struct{ h handle }

func (r commentRepo) Create(_ context.Context, c *models.Comment) (int64, error) {
	err := r.h.run("Comments.Create", func(st *state) error {
		if _, ok := st.posts[c.PostID]; !ok {
			return apperrors.ErrPostNotFound
		}
		c.ID = st.id()
		c.CreatedAt = r.h.s.now()
		st.comments[c.ID] = *c
		return nil
	})
	return c.ID, err
}

func (r commentRepo) ListByPost(_ context.Context, postID int64) ([]models.Comment, error) {
	out := []models.Comment{}
	err := r.h.run("Comments.ListByPost", func(st *state) error {
		for _, c := range st.comments {
			if c.PostID == postID {
				out = append(out, c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r commentRepo) DeleteByPost(_ context.Context, postID int64) (int64, error) {
	var n int64
	err := r.h.run("Comments.DeleteByPost", func(st *state) error {
		for id, c := range st.comments {
			if c.PostID == postID {
				delete(st.comments, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r commentRepo) DeleteByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("Comments.DeleteByCommunity", func(st *state) error {
		for id, c := range st.comments {
			if p, ok := st.posts[c.PostID]; ok && p.CommunityID == communityID {
				delete(st.comments, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// pinned posts

type pinRepo struct{ h handle }

func (r pinRepo) ListByCommunity(_ context.Context, communityID int64) ([]models.PinnedPost, error) {
	out := []models.PinnedPost{}
	err := r.h.run("PinnedPosts.ListByCommunity", func(st *state) error {
		for _, p := range st.pins {
			if p.CommunityID == communityID {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
		return nil
	})
	return out, err
}

func (r pinRepo) GetByPostID(_ context.Context, postID int64) (*models.PinnedPost, error) {
	var out *models.PinnedPost
	err := r.h.run("PinnedPosts.GetByPostID", func(st *state) error {
		for _, p := range st.pins {
			if p.PostID == postID {
				p := p
				out = &p
				return nil
			}
		}
		return apperrors.ErrPinnedPostNotFound
	})
	return out, err
}

func (r pinRepo) Create(_ context.Context, pin *models.PinnedPost) (int64, error) {
	err := r.h.run("PinnedPosts.Create", func(st *state) error {
		if _, ok := st.posts[pin.PostID]; !ok {
			return apperrors.ErrPostNotFound
		}
		for _, p := range st.pins {
			if p.PostID == pin.PostID {
				return apperrors.ErrAlreadyPinned
			}
		}
		if pin.Order < 0 || pin.Order >= models.MaxPinnedPosts {
			return fmt.Errorf("pinned order %d out of range", pin.Order)
		}
		pin.ID = st.id()
		pin.PinnedAt = r.h.s.now()
		st.pins[pin.ID] = *pin
		return nil
	})
	return pin.ID, err
}

func (r pinRepo) Delete(_ context.Context, id int64) error {
	return r.h.run("PinnedPosts.Delete", func(st *state) error {
		if _, ok := st.pins[id]; !ok {
			return apperrors.ErrPinnedPostNotFound
		}
		delete(st.pins, id)
		return nil
	})
}

func (r pinRepo) ShiftDownAfter(_ context.Context, communityID int64, order int) error {
	return r.h.run("PinnedPosts.ShiftDownAfter", func(st *state) error {
		for id, p := range st.pins {
			if p.CommunityID == communityID && p.Order > order {
				p.Order--
				st.pins[id] = p
			}
		}
		return nil
	})
}

func (r pinRepo) SetOrder(_ context.Context, id int64, order int) error {
	return r.h.run("PinnedPosts.SetOrder", func(st *state) error {
		p, ok := st.pins[id]
		if !ok {
			return apperrors.ErrPinnedPostNotFound
		}
		p.Order = order
		st.pins[id] = p
		return nil
	})
}

func (r pinRepo) DeleteByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("PinnedPosts.DeleteByCommunity", func(st *state) error {
		for id, p := range st.pins {
			if p.CommunityID == communityID {
				delete(st.pins, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// follows

type followRepo struct{ h handle }

func (r followRepo) Create(_ context.Context, followerID, followedID int64) error {
	return r.h.run("Follows.Create", func(st *state) error {
		if followerID == followedID {
			return apperrors.NewBadRequestError("you cannot follow yourself")
		}
		if _, ok := st.users[followerID]; !ok {
			return apperrors.ErrUserNotFound
		}
		if _, ok := st.users[followedID]; !ok {
			return apperrors.ErrUserNotFound
		}
		key := pair{followerID, followedID}
		if _, ok := st.follows[key]; ok {
			return apperrors.ErrAlreadyFollowing
		}
		st.follows[key] = r.h.s.now()
		return nil
	})
}

func (r followRepo) Delete(_ context.Context, followerID, followedID int64) (bool, error) {
	var removed bool
	err := r.h.run("Follows.Delete", func(st *state) error {
		key := pair{followerID, followedID}
		if _, ok := st.follows[key]; ok {
			delete(st.follows, key)
			removed = true
		}
		return nil
	})
	return removed, err
}

func (r followRepo) Exists(_ context.Context, followerID, followedID int64) (bool, error) {
	var ok bool
	err := r.h.run("Follows.Exists", func(st *state) error {
		_, ok = st.follows[pair{followerID, followedID}]
		return nil
	})
	return ok, err
}

func (r followRepo) ListFollowingIDs(_ context.Context, userID int64) ([]int64, error) {
	out := []int64{}
	err := r.h.run("Follows.ListFollowingIDs", func(st *state) error {
		for k := range st.follows {
			if k.a == userID {
				out = append(out, k.b)
			}
		}
		sortedIDs(out)
		return nil
	})
	return out, err
}

func (r followRepo) ListFollowerIDs(_ context.Context, userID int64) ([]int64, error) {
	out := []int64{}
	err := r.h.run("Follows.ListFollowerIDs", func(st *state) error {
		for k := range st.follows {
			if k.b == userID {
				out = append(out, k.a)
			}
		}
		sortedIDs(out)
		return nil
	})
	return out, err
}

func (r followRepo) ListEdgesFrom(_ context.Context, followerIDs []int64) ([]models.Follow, error) {
	out := []models.Follow{}
	err := r.h.run("Follows.ListEdgesFrom", func(st *state) error {
		want := map[int64]bool{}
		for _, id := range followerIDs {
			want[id] = true
		}
		for k, at := range st.follows {
			if want[k.a] {
				out = append(out, models.Follow{FollowerID: k.a, FollowedID: k.b, FollowedAt: at})
			}
		}
		return nil
	})
	return out, err
}

// events

type eventRepo struct{ h handle }

func (r eventRepo) Create(_ context.Context, e *models.Event) (int64, error) {
	err := r.h.run("Events.Create", func(st *state) error {
		if _, ok := st.communities[e.CommunityID]; !ok {
			return apperrors.ErrCommunityNotFound
		}
		e.ID = st.id()
		e.CreatedAt = r.h.s.now()
		st.events[e.ID] = *e
		return nil
	})
	return e.ID, err
}

func (r eventRepo) get(op string, id int64) (*models.Event, error) {
	var out *models.Event
	err := r.h.run(op, func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return apperrors.ErrEventNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (r eventRepo) GetByID(_ context.Context, id int64) (*models.Event, error) {
	return r.get("Events.GetByID", id)
}

func (r eventRepo) LockByID(_ context.Context, id int64) (*models.Event, error) {
	return r.get("Events.LockByID", id)
}

func (r eventRepo) ListByCommunity(_ context.Context, communityID int64) ([]models.Event, error) {
	out := []models.Event{}
	err := r.h.run("Events.ListByCommunity", func(st *state) error {
		for _, e := range st.events {
			if e.CommunityID == communityID {
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Date.Equal(out[j].Date) {
				return out[i].Date.Before(out[j].Date)
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (r eventRepo) DeleteByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("Events.DeleteByCommunity", func(st *state) error {
		for id, e := range st.events {
			if e.CommunityID != communityID {
				continue
			}
			for _, rsvp := range st.rsvps {
				if rsvp.EventID == id {
					return fmt.Errorf("event %d still referenced by rsvps", id)
				}
			}
			delete(st.events, id)
			n++
		}
		return nil
	})
	return n, err
}

// rsvps

type rsvpRepo struct{ h handle }

func (r rsvpRepo) Find(_ context.Context, eventID, userID int64) (*models.RSVP, error) {
	var out *models.RSVP
	err := r.h.run("RSVPs.Find", func(st *state) error {
		for _, rsvp := range st.rsvps {
			if rsvp.EventID == eventID && rsvp.UserID == userID {
				rsvp := rsvp
				out = &rsvp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r rsvpRepo) Upsert(_ context.Context, eventID, userID int64, status models.RSVPStatus) (*models.RSVP, bool, error) {
	var out *models.RSVP
	var created bool
	err := r.h.run("RSVPs.Upsert", func(st *state) error {
		if _, ok := st.events[eventID]; !ok {
			return apperrors.ErrEventNotFound
		}
		for id, rsvp := range st.rsvps {
			if rsvp.EventID == eventID && rsvp.UserID == userID {
				rsvp.Status = status
				rsvp.UpdatedAt = r.h.s.now()
				st.rsvps[id] = rsvp
				out = &rsvp
				return nil
			}
		}
		rsvp := models.RSVP{ID: st.id(), UserID: userID, EventID: eventID, Status: status, UpdatedAt: r.h.s.now()}
		st.rsvps[rsvp.ID] = rsvp
		out, created = &rsvp, true
		return nil
	})
	return out, created, err
}

func (r rsvpRepo) CountAccepted(_ context.Context, eventID int64) (int, error) {
	var n int
	err := r.h.run("RSVPs.CountAccepted", func(st *state) error {
		for _, rsvp := range st.rsvps {
			if rsvp.EventID == eventID && rsvp.Status == models.RSVPAccepted {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r rsvpRepo) ListByUser(_ context.Context, userID int64) ([]models.RSVP, error) {
	out := []models.RSVP{}
	err := r.h.run("RSVPs.ListByUser", func(st *state) error {
		for _, rsvp := range st.rsvps {
			if rsvp.UserID != userID {
				continue
			}
			e := st.events[rsvp.EventID]
			rsvp.Event = &e
			out = append(out, rsvp)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Event.Date.Equal(out[j].Event.Date) {
				return out[i].Event.Date.Before(out[j].Event.Date)
			}
			return out[i].EventID < out[j].EventID
		})
		return nil
	})
	return out, err
}

func (r rsvpRepo) DeleteByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("RSVPs.DeleteByCommunity", func(st *state) error {
		for id, rsvp := range st.rsvps {
			if e, ok := st.events[rsvp.EventID]; ok && e.CommunityID == communityID {
				delete(st.rsvps, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// announcements

type announcementRepo struct{ h handle }

func (r announcementRepo) Create(_ context.Context, a *models.Announcement) (int64, error) {
	err := r.h.run("Announcements.Create", func(st *state) error {
		if _, ok := st.communities[a.CommunityID]; !ok {
			return apperrors.ErrCommunityNotFound
		}
		a.ID = st.id()
		a.CreatedAt = r.h.s.now()
		st.announcements[a.ID] = *a
		return nil
	})
	return a.ID, err
}

func (r announcementRepo) ListByCommunity(_ context.Context, communityID int64) ([]models.Announcement, error) {
	out := []models.Announcement{}
	err := r.h.run("Announcements.ListByCommunity", func(st *state) error {
		for _, a := range st.announcements {
			if a.CommunityID == communityID {
				out = append(out, a)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return out, err
}

func (r announcementRepo) DeleteByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("Announcements.DeleteByCommunity", func(st *state) error {
		for id, a := range st.announcements {
			if a.CommunityID == communityID {
				delete(st.announcements, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
