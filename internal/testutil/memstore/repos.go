package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
)

func sortedIDs(ids []int64) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}

// suggest orders prefix matches first, then alphabetically
func suggest(vocab []string, term string, limit int) []string {
	out := []string{}
	for _, v := range vocab {
		if containsFold(v, term) {
			out = append(out, v)
		}
	}
	lower := strings.ToLower(term)
	sort.Slice(out, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(out[i]), lower)
		pj := strings.HasPrefix(strings.ToLower(out[j]), lower)
		if pi != pj {
			return pi
		}
		return out[i] < out[j]
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// users

type userRepo struct{ h handle }

func (r userRepo) Create(_ context.Context, user *models.User, passwordHash string) (int64, error) {
	err := r.h.run("Users.Create", func(st *state) error {
		for _, row := range st.users {
			if strings.EqualFold(row.user.Email, user.Email) {
				return apperrors.ErrEmailAlreadyExists
			}
		}
		if user.RoleType == "" {
			user.RoleType = models.RoleStudent
		}
		user.ID = st.id()
		user.IsActive = true
		user.CreatedAt = r.h.s.now()
		st.users[user.ID] = userRow{user: *user, hash: passwordHash}
		return nil
	})
	return user.ID, err
}

func (r userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	var out *models.User
	err := r.h.run("Users.GetByID", func(st *state) error {
		row, ok := st.users[id]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		u := row.user
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, string, error) {
	var out *models.User
	var hash string
	err := r.h.run("Users.GetByEmail", func(st *state) error {
		for _, row := range st.users {
			if strings.EqualFold(row.user.Email, email) {
				u := row.user
				out, hash = &u, row.hash
				return nil
			}
		}
		return apperrors.ErrUserNotFound
	})
	return out, hash, err
}

func (r userRepo) Exists(_ context.Context, id int64) (bool, error) {
	var ok bool
	err := r.h.run("Users.Exists", func(st *state) error {
		_, ok = st.users[id]
		return nil
	})
	return ok, err
}

func (r userRepo) ListByIDs(_ context.Context, ids []int64) ([]models.User, error) {
	out := []models.User{}
	err := r.h.run("Users.ListByIDs", func(st *state) error {
		for _, id := range ids {
			if row, ok := st.users[id]; ok {
				out = append(out, row.user)
			}
		}
		return nil
	})
	return out, err
}

func (r userRepo) UpdateProfile(_ context.Context, user *models.User) error {
	return r.h.run("Users.UpdateProfile", func(st *state) error {
		row, ok := st.users[user.ID]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		row.user.FirstName = user.FirstName
		row.user.LastName = user.LastName
		row.user.Bio = user.Bio
		row.user.AcademicProgram = user.AcademicProgram
		row.user.AcademicYear = user.AcademicYear
		st.users[user.ID] = row
		return nil
	})
}

func (r userRepo) SetProfilePicture(_ context.Context, userID int64, url *string) error {
	return r.h.run("Users.SetProfilePicture", func(st *state) error {
		row, ok := st.users[userID]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		row.user.ProfilePictureURL = url
		st.users[userID] = row
		return nil
	})
}

func (r userRepo) ActivityCounts(_ context.Context, userID int64) (models.ActivityCounts, error) {
	var c models.ActivityCounts
	err := r.h.run("Users.ActivityCounts", func(st *state) error {
		for k := range st.memberships {
			if k.b == userID {
				c.Communities++
			}
		}
		for k := range st.follows {
			if k.a == userID {
				c.Following++
			}
			if k.b == userID {
				c.Followers++
			}
		}
		for _, p := range st.posts {
			if p.UserID == userID {
				c.Posts++
			}
		}
		for _, cm := range st.comments {
			if cm.UserID == userID {
				c.Comments++
			}
		}
		return nil
	})
	return c, err
}

func (r userRepo) AddInterests(_ context.Context, userID int64, interests []string) error {
	return r.h.run("Users.AddInterests", func(st *state) error {
		if _, ok := st.users[userID]; !ok {
			return apperrors.ErrUserNotFound
		}
		set := st.userInterests[userID]
		if set == nil {
			set = map[string]struct{}{}
		} else {
			set = copyMap(set)
		}
		for _, i := range interests {
			if _, ok := st.interests[i]; !ok {
				st.interests[i] = st.id()
			}
			set[i] = struct{}{}
		}
		st.userInterests[userID] = set
		return nil
	})
}

func (r userRepo) ListInterests(_ context.Context, userID int64) ([]string, error) {
	out := []string{}
	err := r.h.run("Users.ListInterests", func(st *state) error {
		for i := range st.userInterests[userID] {
			out = append(out, i)
		}
		sort.Strings(out)
		return nil
	})
	return out, err
}

func (r userRepo) SuggestInterests(_ context.Context, term string, limit int) ([]string, error) {
	var out []string
	err := r.h.run("Users.SuggestInterests", func(st *state) error {
		vocab := make([]string, 0, len(st.interests))
		for i := range st.interests {
			vocab = append(vocab, i)
		}
		out = suggest(vocab, term, limit)
		return nil
	})
	return out, err
}

// communities

type communityRepo struct{ h handle }

func (r communityRepo) Create(_ context.Context, c *models.Community) (int64, error) {
	err := r.h.run("Communities.Create", func(st *state) error {
		if c.Kind.IsGlobal() {
			for _, other := range st.communities {
				if other.Kind.IsGlobal() {
					return fmt.Errorf("duplicate global community")
				}
			}
		} else if owner, ok := c.Kind.Owner(); !ok || owner == 0 {
			return fmt.Errorf("community without owner")
		}
		if c.Privacy == "" {
			c.Privacy = models.PrivacyPublic
		}
		c.ID = st.id()
		c.CreatedAt = r.h.s.now()
		row := *c
		row.Keywords = nil
		st.communities[c.ID] = row
		return nil
	})
	return c.ID, err
}

func (r communityRepo) get(op string, id int64) (*models.Community, error) {
	var out *models.Community
	err := r.h.run(op, func(st *state) error {
		c, ok := st.communities[id]
		if !ok {
			return apperrors.ErrCommunityNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r communityRepo) GetByID(_ context.Context, id int64) (*models.Community, error) {
	return r.get("Communities.GetByID", id)
}

// LockByID relies on the transaction already holding the store lock
func (r communityRepo) LockByID(_ context.Context, id int64) (*models.Community, error) {
	return r.get("Communities.LockByID", id)
}

func (r communityRepo) GetGlobal(_ context.Context) (*models.Community, error) {
	var out *models.Community
	err := r.h.run("Communities.GetGlobal", func(st *state) error {
		for _, c := range st.communities {
			if c.Kind.IsGlobal() {
				c := c
				out = &c
				return nil
			}
		}
		return apperrors.ErrCommunityNotFound
	})
	return out, err
}

func (r communityRepo) ListByIDs(_ context.Context, ids []int64) ([]models.Community, error) {
	out := []models.Community{}
	err := r.h.run("Communities.ListByIDs", func(st *state) error {
		for _, id := range sortedIDs(append([]int64(nil), ids...)) {
			if c, ok := st.communities[id]; ok {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

func (r communityRepo) ListOwnedIDs(_ context.Context, ownerID int64) ([]int64, error) {
	out := []int64{}
	err := r.h.run("Communities.ListOwnedIDs", func(st *state) error {
		for id, c := range st.communities {
			if c.Kind.IsOwnedBy(ownerID) {
				out = append(out, id)
			}
		}
		sortedIDs(out)
		return nil
	})
	return out, err
}

func (r communityRepo) SetOwner(_ context.Context, communityID, ownerID int64) error {
	return r.h.run("Communities.SetOwner", func(st *state) error {
		c, ok := st.communities[communityID]
		if !ok || c.Kind.IsGlobal() {
			return apperrors.ErrCommunityNotFound
		}
		c.Kind = models.OwnedBy(ownerID)
		st.communities[communityID] = c
		return nil
	})
}

func (r communityRepo) Delete(_ context.Context, id int64) error {
	return r.h.run("Communities.Delete", func(st *state) error {
		if _, ok := st.communities[id]; !ok {
			return apperrors.ErrCommunityNotFound
		}
		if err := st.communityReferenced(id); err != nil {
			return err
		}
		delete(st.communities, id)
		return nil
	})
}

// communityReferenced mirrors the RESTRICT foreign keys on communities
func (st *state) communityReferenced(id int64) error {
	if len(st.communityKeywords[id]) > 0 {
		return fmt.Errorf("community %d still referenced by community_keywords", id)
	}
	for k := range st.memberships {
		if k.a == id {
			return fmt.Errorf("community %d still referenced by memberships", id)
		}
	}
	for _, jr := range st.joinRequests {
		if jr.CommunityID == id {
			return fmt.Errorf("community %d still referenced by join_requests", id)
		}
	}
	for _, p := range st.posts {
		if p.CommunityID == id {
			return fmt.Errorf("community %d still referenced by posts", id)
		}
	}
	for _, p := range st.pins {
		if p.CommunityID == id {
			return fmt.Errorf("community %d still referenced by pinned_posts", id)
		}
	}
	for _, e := range st.events {
		if e.CommunityID == id {
			return fmt.Errorf("community %d still referenced by events", id)
		}
	}
	for _, a := range st.announcements {
		if a.CommunityID == id {
			return fmt.Errorf("community %d still referenced by announcements", id)
		}
	}
	return nil
}

// keywords

type keywordRepo struct{ h handle }

func (r keywordRepo) GetOrCreate(_ context.Context, keywords []string) ([]models.Keyword, error) {
	out := []models.Keyword{}
	err := r.h.run("Keywords.GetOrCreate", func(st *state) error {
		seen := map[string]bool{}
		for _, k := range keywords {
			if seen[k] {
				continue
			}
			seen[k] = true
			id, ok := st.keywords[k]
			if !ok {
				id = st.id()
				st.keywords[k] = id
				st.keywordNames[id] = k
			}
			out = append(out, models.Keyword{ID: id, Keyword: k})
		}
		return nil
	})
	return out, err
}

func (r keywordRepo) ReplaceLinks(_ context.Context, communityID int64, keywordIDs []int64) error {
	return r.h.run("Keywords.ReplaceLinks", func(st *state) error {
		if _, ok := st.communities[communityID]; !ok {
			return apperrors.ErrCommunityNotFound
		}
		set := map[int64]struct{}{}
		for _, id := range keywordIDs {
			if _, ok := st.keywordNames[id]; !ok {
				return fmt.Errorf("keyword %d does not exist", id)
			}
			set[id] = struct{}{}
		}
		if len(set) == 0 {
			delete(st.communityKeywords, communityID)
			return nil
		}
		st.communityKeywords[communityID] = set
		return nil
	})
}

func (r keywordRepo) DeleteLinksByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("Keywords.DeleteLinksByCommunity", func(st *state) error {
		n = int64(len(st.communityKeywords[communityID]))
		delete(st.communityKeywords, communityID)
		return nil
	})
	return n, err
}

func (r keywordRepo) ListByCommunities(_ context.Context, communityIDs []int64) (map[int64][]string, error) {
	out := map[int64][]string{}
	err := r.h.run("Keywords.ListByCommunities", func(st *state) error {
		for _, cid := range communityIDs {
			for kid := range st.communityKeywords[cid] {
				out[cid] = append(out[cid], st.keywordNames[kid])
			}
			sort.Strings(out[cid])
		}
		return nil
	})
	return out, err
}

func (r keywordRepo) IDsForCommunities(_ context.Context, communityIDs []int64) ([]int64, error) {
	out := []int64{}
	err := r.h.run("Keywords.IDsForCommunities", func(st *state) error {
		seen := map[int64]bool{}
		for _, cid := range communityIDs {
			for kid := range st.communityKeywords[cid] {
				if !seen[kid] {
					seen[kid] = true
					out = append(out, kid)
				}
			}
		}
		sortedIDs(out)
		return nil
	})
	return out, err
}

func (r keywordRepo) LinksForKeywords(_ context.Context, keywordIDs []int64) ([]models.KeywordLink, error) {
	out := []models.KeywordLink{}
	err := r.h.run("Keywords.LinksForKeywords", func(st *state) error {
		want := map[int64]bool{}
		for _, id := range keywordIDs {
			want[id] = true
		}
		for cid, set := range st.communityKeywords {
			for kid := range set {
				if want[kid] {
					out = append(out, models.KeywordLink{CommunityID: cid, KeywordID: kid})
				}
			}
		}
		return nil
	})
	return out, err
}

func (r keywordRepo) Suggest(_ context.Context, term string, limit int) ([]string, error) {
	var out []string
	err := r.h.run("Keywords.Suggest", func(st *state) error {
		vocab := make([]string, 0, len(st.keywords))
		for k := range st.keywords {
			vocab = append(vocab, k)
		}
		out = suggest(vocab, term, limit)
		return nil
	})
	return out, err
}

// memberships

type membershipRepo struct{ h handle }

func (r membershipRepo) Get(_ context.Context, communityID, userID int64) (*models.Membership, error) {
	var out *models.Membership
	err := r.h.run("Memberships.Get", func(st *state) error {
		m, ok := st.memberships[pair{communityID, userID}]
		if !ok {
			return apperrors.ErrMembershipNotFound
		}
		out = &m
		return nil
	})
	return out, err
}

func (r membershipRepo) Create(_ context.Context, m *models.Membership) error {
	return r.h.run("Memberships.Create", func(st *state) error {
		if _, ok := st.communities[m.CommunityID]; !ok {
			return apperrors.ErrCommunityNotFound
		}
		if _, ok := st.users[m.UserID]; !ok {
			return apperrors.ErrUserNotFound
		}
		key := pair{m.CommunityID, m.UserID}
		if _, ok := st.memberships[key]; ok {
			return apperrors.ErrAlreadyMember
		}
		m.JoinedAt = r.h.s.now()
		st.memberships[key] = *m
		return nil
	})
}

func (r membershipRepo) UpdateRole(_ context.Context, communityID, userID int64, role models.MembershipRole) error {
	return r.h.run("Memberships.UpdateRole", func(st *state) error {
		key := pair{communityID, userID}
		m, ok := st.memberships[key]
		if !ok {
			return apperrors.ErrMembershipNotFound
		}
		m.Role = role
		st.memberships[key] = m
		return nil
	})
}

func (r membershipRepo) Delete(_ context.Context, communityID, userID int64) error {
	return r.h.run("Memberships.Delete", func(st *state) error {
		key := pair{communityID, userID}
		if _, ok := st.memberships[key]; !ok {
			return apperrors.ErrMembershipNotFound
		}
		delete(st.memberships, key)
		return nil
	})
}

func (r membershipRepo) DeleteByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("Memberships.DeleteByCommunity", func(st *state) error {
		for k := range st.memberships {
			if k.a == communityID {
				delete(st.memberships, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

var roleRank = map[models.MembershipRole]int{models.RoleLeader: 0, models.RoleEventManager: 1, models.RoleMember: 2}

func (r membershipRepo) ListByCommunity(_ context.Context, communityID int64) ([]models.Membership, error) {
	out := []models.Membership{}
	err := r.h.run("Memberships.ListByCommunity", func(st *state) error {
		for k, m := range st.memberships {
			if k.a == communityID {
				out = append(out, m)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if roleRank[out[i].Role] != roleRank[out[j].Role] {
				return roleRank[out[i].Role] < roleRank[out[j].Role]
			}
			if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
				return out[i].JoinedAt.Before(out[j].JoinedAt)
			}
			return out[i].UserID < out[j].UserID
		})
		return nil
	})
	return out, err
}

func (r membershipRepo) ListCommunityIDsByUser(_ context.Context, userID int64) ([]int64, error) {
	out := []int64{}
	err := r.h.run("Memberships.ListCommunityIDsByUser", func(st *state) error {
		for k := range st.memberships {
			if k.b == userID {
				out = append(out, k.a)
			}
		}
		sortedIDs(out)
		return nil
	})
	return out, err
}

// join requests

type joinRequestRepo struct{ h handle }

func (r joinRequestRepo) Create(_ context.Context, communityID, userID int64) (*models.JoinRequest, error) {
	var out *models.JoinRequest
	err := r.h.run("JoinRequests.Create", func(st *state) error {
		for _, jr := range st.joinRequests {
			if jr.CommunityID == communityID && jr.UserID == userID {
				return apperrors.ErrAlreadyRequested
			}
		}
		jr := models.JoinRequest{ID: st.id(), UserID: userID, CommunityID: communityID, RequestedAt: r.h.s.now()}
		st.joinRequests[jr.ID] = jr
		out = &jr
		return nil
	})
	return out, err
}

func (r joinRequestRepo) GetByID(_ context.Context, id int64) (*models.JoinRequest, error) {
	var out *models.JoinRequest
	err := r.h.run("JoinRequests.GetByID", func(st *state) error {
		jr, ok := st.joinRequests[id]
		if !ok {
			return apperrors.ErrJoinRequestMissing
		}
		out = &jr
		return nil
	})
	return out, err
}

func (r joinRequestRepo) Find(_ context.Context, communityID, userID int64) (*models.JoinRequest, error) {
	var out *models.JoinRequest
	err := r.h.run("JoinRequests.Find", func(st *state) error {
		for _, jr := range st.joinRequests {
			if jr.CommunityID == communityID && jr.UserID == userID {
				jr := jr
				out = &jr
				return nil
			}
		}
		return apperrors.ErrJoinRequestMissing
	})
	return out, err
}

func (r joinRequestRepo) Delete(_ context.Context, id int64) error {
	return r.h.run("JoinRequests.Delete", func(st *state) error {
		if _, ok := st.joinRequests[id]; !ok {
			return apperrors.ErrJoinRequestMissing
		}
		delete(st.joinRequests, id)
		return nil
	})
}

func (r joinRequestRepo) DeleteByCommunity(_ context.Context, communityID int64) (int64, error) {
	var n int64
	err := r.h.run("JoinRequests.DeleteByCommunity", func(st *state) error {
		for id, jr := range st.joinRequests {
			if jr.CommunityID == communityID {
				delete(st.joinRequests, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r joinRequestRepo) ListByCommunity(_ context.Context, communityID int64) ([]models.JoinRequest, error) {
	out := []models.JoinRequest{}
	err := r.h.run("JoinRequests.ListByCommunity", func(st *state) error {
		for _, jr := range st.joinRequests {
			if jr.CommunityID == communityID {
				out = append(out, jr)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}
