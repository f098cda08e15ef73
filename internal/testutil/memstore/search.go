package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
)

func page[T any](rows []T, offset uint64, limit int) []T {
	if offset >= uint64(len(rows)) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r userRepo) Search(_ context.Context, params models.UserSearch, offset uint64, limit int) ([]models.User, error) {
	out := []models.User{}
	err := r.h.run("Users.Search", func(st *state) error {
		for _, row := range st.users {
			u := row.user
			if !u.IsActive || u.RoleType == models.RoleAdmin || u.ID == params.ExcludeID {
				continue
			}
			if params.Text != "" && !containsFold(u.FirstName, params.Text) &&
				!containsFold(u.LastName, params.Text) && !containsFold(deref(u.Bio), params.Text) {
				continue
			}
			if params.UniversityID != nil && (u.UniversityID == nil || *u.UniversityID != *params.UniversityID) {
				continue
			}
			hasAll := true
			for _, i := range params.Interests {
				if _, ok := st.userInterests[u.ID][i]; !ok {
					hasAll = false
					break
				}
			}
			if hasAll {
				out = append(out, u)
			}
		}
		sort.Slice(out, func(i, j int) bool { return lessUser(params.Ordering, out[i], out[j]) })
		out = page(out, offset, limit)
		return nil
	})
	return out, err
}

func lessUser(o models.UserOrdering, a, b models.User) bool {
	desc := strings.HasPrefix(string(o), "-")
	if desc {
		a, b = b, a
	}
	var ka, kb []string
	switch strings.TrimPrefix(string(o), "-") {
	case string(models.OrderFirstName):
		ka, kb = []string{a.FirstName, a.LastName}, []string{b.FirstName, b.LastName}
	case string(models.OrderDateJoined):
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	default:
		ka, kb = []string{a.LastName, a.FirstName}, []string{b.LastName, b.FirstName}
	}
	for i := range ka {
		if ka[i] != kb[i] {
			return ka[i] < kb[i]
		}
	}
	return a.ID < b.ID
}

func (r eventRepo) Search(_ context.Context, params models.EventSearch, offset uint64, limit int) ([]models.Event, error) {
	out := []models.Event{}
	err := r.h.run("Events.Search", func(st *state) error {
		for _, e := range st.events {
			_, member := st.memberships[pair{e.CommunityID, params.ViewerID}]
			if st.communities[e.CommunityID].Privacy != models.PrivacyPublic && !member {
				continue
			}
			if params.Text != "" && !containsFold(e.Name, params.Text) &&
				!containsFold(deref(e.Description), params.Text) && !containsFold(deref(e.Location), params.Text) {
				continue
			}
			if params.EventType != "" && !strings.EqualFold(deref(e.EventType), params.EventType) {
				continue
			}
			if params.From != nil && e.Date.Before(*params.From) {
				continue
			}
			if params.Until != nil && !e.Date.Before(*params.Until) {
				continue
			}
			out = append(out, e)
		}
		sort.Slice(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if strings.HasPrefix(string(params.Ordering), "-") {
				a, b = b, a
			}
			switch params.Ordering {
			case models.OrderEventName, models.OrderEventNameDesc:
				if a.Name != b.Name {
					return a.Name < b.Name
				}
			default:
				if !a.Date.Equal(b.Date) {
					return a.Date.Before(b.Date)
				}
			}
			return a.ID < b.ID
		})
		out = page(out, offset, limit)
		return nil
	})
	return out, err
}

// achievements

type achievementRepo struct{ h handle }

func (r achievementRepo) Create(_ context.Context, a *models.Achievement) (int64, error) {
	err := r.h.run("Achievements.Create", func(st *state) error {
		if _, ok := st.users[a.UserID]; !ok {
			return apperrors.ErrUserNotFound
		}
		a.ID = st.id()
		a.CreatedAt = r.h.s.now()
		st.achievements[a.ID] = *a
		return nil
	})
	return a.ID, err
}

func (r achievementRepo) GetByID(_ context.Context, id int64) (*models.Achievement, error) {
	var out *models.Achievement
	err := r.h.run("Achievements.GetByID", func(st *state) error {
		a, ok := st.achievements[id]
		if !ok {
			return apperrors.ErrAchievementNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r achievementRepo) ListByUser(_ context.Context, userID int64) ([]models.Achievement, error) {
	out := []models.Achievement{}
	err := r.h.run("Achievements.ListByUser", func(st *state) error {
		for _, a := range st.achievements {
			if a.UserID == userID {
				out = append(out, a)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			a, b := out[i].DateAchieved, out[j].DateAchieved
			switch {
			case a != nil && b != nil && !a.Equal(*b):
				return a.After(*b)
			case (a == nil) != (b == nil):
				return a != nil
			}
			return out[i].ID > out[j].ID
		})
		return nil
	})
	return out, err
}

func (r achievementRepo) Delete(_ context.Context, id int64) error {
	return r.h.run("Achievements.Delete", func(st *state) error {
		if _, ok := st.achievements[id]; !ok {
			return apperrors.ErrAchievementNotFound
		}
		delete(st.achievements, id)
		return nil
	})
}
