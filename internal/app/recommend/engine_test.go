package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/testutil"
)

func TestRecommendCommunitiesExcludesJoinedAndOwned(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()

	viewer := f.CreateUser("viewer")
	other := f.CreateUser("other")

	joined := f.CreateCommunity(other.ID, "Go Club", models.PrivacyPublic, "golang", "backend")
	f.AddMember(joined.ID, viewer.ID, models.RoleMember)
	owned := f.CreateCommunity(viewer.ID, "Rust Club", models.PrivacyPublic, "rust", "backend")

	both := f.CreateCommunity(other.ID, "Systems", models.PrivacyPublic, "golang", "backend", "rust")
	one := f.CreateCommunity(other.ID, "Web", models.PrivacyPublic, "backend")
	f.CreateCommunity(other.ID, "Chess", models.PrivacyPublic, "chess")

	engine := NewEngine(f.Store, DefaultConfig(), StableTies{}, testutil.Logger(t))
	got, err := engine.RecommendCommunities(ctx, viewer.ID, 0)
	if err != nil {
		t.Fatalf("RecommendCommunities() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 recommendations, got %d: %+v", len(got), got)
	}
	if got[0].Community.ID != both.ID || got[0].Score != 3 {
		t.Errorf("first = %d (score %d), want %d (score 3)", got[0].Community.ID, got[0].Score, both.ID)
	}
	if got[1].Community.ID != one.ID || got[1].Score != 1 {
		t.Errorf("second = %d (score %d), want %d (score 1)", got[1].Community.ID, got[1].Score, one.ID)
	}
	for _, r := range got {
		if r.Community.ID == joined.ID || r.Community.ID == owned.ID {
			t.Errorf("recommended joined or owned community %d", r.Community.ID)
		}
	}
	if len(got[0].Community.Keywords) != 3 {
		t.Errorf("keywords not hydrated: %v", got[0].Community.Keywords)
	}
}

func TestRecommendCommunitiesEmptyCases(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()

	loner := f.CreateUser("loner")
	other := f.CreateUser("other")
	f.CreateCommunity(other.ID, "Go Club", models.PrivacyPublic, "golang")

	bare := f.CreateCommunity(other.ID, "No Keywords", models.PrivacyPublic)
	member := f.CreateUser("member")
	f.AddMember(bare.ID, member.ID, models.RoleMember)

	engine := NewEngine(f.Store, DefaultConfig(), StableTies{}, testutil.Logger(t))

	tests := []struct {
		name   string
		viewer int64
	}{
		{"unauthenticated", 0},
		{"no memberships", loner.ID},
		{"joined communities without keywords", member.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.RecommendCommunities(ctx, tt.viewer, 5)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected empty, got %+v", got)
			}
		})
	}
}

func TestRecommendUsersSplitsChannels(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()

	viewer := f.CreateUser("viewer")
	a := f.CreateUser("a")
	b := f.CreateUser("b")
	f.Follow(viewer.ID, a.ID)
	f.Follow(viewer.ID, b.ID)

	var candidates []models.User
	for i := 0; i < 5; i++ {
		c := f.CreateUser("candidate")
		candidates = append(candidates, c)
		f.Follow(a.ID, c.ID)
	}
	f.Follow(b.ID, candidates[4].ID)
	f.Follow(a.ID, viewer.ID)
	f.Follow(a.ID, b.ID)

	engine := NewEngine(f.Store, DefaultConfig(), StableTies{}, testutil.Logger(t))
	got, err := engine.RecommendUsers(ctx, viewer.ID, 6)
	if err != nil {
		t.Fatalf("RecommendUsers() error = %v", err)
	}

	if len(got.Mutuals) != 3 {
		t.Fatalf("mutual channel size = %d, want 3", len(got.Mutuals))
	}
	if len(got.InterestBased) != 0 {
		t.Errorf("interest channel should be empty, got %d", len(got.InterestBased))
	}
	if got.Mutuals[0].User.ID != candidates[4].ID || got.Mutuals[0].Score != 2 {
		t.Errorf("top mutual = %d (score %d), want %d (score 2)", got.Mutuals[0].User.ID, got.Mutuals[0].Score, candidates[4].ID)
	}
	for _, m := range got.Mutuals {
		if m.User.ID == viewer.ID || m.User.ID == a.ID || m.User.ID == b.ID {
			t.Errorf("recommended self or followed user %d", m.User.ID)
		}
	}
}

func TestRecommendMutualsEmptyWhenFollowingNobody(t *testing.T) {
	f := testutil.NewFixtures(t)
	viewer := f.CreateUser("viewer")
	x := f.CreateUser("x")
	y := f.CreateUser("y")
	f.Follow(x.ID, y.ID)

	engine := NewEngine(f.Store, DefaultConfig(), nil, testutil.Logger(t))
	got, err := engine.RecommendMutuals(context.Background(), viewer.ID, 6)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %+v", got)
	}
}

func TestRecommendCommunitiesStoreFailure(t *testing.T) {
	f := testutil.NewFixtures(t)
	viewer := f.CreateUser("viewer")
	other := f.CreateUser("other")
	c := f.CreateCommunity(other.ID, "Go Club", models.PrivacyPublic, "golang")
	f.AddMember(c.ID, viewer.ID, models.RoleMember)

	boom := errors.New("connection reset")
	f.Store.FailOn("Keywords.LinksForKeywords", boom)

	engine := NewEngine(f.Store, DefaultConfig(), StableTies{}, testutil.Logger(t))
	if _, err := engine.RecommendCommunities(context.Background(), viewer.ID, 5); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestLimitClamp(t *testing.T) {
	e := NewEngine(nil, Config{MaxLimit: 10}, StableTies{}, testutil.Logger(t))
	if got := e.clamp(0, 5); got != 5 {
		t.Errorf("clamp(0) = %d", got)
	}
	if got := e.clamp(100, 5); got != 10 {
		t.Errorf("clamp(100) = %d", got)
	}
	if got := e.clamp(3, 5); got != 3 {
		t.Errorf("clamp(3) = %d", got)
	}
}
