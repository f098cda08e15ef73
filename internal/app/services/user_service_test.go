package services

import (
	"context"
	"testing"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/testutil"
	"golang.org/x/crypto/bcrypt"
)

func TestFollowGraph(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewFollowService(f.Store, testutil.Logger(t))
	ann, bo := f.CreateUser("ann"), f.CreateUser("bo")

	if err := svc.Follow(ctx, ann.ID, bo.ID); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	bad := []struct {
		name   string
		actor  int64
		target int64
		want   apperrors.Kind
	}{
		{"anonymous", 0, bo.ID, apperrors.KindUnauthenticated},
		{"self", ann.ID, ann.ID, apperrors.KindInvalidArgument},
		{"unknown user", ann.ID, 9999, apperrors.KindNotFound},
		{"already following", ann.ID, bo.ID, apperrors.KindConflict},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			assertKind(t, svc.Follow(ctx, tt.actor, tt.target), tt.want)
		})
	}

	following, err := svc.ListFollowing(ctx, ann.ID)
	if err != nil || len(following) != 1 || following[0].ID != bo.ID {
		t.Errorf("ListFollowing() = %+v, %v", following, err)
	}
	followers, err := svc.ListFollowers(ctx, bo.ID)
	if err != nil || len(followers) != 1 || followers[0].ID != ann.ID {
		t.Errorf("ListFollowers() = %+v, %v", followers, err)
	}
	if ok, _ := svc.IsFollowing(ctx, ann.ID, bo.ID); !ok {
		t.Error("IsFollowing(ann, bo) = false")
	}
	if ok, _ := svc.IsFollowing(ctx, bo.ID, ann.ID); ok {
		t.Error("IsFollowing(bo, ann) = true")
	}

	if err := svc.Unfollow(ctx, ann.ID, bo.ID); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	assertKind(t, svc.Unfollow(ctx, ann.ID, bo.ID), apperrors.KindNotFound)

	_, err = svc.ListFollowers(ctx, 9999)
	assertKind(t, err, apperrors.KindNotFound)
}

func TestGetProfileBadges(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewUserService(f.Store, nil, testutil.Logger(t))

	star := f.CreateUser("star")
	viewer := f.CreateUser("viewer")
	c := f.CreateCommunity(star.ID, "Stage", models.PrivacyPublic)
	for i := 0; i < 6; i++ {
		fan := f.CreateUser("fan")
		f.Follow(fan.ID, star.ID)
	}
	f.Follow(viewer.ID, star.ID)
	post := f.CreatePost(c.ID, star.ID, "hi")
	f.Comment(post.ID, star.ID, "first")

	profile, err := svc.GetProfile(ctx, star.ID, viewer.ID)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if !profile.IsFollowing {
		t.Error("viewer should be following")
	}
	want := models.ActivityCounts{Communities: 1, Following: 0, Followers: 7, Posts: 1, Comments: 1}
	if profile.Counts != want {
		t.Errorf("counts = %+v, want %+v", profile.Counts, want)
	}

	titles := map[string]string{}
	for _, b := range profile.Badges {
		titles[b.Key] = b.Title
	}
	if titles["followers"] != "Intermediate Popularity" || titles["posts"] != "Beginner Poster" {
		t.Errorf("badges = %v", titles)
	}

	_, err = svc.GetProfile(ctx, 9999, 0)
	assertKind(t, err, apperrors.KindNotFound)
}

func TestInterests(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewUserService(f.Store, nil, testutil.Logger(t))
	u := f.CreateUser("u")

	got, err := svc.AddInterests(ctx, u.ID, []string{"Robotics", " robotics", "AI", ""})
	if err != nil {
		t.Fatalf("AddInterests() error = %v", err)
	}
	if len(got) != 2 || got[0] != "ai" || got[1] != "robotics" {
		t.Errorf("interests = %v", got)
	}

	_, err = svc.AddInterests(ctx, u.ID, []string{" ", "#"})
	assertKind(t, err, apperrors.KindInvalidArgument)

	tests := []struct {
		term string
		want []string
	}{
		{"ro", []string{"robotics"}},
		{"OT", []string{"robotics"}},
		{"r", []string{}},
		{"zz", []string{}},
	}
	for _, tt := range tests {
		got, err := svc.SuggestInterests(ctx, tt.term)
		if err != nil {
			t.Fatalf("SuggestInterests(%q) error = %v", tt.term, err)
		}
		if len(got) != len(tt.want) || (len(got) > 0 && got[0] != tt.want[0]) {
			t.Errorf("SuggestInterests(%q) = %v, want %v", tt.term, got, tt.want)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	storage := newMemBlobStorage()
	svc := NewUserService(f.Store, storage, testutil.Logger(t))
	u := f.CreateUser("u")

	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileParams{
		Bio:          strPtr("  Robotics and tea "),
		AcademicYear: strPtr("2"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if *updated.Bio != "Robotics and tea" || updated.FirstName != "u" {
		t.Errorf("updated = %+v", updated)
	}

	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileParams{FirstName: strPtr(" ")})
	assertKind(t, err, apperrors.KindInvalidArgument)

	withPicture, err := svc.UpdateProfilePicture(ctx, u.ID, Upload{Filename: "me.png", Data: pngHeader})
	if err != nil {
		t.Fatalf("UpdateProfilePicture() error = %v", err)
	}
	stored, err := f.Repos().Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.ProfilePictureURL == nil || *stored.ProfilePictureURL != *withPicture.ProfilePictureURL || storage.count() != 1 {
		t.Errorf("stored picture = %v", stored.ProfilePictureURL)
	}

	_, err = svc.UpdateProfilePicture(ctx, u.ID, Upload{Filename: "notes.txt", Data: []byte("plain text")})
	assertKind(t, err, apperrors.KindInvalidArgument)
}

func newTestAuthService(t *testing.T, f *testutil.Fixtures) *AuthService {
	t.Helper()
	svc := NewAuthService(f.Store, testJWT(), testutil.Logger(t))
	svc.hash = func(p string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.MinCost)
		return string(b), err
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := newTestAuthService(t, f)

	res, err := svc.Register(ctx, RegisterParams{Email: " Ada@Uni.ac.uk ", Password: "analytical1", FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if res.User.Email != "ada@uni.ac.uk" || res.AccessToken == "" || res.TokenType != "Bearer" {
		t.Errorf("register result = %+v", res)
	}

	claims, err := testJWT().ValidateToken(res.AccessToken)
	if err != nil || claims.UserID != res.User.ID {
		t.Fatalf("token does not carry the user: %+v, %v", claims, err)
	}

	if _, err := svc.Login(ctx, "ADA@uni.ac.uk", "analytical1"); err != nil {
		t.Errorf("Login() error = %v", err)
	}

	bad := []struct {
		name   string
		params RegisterParams
		want   apperrors.Kind
	}{
		{"duplicate email", RegisterParams{Email: "ada@uni.ac.uk", Password: "analytical1", FirstName: "A"}, apperrors.KindConflict},
		{"bad email", RegisterParams{Email: "ada", Password: "analytical1", FirstName: "A"}, apperrors.KindInvalidArgument},
		{"short password", RegisterParams{Email: "b@uni.ac.uk", Password: "a1", FirstName: "B"}, apperrors.KindInvalidArgument},
		{"no digit", RegisterParams{Email: "b@uni.ac.uk", Password: "abcdefghij", FirstName: "B"}, apperrors.KindInvalidArgument},
		{"no first name", RegisterParams{Email: "b@uni.ac.uk", Password: "abcdefgh1"}, apperrors.KindInvalidArgument},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.params)
			assertKind(t, err, tt.want)
		})
	}

	for _, creds := range [][2]string{{"ada@uni.ac.uk", "wrong-pass1"}, {"nobody@uni.ac.uk", "analytical1"}} {
		_, err := svc.Login(ctx, creds[0], creds[1])
		assertKind(t, err, apperrors.KindUnauthenticated)
		if !apperrors.Is(err, apperrors.ErrInvalidCredentials) {
			t.Errorf("Login(%s) error = %v, want ErrInvalidCredentials", creds[0], err)
		}
	}
}

func TestSearchUsers(t *testing.T) {
	f := testutil.NewFixtures(t)
	ctx := context.Background()
	svc := NewUserService(f.Store, nil, testutil.Logger(t))

	uni := int64(7)
	other := int64(8)
	create := func(first, last string, university *int64, bio string, role models.RoleType) models.User {
		t.Helper()
		u := models.User{Email: first + "@uni.test", FirstName: first, LastName: last, UniversityID: university, RoleType: role}
		if bio != "" {
			u.Bio = &bio
		}
		if _, err := f.Repos().Users.Create(ctx, &u, "hash"); err != nil {
			t.Fatalf("create %s: %v", first, err)
		}
		return u
	}

	viewer := create("Vera", "Viewer", &uni, "", "")
	ada := create("Ada", "Lovelace", &uni, "Loves chess and maths", "")
	alan := create("Alan", "Turing", &other, "", "")
	grace := create("Grace", "Hopper", &uni, "", "")
	create("Root", "Admin", &uni, "chess", models.RoleAdmin)

	for u, interests := range map[int64][]string{ada.ID: {"chess", "maths"}, alan.ID: {"chess"}, grace.ID: {"maths"}} {
		if err := f.Repos().Users.AddInterests(ctx, u, interests); err != nil {
			t.Fatalf("AddInterests: %v", err)
		}
	}

	tests := []struct {
		name   string
		params UserSearchParams
		page   int
		size   int
		want   []int64
	}{
		{"everyone but self and admins by last name", UserSearchParams{}, 1, 10, []int64{grace.ID, ada.ID, alan.ID}},
		{"text matches bio", UserSearchParams{Text: " CHESS "}, 1, 10, []int64{ada.ID}},
		{"text matches name", UserSearchParams{Text: "tur"}, 1, 10, []int64{alan.ID}},
		{"university", UserSearchParams{UniversityID: &uni}, 1, 10, []int64{grace.ID, ada.ID}},
		{"every interest must match", UserSearchParams{Interests: []string{"#Chess", "maths"}}, 1, 10, []int64{ada.ID}},
		{"single interest", UserSearchParams{Interests: []string{"chess"}}, 1, 10, []int64{ada.ID, alan.ID}},
		{"first name descending", UserSearchParams{Ordering: "-first_name"}, 1, 10, []int64{grace.ID, alan.ID, ada.ID}},
		{"unknown ordering falls back to last name", UserSearchParams{Ordering: "password"}, 1, 10, []int64{grace.ID, ada.ID, alan.ID}},
		{"second page", UserSearchParams{}, 2, 2, []int64{alan.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.SearchUsers(ctx, viewer.ID, tt.params, tt.page, tt.size)
			if err != nil {
				t.Fatalf("SearchUsers() error = %v", err)
			}
			got := make([]int64, 0, len(users))
			for _, u := range users {
				got = append(got, u.ID)
			}
			if !equalIDs(got, tt.want) {
				t.Errorf("SearchUsers() = %v, want %v", got, tt.want)
			}
		})
	}

	_, err := svc.SearchUsers(ctx, 0, UserSearchParams{}, 1, 10)
	assertKind(t, err, apperrors.KindUnauthenticated)
}
