package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/auth"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/filestorage"
	"github.com/unihub/unihub/internal/pkg/helpers"
)

// suggestionLimit caps keyword and interest suggestions
const suggestionLimit = 10

// suggestionTerm normalizes a search term; ok is false when it is too short to search.
func suggestionTerm(term string) (string, bool) {
	term = models.NormalizeTag(term)
	return term, utf8.RuneCountInString(term) >= 2
}

// Profile is a user as shown on their profile page
type Profile struct {
	User        models.User           `json:"user"`
	Interests   []string              `json:"interests"`
	Counts      models.ActivityCounts `json:"counts"`
	Badges      []models.Badge        `json:"badges"`
	IsFollowing bool                  `json:"isFollowing"`
}

// UpdateProfileParams holds the editable profile fields. Nil leaves a field unchanged.
type UpdateProfileParams struct {
	FirstName       *string
	LastName        *string
	Bio             *string
	AcademicProgram *string
	AcademicYear    *string
}

// UserSearchParams holds the user directory filters. Interests must all
// match; Ordering falls back to last name when unknown.
type UserSearchParams struct {
	Text         string
	UniversityID *int64
	Interests    []string
	Ordering     string
}

// UserService defines the interface for user operations
type UserService interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetProfile(ctx context.Context, userID, viewerID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, actorID int64, params UpdateProfileParams) (*models.User, error)
	UpdateProfilePicture(ctx context.Context, actorID int64, upload Upload) (*models.User, error)
	AddInterests(ctx context.Context, actorID int64, interests []string) ([]string, error)
	SuggestInterests(ctx context.Context, term string) ([]string, error)
	SearchUsers(ctx context.Context, viewerID int64, params UserSearchParams, page, size int) ([]models.User, error)
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	store   repositories.Store
	storage filestorage.BlobStorage
	logger  zerolog.Logger
}

// NewUserService creates a new UserService. storage may be nil when uploads are disabled.
func NewUserService(store repositories.Store, storage filestorage.BlobStorage, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		store:   store,
		storage: storage,
		logger:  logger.With().Str("service", "users").Logger(),
	}
}

// GetUser retrieves a user by ID
func (s *userServiceImpl) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.store.Repos().Users.GetByID(ctx, id)
}

// GetProfile loads a user with interests, activity counts and badges
func (s *userServiceImpl) GetProfile(ctx context.Context, userID, viewerID int64) (*Profile, error) {
	repos := s.store.Repos()
	user, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	interests, err := repos.Users.ListInterests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	counts, err := repos.Users.ActivityCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}

	profile := &Profile{
		User:      *user,
		Interests: interests,
		Counts:    counts,
		Badges:    models.BadgesFor(counts),
	}
	if viewerID > 0 && viewerID != userID {
		if profile.IsFollowing, err = repos.Follows.Exists(ctx, viewerID, userID); err != nil {
			return nil, fmt.Errorf("failed to check follow: %w", err)
		}
	}
	return profile, nil
}

// UpdateProfile changes the actor's own profile fields
func (s *userServiceImpl) UpdateProfile(ctx context.Context, actorID int64, params UpdateProfileParams) (*models.User, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	user, err := repos.Users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if params.FirstName != nil {
		if user.FirstName, err = requiredText("first name", *params.FirstName); err != nil {
			return nil, err
		}
	}
	if params.LastName != nil {
		user.LastName = strings.TrimSpace(*params.LastName)
	}
	if params.Bio != nil {
		user.Bio = optionalText(params.Bio)
	}
	if params.AcademicProgram != nil {
		user.AcademicProgram = optionalText(params.AcademicProgram)
	}
	if params.AcademicYear != nil {
		user.AcademicYear = optionalText(params.AcademicYear)
	}

	if err := repos.Users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// UpdateProfilePicture stores an image and points the actor's profile at it
func (s *userServiceImpl) UpdateProfilePicture(ctx context.Context, actorID int64, upload Upload) (*models.User, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, apperrors.NewBadRequestError("image uploads are not enabled")
	}
	if len(upload.Data) == 0 {
		return nil, apperrors.NewBadRequestError("file is empty")
	}
	if contentType := http.DetectContentType(upload.Data); !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("file is not an image: %s", contentType))
	}

	repos := s.store.Repos()
	user, err := repos.Users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	objectPath := filestorage.ObjectPath(fmt.Sprintf("profile_pictures/user_%d", actorID), upload.Filename)
	url, err := s.storage.Store(ctx, objectPath, upload.Data)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to store image", err)
	}

	// TODO: remove the previous picture once users keep the object path next to the URL.
	if err := repos.Users.SetProfilePicture(ctx, actorID, &url); err != nil {
		if derr := s.storage.Delete(context.WithoutCancel(ctx), objectPath); derr != nil {
			s.logger.Warn().Err(derr).Str("path", objectPath).Msg("Failed to remove orphaned profile picture")
		}
		return nil, fmt.Errorf("failed to update profile picture: %w", err)
	}

	user.ProfilePictureURL = &url
	s.logger.Debug().Int64("userID", actorID).Str("path", objectPath).Msg("Profile picture updated")
	return user, nil
}

// AddInterests adds normalized interests to the actor's profile and returns the full set
func (s *userServiceImpl) AddInterests(ctx context.Context, actorID int64, interests []string) ([]string, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}
	normalized := models.NormalizeTags(interests)
	if len(normalized) == 0 {
		return nil, apperrors.NewBadRequestError("at least one interest is required")
	}

	var out []string
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if err := repos.Users.AddInterests(ctx, actorID, normalized); err != nil {
			return err
		}
		var err error
		out, err = repos.Users.ListInterests(ctx, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SuggestInterests returns up to suggestionLimit interests matching term
func (s *userServiceImpl) SuggestInterests(ctx context.Context, term string) ([]string, error) {
	term, ok := suggestionTerm(term)
	if !ok {
		return []string{}, nil
	}
	out, err := s.store.Repos().Users.SuggestInterests(ctx, term, suggestionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest interests: %w", err)
	}
	return out, nil
}

// SearchUsers pages through other users matching params
func (s *userServiceImpl) SearchUsers(ctx context.Context, viewerID int64, params UserSearchParams, page, size int) ([]models.User, error) {
	if err := auth.RequireUser(viewerID); err != nil {
		return nil, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	users, err := s.store.Repos().Users.Search(ctx, models.UserSearch{
		Text:         strings.TrimSpace(params.Text),
		UniversityID: params.UniversityID,
		Interests:    models.NormalizeTags(params.Interests),
		Ordering:     models.ParseUserOrdering(params.Ordering),
		ExcludeID:    viewerID,
	}, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
