package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/dberrors"
)

var userColumns = []string{
	"id", "email", "first_name", "last_name", "role_type", "university_id",
	"bio", "academic_program", "academic_year", "profile_picture_url", "is_active", "created_at",
}

// UserRepository handles database operations for users and their interests
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row, user *models.User, extra ...any) error {
	dest := []any{
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.RoleType, &user.UniversityID,
		&user.Bio, &user.AcademicProgram, &user.AcademicYear, &user.ProfilePictureURL, &user.IsActive, &user.CreatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User, passwordHash string) (int64, error) {
	if user.RoleType == "" {
		user.RoleType = models.RoleStudent
	}

	query := squirrel.Insert("users").
		Columns("email", "password_hash", "first_name", "last_name", "role_type", "university_id",
			"bio", "academic_program", "academic_year").
		Values(user.Email, passwordHash, user.FirstName, user.LastName, user.RoleType, user.UniversityID,
			user.Bio, user.AcademicProgram, user.AcademicYear).
		Suffix("RETURNING id, created_at, is_active").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt, &user.IsActive); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return 0, apperrors.ErrEmailAlreadyExists
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return user.ID, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := squirrel.Select(userColumns...).
		From("users").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var user models.User
	if err := scanUser(r.db.QueryRow(ctx, sql, args...), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	return &user, nil
}

// GetByEmail retrieves a user and the stored password hash
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	query := squirrel.Select(userColumns...).
		Column("password_hash").
		From("users").
		Where("LOWER(email) = LOWER(?)", email).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("error building SQL: %w", err)
	}

	var user models.User
	var hash string
	if err := scanUser(r.db.QueryRow(ctx, sql, args...), &user, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.ErrUserNotFound
		}
		return nil, "", fmt.Errorf("error executing query: %w", err)
	}

	return &user, hash, nil
}

// Exists checks whether a user row exists
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error executing query: %w", err)
	}
	return exists, nil
}

// UpdateProfile writes the editable profile fields of user
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := squirrel.Update("users").
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("bio", user.Bio).
		Set("academic_program", user.AcademicProgram).
		Set("academic_year", user.AcademicYear).
		Where("id = ?", user.ID).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// SetProfilePicture stores the picture URL; nil clears it
func (r *UserRepository) SetProfilePicture(ctx context.Context, userID int64, url *string) error {
	query := squirrel.Update("users").
		Set("profile_picture_url", url).
		Where("id = ?", userID).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// ListByIDs retrieves users by ID in no particular order
func (r *UserRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	query := squirrel.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": ids}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, len(ids))
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// ActivityCounts aggregates the numbers behind the profile badges in one round trip
func (r *UserRepository) ActivityCounts(ctx context.Context, userID int64) (models.ActivityCounts, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM memberships WHERE user_id = $1),
			(SELECT COUNT(*) FROM follows WHERE follower_id = $1),
			(SELECT COUNT(*) FROM follows WHERE followed_id = $1),
			(SELECT COUNT(*) FROM posts WHERE user_id = $1),
			(SELECT COUNT(*) FROM comments WHERE user_id = $1)
	`

	var c models.ActivityCounts
	err := r.db.QueryRow(ctx, query, userID).Scan(&c.Communities, &c.Following, &c.Followers, &c.Posts, &c.Comments)
	if err != nil {
		return models.ActivityCounts{}, fmt.Errorf("error executing query: %w", err)
	}
	return c, nil
}

// AddInterests get-or-creates each interest and links it to the user
func (r *UserRepository) AddInterests(ctx context.Context, userID int64, interests []string) error {
	if len(interests) == 0 {
		return nil
	}

	const query = `
		WITH input AS (
			SELECT DISTINCT unnest($2::text[]) AS interest
		), inserted AS (
			INSERT INTO interests (interest)
			SELECT interest FROM input
			ON CONFLICT (interest) DO UPDATE SET interest = EXCLUDED.interest
			RETURNING id
		)
		INSERT INTO user_interests (user_id, interest_id)
		SELECT $1, id FROM inserted
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, userID, interests); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// ListInterests returns the user's interests alphabetically
func (r *UserRepository) ListInterests(ctx context.Context, userID int64) ([]string, error) {
	query := squirrel.Select("i.interest").
		From("user_interests ui").
		Join("interests i ON i.id = ui.interest_id").
		Where("ui.user_id = ?", userID).
		OrderBy("i.interest").
		PlaceholderFormat(squirrel.Dollar)

	return queryStrings(ctx, r.db, query)
}

// SuggestInterests searches the interest vocabulary, prefix matches first
func (r *UserRepository) SuggestInterests(ctx context.Context, term string, limit int) ([]string, error) {
	query := squirrel.Select("interest").
		From("interests").
		Where("interest ILIKE ?", "%"+escapeLike(term)+"%").
		OrderByClause("(interest ILIKE ?) DESC, interest", escapeLike(term)+"%").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	return queryStrings(ctx, r.db, query)
}

var userOrderings = map[models.UserOrdering]string{
	models.OrderLastName:       "last_name ASC, first_name ASC, id ASC",
	models.OrderLastNameDesc:   "last_name DESC, first_name DESC, id DESC",
	models.OrderFirstName:      "first_name ASC, last_name ASC, id ASC",
	models.OrderFirstNameDesc:  "first_name DESC, last_name DESC, id DESC",
	models.OrderDateJoined:     "created_at ASC, id ASC",
	models.OrderDateJoinedDesc: "created_at DESC, id DESC",
}

// Search pages through active non-admin users matching params
func (r *UserRepository) Search(ctx context.Context, params models.UserSearch, offset uint64, limit int) ([]models.User, error) {
	order, ok := userOrderings[params.Ordering]
	if !ok {
		order = userOrderings[models.OrderLastName]
	}

	query := squirrel.Select(userColumns...).
		From("users").
		Where("is_active").
		Where(squirrel.NotEq{"role_type": models.RoleAdmin}).
		OrderBy(order).
		Offset(offset).
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	if params.ExcludeID > 0 {
		query = query.Where(squirrel.NotEq{"id": params.ExcludeID})
	}
	if params.Text != "" {
		pattern := "%" + escapeLike(params.Text) + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"bio": pattern},
		})
	}
	if params.UniversityID != nil {
		query = query.Where(squirrel.Eq{"university_id": *params.UniversityID})
	}
	for _, interest := range params.Interests {
		query = query.Where(`EXISTS (
			SELECT 1 FROM user_interests ui
			JOIN interests i ON i.id = ui.interest_id
			WHERE ui.user_id = users.id AND i.interest = ?)`, interest)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
