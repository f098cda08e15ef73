package models

import (
	"time"
)

// RoleType is the account-level role tag. Community rights come from
// Membership roles, not from this tag.
type RoleType string

const (
	RoleStudent          RoleType = "STUDENT"
	RoleTypeEventManager RoleType = "EVENT_MANAGER"
	RoleCommunityLeader  RoleType = "COMMUNITY_LEADER"
	RoleAdmin            RoleType = "ADMIN"
)

// User defines the user model based on the 'users' table
type User struct {
	ID                int64     `json:"id" db:"id" example:"1"`
	Email             string    `json:"email" db:"email" example:"student@uni.ac.uk"`
	FirstName         string    `json:"firstName" db:"first_name" example:"Ada"`
	LastName          string    `json:"lastName" db:"last_name" example:"Lovelace"`
	RoleType          RoleType  `json:"roleType" db:"role_type" example:"STUDENT"`
	UniversityID      *int64    `json:"universityId,omitempty" db:"university_id"`
	Bio               *string   `json:"bio,omitempty" db:"bio"`
	AcademicProgram   *string   `json:"academicProgram,omitempty" db:"academic_program"`
	AcademicYear      *string   `json:"academicYear,omitempty" db:"academic_year"`
	ProfilePictureURL *string   `json:"profilePictureUrl,omitempty" db:"profile_picture_url"`
	IsActive          bool      `json:"isActive" db:"is_active"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// FullName returns "First Last"
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Interest is a normalized entry of the interest vocabulary
type Interest struct {
	ID       int64  `json:"id" db:"id"`
	Interest string `json:"interest" db:"interest"`
}

// ActivityCounts feeds the profile badges
type ActivityCounts struct {
	Communities int `json:"communities"`
	Following   int `json:"following"`
	Followers   int `json:"followers"`
	Posts       int `json:"posts"`
	Comments    int `json:"comments"`
}

// Achievement is a milestone a user lists on their profile
type Achievement struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"userId" db:"user_id"`
	Title        string     `json:"title" db:"title"`
	Description  *string    `json:"description,omitempty" db:"description"`
	DateAchieved *time.Time `json:"dateAchieved,omitempty" db:"date_achieved" swaggertype:"string" example:"2024-05-01"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

// UserOrdering is one of the sort orders user search accepts
type UserOrdering string

const (
	OrderLastName       UserOrdering = "last_name"
	OrderLastNameDesc   UserOrdering = "-last_name"
	OrderFirstName      UserOrdering = "first_name"
	OrderFirstNameDesc  UserOrdering = "-first_name"
	OrderDateJoined     UserOrdering = "date_joined"
	OrderDateJoinedDesc UserOrdering = "-date_joined"
)

// ParseUserOrdering maps unknown or blank values to OrderLastName.
func ParseUserOrdering(s string) UserOrdering {
	switch o := UserOrdering(s); o {
	case OrderLastName, OrderLastNameDesc, OrderFirstName, OrderFirstNameDesc, OrderDateJoined, OrderDateJoinedDesc:
		return o
	default:
		return OrderLastName
	}
}

// UserSearch filters the user directory. Interests must all be present.
type UserSearch struct {
	Text         string
	UniversityID *int64
	Interests    []string
	Ordering     UserOrdering
	ExcludeID    int64
}
