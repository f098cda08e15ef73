package dto

// UpdateProfileRequest represents profile update data. Absent fields are left
// unchanged.
type UpdateProfileRequest struct {
	FirstName       *string `json:"firstName,omitempty" binding:"omitempty,notblank,max=100" example:"Ada"`
	LastName        *string `json:"lastName,omitempty" binding:"omitempty,max=100" example:"Lovelace"`
	Bio             *string `json:"bio,omitempty" binding:"omitempty,max=1000" example:"Robotics and tea"`
	AcademicProgram *string `json:"academicProgram,omitempty" example:"Computer Science"`
	AcademicYear    *string `json:"academicYear,omitempty" example:"2"`
}

// InterestsRequest adds interests to the caller's profile
type InterestsRequest struct {
	Interests []string `json:"interests" binding:"required,min=1,dive,max=50" example:"robotics,chess"`
}

// InterestsResponse lists a user's interests
type InterestsResponse struct {
	Interests []string `json:"interests"`
}

// SuggestionsResponse lists vocabulary suggestions for a search term
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// FollowStatusResponse reports whether the caller follows a user
type FollowStatusResponse struct {
	IsFollowing bool `json:"isFollowing"`
}

// CreateAchievementRequest adds an achievement to the caller's profile
type CreateAchievementRequest struct {
	Title        string  `json:"title" binding:"required,notblank,max=200" example:"Dean's list"`
	Description  *string `json:"description,omitempty" binding:"omitempty,max=1000"`
	DateAchieved *string `json:"dateAchieved,omitempty" binding:"omitempty,datetime=2006-01-02" example:"2024-06-30"`
}
