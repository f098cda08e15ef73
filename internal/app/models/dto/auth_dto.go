package dto

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"ada@uni.ac.uk"`
	Password string `json:"password" binding:"required" example:"analytical1"`
}

// RegisterRequest represents a student registration request
type RegisterRequest struct {
	Email           string  `json:"email" binding:"required,email" example:"ada@uni.ac.uk"`
	Password        string  `json:"password" binding:"required,password" example:"analytical1"`
	FirstName       string  `json:"firstName" binding:"required,notblank,max=100" example:"Ada"`
	LastName        string  `json:"lastName" binding:"max=100" example:"Lovelace"`
	AcademicProgram *string `json:"academicProgram,omitempty" example:"Computer Science"`
	AcademicYear    *string `json:"academicYear,omitempty" example:"2"`
}
