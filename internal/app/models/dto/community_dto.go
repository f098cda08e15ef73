package dto

// CreateCommunityRequest represents the body of a new community
type CreateCommunityRequest struct {
	Name        string   `json:"name" binding:"required,notblank,max=100" example:"Chess Club"`
	Description *string  `json:"description,omitempty" binding:"omitempty,max=2000" example:"Weekly blitz nights"`
	Rules       *string  `json:"rules,omitempty" binding:"omitempty,max=2000"`
	Privacy     string   `json:"privacy" binding:"omitempty,oneof=public private" example:"public"`
	Keywords    []string `json:"keywords,omitempty" binding:"omitempty,dive,max=50" example:"chess,strategy"`
}

// UpdateKeywordsRequest replaces a community's keywords
type UpdateKeywordsRequest struct {
	Keywords []string `json:"keywords" binding:"dive,max=50" example:"chess,strategy"`
}

// TransferOwnershipRequest names the member who becomes owner
type TransferOwnershipRequest struct {
	NewOwnerID int64 `json:"newOwnerId" binding:"required,min=1" example:"42"`
}

// UpdateRoleRequest sets a member's role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required" example:"EventManager"`
}

// PinPostRequest pins a post to a community
type PinPostRequest struct {
	PostID int64 `json:"postId" binding:"required,min=1" example:"7"`
}

// ReorderPinsRequest lists pin ids (not post ids) in their new order
type ReorderPinsRequest struct {
	PinIDs []int64 `json:"pinIds" binding:"required,dive,min=1" example:"12,10,11"`
}

// CreateAnnouncementRequest represents a new announcement
type CreateAnnouncementRequest struct {
	Title   string `json:"title" binding:"required,notblank,max=200" example:"Tournament moved"`
	Content string `json:"content" binding:"required,notblank" example:"We now meet in room 2.14"`
}

// CreateCommentRequest represents a new comment
type CreateCommentRequest struct {
	Text string `json:"text" binding:"required,notblank,max=2000" example:"Great game!"`
}
