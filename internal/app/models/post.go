package models

import "time"

// MaxPinnedPosts caps the pinned list of a community
const MaxPinnedPosts = 3

// Post belongs to exactly one community; feed posts belong to the Global community.
type Post struct {
	ID            int64     `json:"id" db:"id"`
	CommunityID   int64     `json:"communityId" db:"community_id"`
	UserID        int64     `json:"userId" db:"user_id"`
	Text          *string   `json:"text,omitempty" db:"post_text"`
	ImageURL      *string   `json:"imageUrl,omitempty" db:"image_url"`
	IsMembersOnly bool      `json:"isMembersOnly" db:"is_members_only"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`

	Hashtags  []string `json:"hashtags,omitempty"`
	LikeCount int      `json:"likeCount"`
}

// Hashtag is an entry of the hashtag vocabulary. Names are stored lower-case.
type Hashtag struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"hashtag"`
}

// PostLike records one user liking one post
type PostLike struct {
	UserID  int64     `json:"userId" db:"user_id"`
	PostID  int64     `json:"postId" db:"post_id"`
	LikedAt time.Time `json:"likedAt" db:"liked_at"`
}

// Comment on a post
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	PostID    int64     `json:"postId" db:"post_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Text      string    `json:"text" db:"comment_text"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// PinnedPost places a post in the community's ordered highlight list
type PinnedPost struct {
	ID          int64     `json:"id" db:"id"`
	PostID      int64     `json:"postId" db:"post_id"`
	CommunityID int64     `json:"communityId" db:"community_id"`
	PinnedBy    int64     `json:"pinnedBy" db:"pinned_by"`
	Order       int       `json:"order" db:"sort_order"`
	PinnedAt    time.Time `json:"pinnedAt" db:"pinned_at"`
}

// Announcement is a staff broadcast to a community
type Announcement struct {
	ID          int64     `json:"id" db:"id"`
	CommunityID int64     `json:"communityId" db:"community_id"`
	Title       string    `json:"title" db:"title"`
	Content     string    `json:"content" db:"content"`
	CreatedBy   int64     `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
