package models

import "time"

// Follow is a directed edge follower -> followed
type Follow struct {
	FollowerID int64     `json:"followerId" db:"follower_id"`
	FollowedID int64     `json:"followedId" db:"followed_id"`
	FollowedAt time.Time `json:"followedAt" db:"followed_at"`
}
