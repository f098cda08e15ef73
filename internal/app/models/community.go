package models

import (
	"fmt"
	"time"
)

// GlobalCommunityName names the singleton community backing the news feed.
const GlobalCommunityName = "Global Community (News Feed)"

// Privacy controls how users enter a community
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

// ParsePrivacy validates a privacy value. Empty means public.
func ParsePrivacy(s string) (Privacy, error) {
	switch Privacy(s) {
	case "", PrivacyPublic:
		return PrivacyPublic, nil
	case PrivacyPrivate:
		return PrivacyPrivate, nil
	default:
		return "", fmt.Errorf("unknown privacy %q", s)
	}
}

// CommunityKind distinguishes owned communities from the Global feed community.
// The zero value is not valid; use OwnedBy or GlobalKind.
type CommunityKind struct {
	global  bool
	ownerID int64
}

// OwnedBy builds the kind of a community owned by ownerID.
func OwnedBy(ownerID int64) CommunityKind {
	return CommunityKind{ownerID: ownerID}
}

// GlobalKind builds the kind of the Global community.
func GlobalKind() CommunityKind {
	return CommunityKind{global: true}
}

// IsGlobal reports whether this is the Global community
func (k CommunityKind) IsGlobal() bool { return k.global }

// Owner returns the owner id; ok is false for the Global community.
func (k CommunityKind) Owner() (ownerID int64, ok bool) {
	if k.global {
		return 0, false
	}
	return k.ownerID, true
}

// IsOwnedBy reports whether userID owns the community. Never true for Global.
func (k CommunityKind) IsOwnedBy(userID int64) bool {
	return !k.global && k.ownerID != 0 && k.ownerID == userID
}

// Community represents a student community
type Community struct {
	ID          int64         `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Description *string       `json:"description,omitempty" db:"description"`
	Rules       *string       `json:"rules,omitempty" db:"rules"`
	Privacy     Privacy       `json:"privacy" db:"privacy"`
	Kind        CommunityKind `json:"-"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`

	Keywords []string `json:"keywords,omitempty"`
}

// IsPrivate reports whether joining requires an approved request
func (c *Community) IsPrivate() bool {
	return c.Privacy == PrivacyPrivate
}

// Keyword is a normalized entry of the community keyword vocabulary
type Keyword struct {
	ID      int64  `json:"id" db:"id"`
	Keyword string `json:"keyword" db:"keyword"`
}

// KeywordLink joins a community to one of its keywords
type KeywordLink struct {
	CommunityID int64
	KeywordID   int64
}

// MembershipRole is the role a member holds inside one community
type MembershipRole string

const (
	RoleLeader       MembershipRole = "Leader"
	RoleEventManager MembershipRole = "EventManager"
	RoleMember       MembershipRole = "Member"
)

// ParseMembershipRole maps the wire value onto the closed role set.
func ParseMembershipRole(s string) (MembershipRole, error) {
	switch MembershipRole(s) {
	case RoleLeader, RoleEventManager, RoleMember:
		return MembershipRole(s), nil
	default:
		return "", fmt.Errorf("unknown membership role %q", s)
	}
}

// CanManageEvents reports whether the role may create events and announcements
func (r MembershipRole) CanManageEvents() bool {
	return r == RoleLeader || r == RoleEventManager
}

// Membership represents a user's role in a community
type Membership struct {
	UserID      int64          `json:"userId" db:"user_id"`
	CommunityID int64          `json:"communityId" db:"community_id"`
	Role        MembershipRole `json:"role" db:"role"`
	JoinedAt    time.Time      `json:"joinedAt" db:"joined_at"`
}

// JoinRequest is a pending request to join a private community
type JoinRequest struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	CommunityID int64     `json:"communityId" db:"community_id"`
	RequestedAt time.Time `json:"requestedAt" db:"requested_at"`
}
