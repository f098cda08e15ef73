package models

// BadgeLevel is the display tone of a profile badge
type BadgeLevel string

const (
	BadgeMuted   BadgeLevel = "muted"
	BadgeSuccess BadgeLevel = "success"
	BadgeInfo    BadgeLevel = "info"
)

// Badge summarizes one activity count on a profile
type Badge struct {
	Key   string     `json:"key"`
	Icon  string     `json:"icon"`
	Title string     `json:"title"`
	Level BadgeLevel `json:"level"`
	Count int        `json:"count"`
}

// badgeTier returns the level and title prefix for count
func badgeTier(count int) (BadgeLevel, string) {
	switch {
	case count < 5:
		return BadgeMuted, "Beginner "
	case count <= 15:
		return BadgeSuccess, "Intermediate "
	default:
		return BadgeInfo, "Advanced "
	}
}

func newBadge(key, icon, label string, count int) Badge {
	level, prefix := badgeTier(count)
	return Badge{Key: key, Icon: icon, Title: prefix + label, Level: level, Count: count}
}

// BadgesFor maps activity counts onto the profile badges, in display order.
func BadgesFor(c ActivityCounts) []Badge {
	return []Badge{
		newBadge("communities", "Users", "Community Member", c.Communities),
		newBadge("posts", "FileText", "Poster", c.Posts),
		newBadge("following", "UserPlus", "Follower", c.Following),
		newBadge("followers", "UserCheck", "Popularity", c.Followers),
		newBadge("comments", "MessageCircle", "Commenter", c.Comments),
	}
}
