package models

import "testing"

func TestBadgeTier(t *testing.T) {
	tests := []struct {
		count  int
		level  BadgeLevel
		prefix string
	}{
		{0, BadgeMuted, "Beginner "},
		{4, BadgeMuted, "Beginner "},
		{5, BadgeSuccess, "Intermediate "},
		{15, BadgeSuccess, "Intermediate "},
		{16, BadgeInfo, "Advanced "},
	}

	for _, tt := range tests {
		level, prefix := badgeTier(tt.count)
		if level != tt.level || prefix != tt.prefix {
			t.Errorf("badgeTier(%d) = (%q, %q), want (%q, %q)", tt.count, level, prefix, tt.level, tt.prefix)
		}
	}
}

func TestBadgesFor(t *testing.T) {
	badges := BadgesFor(ActivityCounts{Communities: 2, Following: 5, Followers: 20, Posts: 15, Comments: 0})

	want := map[string]string{
		"communities": "Beginner Community Member",
		"posts":       "Intermediate Poster",
		"following":   "Intermediate Follower",
		"followers":   "Advanced Popularity",
		"comments":    "Beginner Commenter",
	}
	if len(badges) != len(want) {
		t.Fatalf("got %d badges, want %d", len(badges), len(want))
	}
	for _, b := range badges {
		if b.Title != want[b.Key] {
			t.Errorf("badge %s title = %q, want %q", b.Key, b.Title, want[b.Key])
		}
	}
	if badges[3].Level != BadgeInfo || badges[3].Count != 20 {
		t.Errorf("followers badge = %+v", badges[3])
	}
}
