// Package recommend ranks communities and users for a viewer.
//
// Communities are scored by how many keywords they share with the
// communities the viewer already belongs to. Users are scored by how many of
// the people the viewer follows also follow them. Scoring is pure; the Engine
// fetches the inputs with set-based queries and hydrates the results.
package recommend

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/unihub/unihub/internal/app/models"
)

// Scored is a candidate id with its score
type Scored struct {
	ID    int64
	Score int
}

// TiePolicy orders a run of candidates that share the same score.
type TiePolicy interface {
	Order(run []Scored)
}

// SeededTies shuffles equal-score runs with a seeded source, so a fixed seed
// reproduces the same ranking.
type SeededTies struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededTies creates a shuffling tie policy
func NewSeededTies(seed int64) *SeededTies {
	return &SeededTies{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // shuffling, not security
}

// Order shuffles run in place
func (p *SeededTies) Order(run []Scored) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng.Shuffle(len(run), func(i, j int) { run[i], run[j] = run[j], run[i] })
}

// StableTies orders equal scores by ascending id.
type StableTies struct{}

// Order sorts run by id
func (StableTies) Order(run []Scored) {
	sort.Slice(run, func(i, j int) bool { return run[i].ID < run[j].ID })
}

// RankCommunities scores every candidate community by the number of distinct
// viewer keywords it carries, drops excluded ids and zero scores, and orders
// by score desc then id desc.
func RankCommunities(viewerKeywords []int64, links []models.KeywordLink, exclude map[int64]struct{}, limit int) []Scored {
	if len(viewerKeywords) == 0 || limit <= 0 {
		return []Scored{}
	}

	want := make(map[int64]struct{}, len(viewerKeywords))
	for _, k := range viewerKeywords {
		want[k] = struct{}{}
	}

	type linkKey struct{ c, k int64 }
	seen := make(map[linkKey]struct{}, len(links))
	scores := map[int64]int{}
	for _, l := range links {
		if _, ok := want[l.KeywordID]; !ok {
			continue
		}
		if _, ok := exclude[l.CommunityID]; ok {
			continue
		}
		key := linkKey{l.CommunityID, l.KeywordID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		scores[l.CommunityID]++
	}

	ranked := make([]Scored, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, Scored{ID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID > ranked[j].ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// RankMutuals scores each user reachable from the viewer's followees by the
// number of followees that follow them. The viewer and anyone already
// followed are never candidates. Equal scores are ordered by ties.
func RankMutuals(viewerID int64, following []int64, edges []models.Follow, ties TiePolicy, limit int) []Scored {
	if len(following) == 0 || limit <= 0 {
		return []Scored{}
	}

	followed := make(map[int64]struct{}, len(following))
	for _, id := range following {
		followed[id] = struct{}{}
	}

	type edge struct{ from, to int64 }
	seen := make(map[edge]struct{}, len(edges))
	scores := map[int64]int{}
	for _, f := range edges {
		e := edge{f.FollowerID, f.FollowedID}
		if _, ok := followed[e.from]; !ok {
			continue
		}
		if e.to == viewerID {
			continue
		}
		if _, ok := followed[e.to]; ok {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		scores[e.to]++
	}

	ranked := make([]Scored, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, Scored{ID: id, Score: score})
	}
	// map order is random; fix a base order before the tie policy runs
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	if ties == nil {
		ties = StableTies{}
	}
	for start := 0; start < len(ranked); {
		end := start + 1
		for end < len(ranked) && ranked[end].Score == ranked[start].Score {
			end++
		}
		if end-start > 1 {
			ties.Order(ranked[start:end])
		}
		start = end
	}

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// SplitLimit divides a combined user limit between the mutual and interest
// channels: mutual gets the ceiling half.
func SplitLimit(limit int) (mutual, interest int) {
	if limit <= 0 {
		return 0, 0
	}
	mutual = (limit + 1) / 2
	return mutual, limit - mutual
}
