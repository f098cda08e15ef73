package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"golang.org/x/sync/errgroup"
)

// Config holds the engine limits
type Config struct {
	CommunityLimit int
	UserLimit      int
	MaxLimit       int
	// TieSeed seeds the shuffle among equal mutual scores; 0 seeds from the clock.
	TieSeed int64
}

// DefaultConfig returns the default limits
func DefaultConfig() Config {
	return Config{CommunityLimit: 5, UserLimit: 6, MaxLimit: 50}
}

// CommunityRecommendation is a ranked community
type CommunityRecommendation struct {
	Community models.Community `json:"community"`
	Score     int              `json:"score"`
}

// UserRecommendation is a ranked user
type UserRecommendation struct {
	User  models.User `json:"user"`
	Score int         `json:"score"`
}

// UserRecommendations carries both user channels
type UserRecommendations struct {
	Mutuals       []UserRecommendation `json:"mutuals"`
	InterestBased []UserRecommendation `json:"interestBased"`
}

// Engine produces recommendations from the store
type Engine struct {
	store  repositories.Store
	cfg    Config
	ties   TiePolicy
	logger zerolog.Logger
}

// NewEngine creates a new recommendation engine. A nil ties uses a
// SeededTies seeded from cfg.TieSeed.
func NewEngine(store repositories.Store, cfg Config, ties TiePolicy, logger zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.CommunityLimit <= 0 {
		cfg.CommunityLimit = def.CommunityLimit
	}
	if cfg.UserLimit <= 0 {
		cfg.UserLimit = def.UserLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if ties == nil {
		seed := cfg.TieSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		ties = NewSeededTies(seed)
	}

	return &Engine{
		store:  store,
		cfg:    cfg,
		ties:   ties,
		logger: logger.With().Str("component", "recommend").Logger(),
	}
}

func (e *Engine) clamp(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return limit
}

// RecommendCommunities ranks communities sharing keywords with the viewer's
// communities. viewerID 0 means unauthenticated.
func (e *Engine) RecommendCommunities(ctx context.Context, viewerID int64, limit int) ([]CommunityRecommendation, error) {
	out := []CommunityRecommendation{}
	if viewerID == 0 {
		return out, nil
	}
	limit = e.clamp(limit, e.cfg.CommunityLimit)
	repos := e.store.Repos()

	var joined, owned []int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		joined, err = repos.Memberships.ListCommunityIDsByUser(gctx, viewerID)
		return err
	})
	g.Go(func() error {
		var err error
		owned, err = repos.Communities.ListOwnedIDs(gctx, viewerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load viewer communities: %w", err)
	}
	if len(joined) == 0 {
		return out, nil
	}

	keywordIDs, err := repos.Keywords.IDsForCommunities(ctx, joined)
	if err != nil {
		return nil, fmt.Errorf("failed to load viewer keywords: %w", err)
	}
	if len(keywordIDs) == 0 {
		return out, nil
	}

	links, err := repos.Keywords.LinksForKeywords(ctx, keywordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate communities: %w", err)
	}

	exclude := make(map[int64]struct{}, len(joined)+len(owned))
	for _, id := range joined {
		exclude[id] = struct{}{}
	}
	for _, id := range owned {
		exclude[id] = struct{}{}
	}

	ranked := RankCommunities(keywordIDs, links, exclude, limit)
	if len(ranked) == 0 {
		return out, nil
	}

	ids := make([]int64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}

	var communities []models.Community
	var keywords map[int64][]string
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		communities, err = repos.Communities.ListByIDs(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		keywords, err = repos.Keywords.ListByCommunities(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load recommended communities: %w", err)
	}

	byID := make(map[int64]models.Community, len(communities))
	for _, c := range communities {
		c.Keywords = keywords[c.ID]
		byID[c.ID] = c
	}
	for _, r := range ranked {
		if c, ok := byID[r.ID]; ok {
			out = append(out, CommunityRecommendation{Community: c, Score: r.Score})
		}
	}

	e.logger.Debug().
		Int64("userID", viewerID).
		Int("candidates", len(links)).
		Int("returned", len(out)).
		Msg("community recommendations computed")

	return out, nil
}

// RecommendMutuals ranks users followed by the people the viewer follows.
func (e *Engine) RecommendMutuals(ctx context.Context, viewerID int64, limit int) ([]UserRecommendation, error) {
	out := []UserRecommendation{}
	if viewerID == 0 {
		return out, nil
	}
	limit = e.clamp(limit, e.cfg.UserLimit)
	repos := e.store.Repos()

	following, err := repos.Follows.ListFollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load following: %w", err)
	}
	if len(following) == 0 {
		return out, nil
	}

	edges, err := repos.Follows.ListEdgesFrom(ctx, following)
	if err != nil {
		return nil, fmt.Errorf("failed to load follow graph: %w", err)
	}

	ranked := RankMutuals(viewerID, following, edges, e.ties, limit)
	if len(ranked) == 0 {
		return out, nil
	}

	ids := make([]int64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	users, err := repos.Users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommended users: %w", err)
	}

	byID := make(map[int64]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, r := range ranked {
		if u, ok := byID[r.ID]; ok {
			out = append(out, UserRecommendation{User: u, Score: r.Score})
		}
	}
	return out, nil
}

// RecommendByInterest is the interest-based channel. It is not implemented
// and always returns an empty list.
func (e *Engine) RecommendByInterest(_ context.Context, _ int64, _ int) ([]UserRecommendation, error) {
	return []UserRecommendation{}, nil
}

// RecommendUsers fills both channels, splitting limit between them.
func (e *Engine) RecommendUsers(ctx context.Context, viewerID int64, limit int) (*UserRecommendations, error) {
	limit = e.clamp(limit, e.cfg.UserLimit)
	mutualLimit, interestLimit := SplitLimit(limit)

	result := &UserRecommendations{
		Mutuals:       []UserRecommendation{},
		InterestBased: []UserRecommendation{},
	}

	if mutualLimit > 0 {
		mutuals, err := e.RecommendMutuals(ctx, viewerID, mutualLimit)
		if err != nil {
			return nil, err
		}
		result.Mutuals = mutuals
	}
	if interestLimit > 0 {
		byInterest, err := e.RecommendByInterest(ctx, viewerID, interestLimit)
		if err != nil {
			return nil, err
		}
		result.InterestBased = byInterest
	}
	return result, nil
}
