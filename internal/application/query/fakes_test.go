package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
	"github.com/snapclash/snapclash-hub/internal/domain/profile"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
	"github.com/snapclash/snapclash-hub/internal/domain/social"
)

var errStoreDown = errors.New("store down")

// memStore is an in-memory implementation of the read ports.
type memStore struct {
	mu          sync.Mutex
	challenges  []challenge.Challenge
	submissions []challenge.Submission
	ratings     []challenge.Rating
	reactions   []challenge.Reaction
	friendships []social.Friendship
	profiles    profile.Directory

	failOn string
	calls  map[string]int
}

var (
	_ challenge.Repository = (*memStore)(nil)
	_ social.Repository    = (*memStore)(nil)
	_ profile.Repository   = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{profiles: profile.Directory{}, calls: map[string]int{}}
}

func (m *memStore) track(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if m.failOn == op {
		return errStoreDown
	}
	return nil
}

func (m *memStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func inSet(ids []string, id string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (m *memStore) ListChallenges(_ context.Context, f challenge.ChallengeFilter) ([]challenge.Challenge, error) {
	if err := m.track("ListChallenges"); err != nil {
		return nil, err
	}
	var out []challenge.Challenge
	for _, c := range m.challenges {
		switch {
		case f.IDs != nil && !inSet(f.IDs, c.ID):
		case f.Visibility != "" && c.Visibility != f.Visibility:
		case f.Status != "" && c.Status != f.Status:
		case f.ExcludeStatus != "" && c.Status == f.ExcludeStatus:
		case !f.CreatedAfter.IsZero() && c.CreatedAt.Before(f.CreatedAfter):
		case !f.EndedAfter.IsZero() && c.EndAt.Before(f.EndedAfter):
		default:
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ListSubmissions(_ context.Context, f challenge.SubmissionFilter) ([]challenge.Submission, error) {
	if err := m.track("ListSubmissions"); err != nil {
		return nil, err
	}
	var out []challenge.Submission
	for _, s := range m.submissions {
		if !inSet(f.ChallengeIDs, s.ChallengeID) || !inSet(f.UserIDs, s.UserID) {
			continue
		}
		if !f.CreatedAfter.IsZero() && s.CreatedAt.Before(f.CreatedAfter) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) ListRatings(_ context.Context, f challenge.RatingFilter) ([]challenge.Rating, error) {
	if err := m.track("ListRatings"); err != nil {
		return nil, err
	}
	var out []challenge.Rating
	for _, r := range m.ratings {
		if inSet(f.SubmissionIDs, r.SubmissionID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListRatingsWithOwner(context.Context) ([]challenge.OwnedRating, error) {
	if err := m.track("ListRatingsWithOwner"); err != nil {
		return nil, err
	}
	owners := make(map[string]string, len(m.submissions))
	for _, s := range m.submissions {
		owners[s.ID] = s.UserID
	}
	out := make([]challenge.OwnedRating, 0, len(m.ratings))
	for _, r := range m.ratings {
		out = append(out, challenge.OwnedRating{Rating: r, OwnerID: owners[r.SubmissionID]})
	}
	return out, nil
}

func (m *memStore) ListReactions(_ context.Context, submissionIDs []string) ([]challenge.Reaction, error) {
	if err := m.track("ListReactions"); err != nil {
		return nil, err
	}
	var out []challenge.Reaction
	for _, r := range m.reactions {
		if inSet(submissionIDs, r.SubmissionID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetChallenge(_ context.Context, id string) (*challenge.Challenge, error) {
	if err := m.track("GetChallenge"); err != nil {
		return nil, err
	}
	for _, c := range m.challenges {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, shared.ErrChallengeNotFound
}

func (m *memStore) GetDailyChallenge(_ context.Context, date string) (*challenge.Challenge, error) {
	if err := m.track("GetDailyChallenge"); err != nil {
		return nil, err
	}
	for _, c := range m.challenges {
		if c.IsDaily && c.DailyDate == date {
			c := c
			return &c, nil
		}
	}
	return nil, shared.ErrDailyNotFound
}

func (m *memStore) ListAcceptedFriendIDs(_ context.Context, userID string) ([]string, error) {
	if err := m.track("ListAcceptedFriendIDs"); err != nil {
		return nil, err
	}
	set := social.FriendSetFromFriendships(userID, m.friendships)
	delete(set, userID)
	return set.IDs(), nil
}

func (m *memStore) LookupProfiles(_ context.Context, userIDs []string) (profile.Directory, error) {
	if err := m.track("LookupProfiles"); err != nil {
		return nil, err
	}
	out := make(profile.Directory, len(userIDs))
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// memCache is an in-memory leaderboard.ViewCache.
type memCache struct {
	mu      sync.Mutex
	friends map[string]*leaderboard.FriendView
	public  map[leaderboard.Range]*leaderboard.PublicView
	top     *leaderboard.TopView
}

func newMemCache() *memCache {
	return &memCache{
		friends: map[string]*leaderboard.FriendView{},
		public:  map[leaderboard.Range]*leaderboard.PublicView{},
	}
}

func (c *memCache) GetFriends(_ context.Context, userID string, r leaderboard.Range) (*leaderboard.FriendView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.friends[userID+":"+r.String()]
	return v, ok, nil
}

func (c *memCache) SetFriends(_ context.Context, v *leaderboard.FriendView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.friends[v.UserID+":"+v.Range.String()] = v
	return nil
}

func (c *memCache) GetPublic(_ context.Context, r leaderboard.Range) (*leaderboard.PublicView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.public[r]
	return v, ok, nil
}

func (c *memCache) SetPublic(_ context.Context, v *leaderboard.PublicView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.public[v.Range] = v
	return nil
}

func (c *memCache) GetTop(context.Context) (*leaderboard.TopView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.top, c.top != nil, nil
}

func (c *memCache) SetTop(_ context.Context, v *leaderboard.TopView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.top = v
	return nil
}

// spyRecorder records observations.
type spyRecorder struct {
	mu      sync.Mutex
	queries map[string]int
	errors  map[string]int
	hits    map[string]int
	misses  map[string]int
}

func newSpyRecorder() *spyRecorder {
	return &spyRecorder{queries: map[string]int{}, errors: map[string]int{}, hits: map[string]int{}, misses: map[string]int{}}
}

func (s *spyRecorder) ObserveQuery(name string, _ time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[name]++
	if err != nil {
		s.errors[name]++
	}
}

func (s *spyRecorder) ObserveCache(view string, hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.hits[view]++
	} else {
		s.misses[view]++
	}
}
