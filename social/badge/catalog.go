// Package badge holds the static badge catalog and evaluates which badges
// a user has unlocked.
package badge

import "github.com/cinecircle/server/social/stats"

// Category groups catalog entries.
type Category string

const (
	CategoryRecommendations Category = "recommendations"
	CategoryLikes           Category = "likes"
	CategoryFriends         Category = "friends"
	CategoryWatchlist       Category = "watchlist"
	CategorySpecial         Category = "special"
	CategoryIdentity        Category = "identity"
	CategoryGrantable       Category = "grantable"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryRecommendations, CategoryLikes, CategoryFriends, CategoryWatchlist,
		CategorySpecial, CategoryIdentity, CategoryGrantable:
		return true
	}
	return false
}

// Metric names a counter of stats.Snapshot.
type Metric string

const (
	MetricRecommendations Metric = "total_recommendations"
	MetricLikesReceived   Metric = "total_likes_received"
	MetricFriends         Metric = "total_friends"
	MetricWatchlist       Metric = "watchlist_count"
	MetricWatched         Metric = "watched_count"
)

// Metrics lists every metric family in progress display order.
var Metrics = []Metric{MetricRecommendations, MetricLikesReceived, MetricFriends, MetricWatchlist, MetricWatched}

func (m Metric) Valid() bool {
	switch m {
	case MetricRecommendations, MetricLikesReceived, MetricFriends, MetricWatchlist, MetricWatched:
		return true
	}
	return false
}

// Value reads m from s.
func (m Metric) Value(s stats.Snapshot) (int64, bool) {
	switch m {
	case MetricRecommendations:
		return s.TotalRecommendations, true
	case MetricLikesReceived:
		return s.TotalLikesReceived, true
	case MetricFriends:
		return s.TotalFriends, true
	case MetricWatchlist:
		return s.WatchlistCount, true
	case MetricWatched:
		return s.WatchedCount, true
	}
	return 0, false
}

// Badge is a catalog entry. Threshold is nil for badges that are granted
// by identity, by date or by an administrator.
type Badge struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Category    Category `json:"category"`
	Metric      Metric   `json:"metric,omitempty"`
	Threshold   *int64   `json:"threshold,omitempty"`
}

const (
	FounderID      = "founder"
	EarlyAdopterID = "early_adopter"
)

func milestone(id, name, desc, icon string, cat Category, m Metric, n int64) Badge {
	return Badge{ID: id, Name: name, Description: desc, Icon: icon, Category: cat, Metric: m, Threshold: &n}
}

// catalog is ordered: milestones within a family ascend by threshold.
var catalog = []Badge{
	milestone("newbie", "Newbie", "Posted a first recommendation", "Seedling", CategoryRecommendations, MetricRecommendations, 1),
	milestone("enthusiast", "Enthusiast", "Posted 10 recommendations", "Fire", CategoryRecommendations, MetricRecommendations, 10),
	milestone("cinephile", "Cinephile", "Posted 25 recommendations", "Film", CategoryRecommendations, MetricRecommendations, 25),
	milestone("critic", "Critic", "Posted 50 recommendations", "Award", CategoryRecommendations, MetricRecommendations, 50),
	milestone("director", "Director", "Posted 100 recommendations", "Crown", CategoryRecommendations, MetricRecommendations, 100),

	milestone("liked", "Liked", "Received 10 likes", "Heart", CategoryLikes, MetricLikesReceived, 10),
	milestone("popular", "Popular", "Received 50 likes", "HeartFilled", CategoryLikes, MetricLikesReceived, 50),
	milestone("influencer", "Influencer", "Received 200 likes", "Sparkles", CategoryLikes, MetricLikesReceived, 200),

	milestone("social", "Social", "Has 5 friends", "Users", CategoryFriends, MetricFriends, 5),
	milestone("connector", "Connector", "Has 20 friends", "Network", CategoryFriends, MetricFriends, 20),

	milestone("collector", "Collector", "Saved 20 titles to the watchlist", "Bookmark", CategoryWatchlist, MetricWatchlist, 20),
	milestone("binger", "Binger", "Marked 30 titles as watched", "CheckCircle", CategoryWatchlist, MetricWatched, 30),

	{ID: EarlyAdopterID, Name: "Early Adopter", Description: "Joined in the first days", Icon: "Rocket", Category: CategorySpecial},
	{ID: FounderID, Name: "Founder", Description: "Built CineCircle", Icon: "Crown", Category: CategoryIdentity},

	{ID: "supporter", Name: "Supporter", Description: "Bought the team a coffee", Icon: "Coffee", Category: CategoryGrantable},
	{ID: "patron", Name: "Patron", Description: "Supports CineCircle regularly", Icon: "Star", Category: CategoryGrantable},
	{ID: "benefactor", Name: "Benefactor", Description: "Went above and beyond for CineCircle", Icon: "Gem", Category: CategoryGrantable},
}

var byID = func() map[string]Badge {
	m := make(map[string]Badge, len(catalog))
	for _, b := range catalog {
		m[b.ID] = b
	}
	return m
}()

// Catalog returns a copy of every badge definition.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a badge by id.
func Lookup(id string) (Badge, bool) {
	b, ok := byID[id]
	return b, ok
}

// Grantable returns the badges an administrator may assign.
func Grantable() []Badge {
	var out []Badge
	for _, b := range catalog {
		if b.Category == CategoryGrantable {
			out = append(out, b)
		}
	}
	return out
}
