package badge

import (
	"slices"
	"time"

	"github.com/cinecircle/server/social/stats"
)

// Rules are the configured inputs of evaluation that are not user stats.
type Rules struct {
	// FounderUserID receives the founder badge; zero disables it.
	FounderUserID int64
	// EarlyAdopterCutoff: accounts created strictly before it get the
	// early adopter badge; zero disables it.
	EarlyAdopterCutoff time.Time
}

// Progress is the distance to the next unmet milestone of one family.
type Progress struct {
	Badge     Badge  `json:"badge"`
	Metric    Metric `json:"metric"`
	Current   int64  `json:"current"`
	Threshold int64  `json:"threshold"`
}

// Evaluator maps stats to unlocked badges. It is pure and safe for
// concurrent use.
type Evaluator struct {
	rules Rules
}

func NewEvaluator(rules Rules) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate returns the unlocked badges in display order: identity, then
// administrator-granted, then every satisfied milestone, then date-based.
// Granted ids that are unknown or not grantable are ignored.
func (e *Evaluator) Evaluate(s stats.Snapshot, granted []string) []Badge {
	out := []Badge{}
	seen := make(map[string]bool)
	add := func(b Badge) {
		if !seen[b.ID] {
			seen[b.ID] = true
			out = append(out, b)
		}
	}
	earnedIn := func(cats ...Category) {
		for _, b := range catalog {
			if slices.Contains(cats, b.Category) && e.earned(b, s) {
				add(b)
			}
		}
	}

	earnedIn(CategoryIdentity)
	for _, id := range granted {
		if b, ok := byID[id]; ok && b.Category == CategoryGrantable {
			add(b)
		}
	}
	earnedIn(CategoryRecommendations, CategoryLikes, CategoryFriends, CategoryWatchlist)
	earnedIn(CategorySpecial)
	return out
}

// earned reports whether s unlocks b on its own. Grantable badges are only
// ever unlocked through the granted id list.
func (e *Evaluator) earned(b Badge, s stats.Snapshot) bool {
	switch b.Category {
	case CategoryIdentity:
		return b.ID == FounderID && e.rules.FounderUserID != 0 && s.UserID == e.rules.FounderUserID
	case CategoryRecommendations, CategoryLikes, CategoryFriends, CategoryWatchlist:
		if b.Threshold == nil {
			return false
		}
		v, ok := b.Metric.Value(s)
		return ok && v >= *b.Threshold
	case CategorySpecial:
		return b.ID == EarlyAdopterID &&
			!e.rules.EarlyAdopterCutoff.IsZero() &&
			!s.CreatedAt.IsZero() &&
			s.CreatedAt.Before(e.rules.EarlyAdopterCutoff)
	case CategoryGrantable:
		return false
	}
	return false
}

// NextProgress returns, per metric family in Metrics order, the lowest
// milestone not yet reached. It is empty once every milestone is met.
func (e *Evaluator) NextProgress(s stats.Snapshot) []Progress {
	out := []Progress{}
	for _, m := range Metrics {
		current, ok := m.Value(s)
		if !ok {
			continue
		}
		var next *Badge
		for i := range catalog {
			b := &catalog[i]
			if b.Metric != m || b.Threshold == nil || current >= *b.Threshold {
				continue
			}
			if next == nil || *b.Threshold < *next.Threshold {
				next = b
			}
		}
		if next != nil {
			out = append(out, Progress{Badge: *next, Metric: m, Current: current, Threshold: *next.Threshold})
		}
	}
	return out
}
