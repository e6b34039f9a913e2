package badge

import (
	"context"
	"fmt"
	"strings"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"github.com/cinecircle/server/social/stats"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Summary is what a profile page shows about badges.
type Summary struct {
	UserID   int64          `json:"user_id"`
	Badges   []Badge        `json:"badges"`
	Progress []Progress     `json:"progress"`
	Stats    stats.Snapshot `json:"stats"`
}

// Service evaluates stored users and manages granted badges.
type Service struct {
	db     *gorm.DB
	stats  *stats.Builder
	eval   *Evaluator
	logger *zap.Logger
}

// NewService creates a new badge Service.
func NewService(db *gorm.DB, builder *stats.Builder, eval *Evaluator, logger *zap.Logger) *Service {
	return &Service{db: db, stats: builder, eval: eval, logger: logger}
}

// ForUser snapshots userID and evaluates it.
func (svc *Service) ForUser(ctx context.Context, userID int64) (*Summary, error) {
	snap, err := svc.stats.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		UserID:   userID,
		Badges:   svc.eval.Evaluate(*snap, snap.GrantedBadges),
		Progress: svc.eval.NextProgress(*snap),
		Stats:    *snap,
	}, nil
}

// GrantBadges replaces the administrator-granted badge list of userID.
// Ids are trimmed and deduplicated; ids missing from the catalog are kept
// and ignored at evaluation time.
func (svc *Service) GrantBadges(ctx context.Context, userID int64, ids []string) ([]string, error) {
	if _, err := social.FindUser(ctx, svc.db, userID); err != nil {
		return nil, err
	}
	clean := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, known := Lookup(id); !known {
			svc.logger.Info("granting badge missing from catalog", zap.Int64("user_id", userID), zap.String("badge", id))
		}
		clean = append(clean, id)
	}
	if err := svc.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("granted_badges", datatypes.JSONSlice[string](clean)).Error; err != nil {
		return nil, fmt.Errorf("grant badges to %d: %w", userID, err)
	}
	return clean, nil
}
