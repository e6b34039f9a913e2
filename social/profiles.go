package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cinecircle/server/model"
	"gorm.io/gorm"
)

// LoadProfiles fetches the public profiles of ids in one query. Missing ids
// are absent from the map.
func LoadProfiles(ctx context.Context, db *gorm.DB, ids []int64) (map[int64]model.Profile, error) {
	out := make(map[int64]model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []model.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	for i := range users {
		out[users[i].ID] = users[i].Profile()
	}
	return out, nil
}

// FindUser loads one user or returns ErrNotFound.
func FindUser(ctx context.Context, db *gorm.DB, id int64) (*model.User, error) {
	var u model.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &u, nil
}

var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

// EscapeLike escapes s for a LIKE pattern declared with ESCAPE '!'.
func EscapeLike(s string) string { return likeEscaper.Replace(s) }
