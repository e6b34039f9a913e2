// Package profile lets users create and edit their own profile row.
package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxDisplayName = 64
	MaxAvatarField = 32
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]{2,32}$`)

// Input is the editable part of a profile.
type Input struct {
	Username     string `json:"username" binding:"required,min=2,max=32"`
	DisplayName  string `json:"display_name"`
	AvatarSymbol string `json:"avatar_symbol"`
	AvatarColor  string `json:"avatar_color"`
}

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Get returns the profile row of userID.
func (svc *Service) Get(ctx context.Context, userID int64) (*model.User, error) {
	return social.FindUser(ctx, svc.db, userID)
}

// Upsert creates the row of userID on first use and updates it afterwards.
// Usernames are unique; taking someone else's fails with social.ErrDuplicate.
// Granted badges are never touched.
func (svc *Service) Upsert(ctx context.Context, userID int64, in Input) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.AvatarSymbol = strings.TrimSpace(in.AvatarSymbol)
	in.AvatarColor = strings.TrimSpace(in.AvatarColor)
	if userID <= 0 || !usernamePattern.MatchString(in.Username) {
		return nil, fmt.Errorf("username %q: %w", in.Username, social.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.DisplayName) > MaxDisplayName ||
		utf8.RuneCountInString(in.AvatarSymbol) > MaxAvatarField ||
		utf8.RuneCountInString(in.AvatarColor) > MaxAvatarField {
		return nil, fmt.Errorf("profile field too long: %w", social.ErrInvalidInput)
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}

	fields := map[string]any{
		"username":      in.Username,
		"display_name":  in.DisplayName,
		"avatar_symbol": in.AvatarSymbol,
		"avatar_color":  in.AvatarColor,
	}
	err := svc.save(ctx, userID, fields)
	if errors.Is(err, errRowExists) {
		// a concurrent first save created the row
		err = svc.save(ctx, userID, fields)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("username %q: %w", in.Username, social.ErrDuplicate)
		}
		return nil, fmt.Errorf("save profile %d: %w", userID, err)
	}
	svc.logger.Debug("profile saved", zap.Int64("user_id", userID), zap.String("username", in.Username))
	return svc.Get(ctx, userID)
}

var errRowExists = errors.New("profile row exists")

// save updates the row of userID, creating it when missing.
func (svc *Service) save(ctx context.Context, userID int64, fields map[string]any) error {
	exists, err := svc.exists(ctx, userID)
	if err != nil {
		return err
	}
	if exists {
		return svc.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(fields).Error
	}
	u := &model.User{
		ID:           userID,
		Username:     fields["username"].(string),
		DisplayName:  fields["display_name"].(string),
		AvatarSymbol: fields["avatar_symbol"].(string),
		AvatarColor:  fields["avatar_color"].(string),
	}
	if err := svc.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if ok, _ := svc.exists(ctx, userID); ok {
				return errRowExists
			}
		}
		return err
	}
	return nil
}

func (svc *Service) exists(ctx context.Context, userID int64) (bool, error) {
	var n int64
	if err := svc.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check profile %d: %w", userID, err)
	}
	return n > 0, nil
}
