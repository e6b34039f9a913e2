package model

import (
	"time"

	"gorm.io/datatypes"
)

// User is a profile row keyed by the id in the caller's token. Accounts are
// registered elsewhere; users fill in their own profile here and only an
// administrator edits the granted badge list.
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"uniqueIndex;size:32;not null" json:"username"`
	DisplayName  string `gorm:"size:64" json:"display_name"`
	AvatarSymbol string `gorm:"size:32" json:"avatar_symbol,omitempty"`
	AvatarColor  string `gorm:"size:32" json:"avatar_color,omitempty"`
	// GrantedBadges holds badge ids assigned by an administrator.
	GrantedBadges datatypes.JSONSlice[string] `json:"granted_badges"`
	CreatedAt     time.Time                   `gorm:"autoCreateTime" json:"created_at"`
}

// Profile is the public projection embedded in other responses.
type Profile struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	AvatarSymbol string `json:"avatar_symbol,omitempty"`
	AvatarColor  string `json:"avatar_color,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		AvatarSymbol: u.AvatarSymbol,
		AvatarColor:  u.AvatarColor,
	}
}
