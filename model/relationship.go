package model

import (
	"fmt"
	"time"
)

// RelationshipStatus is the state of a friendship edge.
type RelationshipStatus string

const (
	RelationshipPending  RelationshipStatus = "pending"
	RelationshipAccepted RelationshipStatus = "accepted"
	RelationshipRejected RelationshipStatus = "rejected"
)

func (s RelationshipStatus) Valid() bool {
	switch s {
	case RelationshipPending, RelationshipAccepted, RelationshipRejected:
		return true
	}
	return false
}

// Active reports whether a row in this state blocks a new request for the pair.
func (s RelationshipStatus) Active() bool {
	switch s {
	case RelationshipPending, RelationshipAccepted:
		return true
	case RelationshipRejected:
		return false
	}
	return false
}

// Relationship is a directed friend request between two users. Once accepted
// it is read as an undirected friendship.
type Relationship struct {
	ID          int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID int64              `gorm:"index;not null" json:"requester_id"`
	AddresseeID int64              `gorm:"index;not null" json:"addressee_id"`
	Status      RelationshipStatus `gorm:"size:16;not null;index" json:"status"`
	// ActiveKey is the unordered pair key while the row is pending or
	// accepted and NULL once rejected; its unique index allows at most one
	// active row per pair.
	ActiveKey *string   `gorm:"uniqueIndex;size:48" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PairKey returns the order-independent key for two users.
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Involves reports whether userID is either side of the edge.
func (r *Relationship) Involves(userID int64) bool {
	return r.RequesterID == userID || r.AddresseeID == userID
}

// Counterpart returns the other side of the edge from userID's point of view.
func (r *Relationship) Counterpart(userID int64) int64 {
	if r.RequesterID == userID {
		return r.AddresseeID
	}
	return r.RequesterID
}
