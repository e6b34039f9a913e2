// Package notify turns change events into inbox notifications: Decide picks
// the recipient, Generator feeds decisions from the change feed to an
// Emitter, and Inbox serves them back to users.
package notify

import (
	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
)

// Decide returns the notification a change event calls for, if any. Users
// are never notified about their own actions.
func Decide(ev changefeed.Event) (model.Notification, bool) {
	var (
		typ model.NotificationType
		ok  bool
	)
	switch ev.Kind {
	case changefeed.KindLike:
		typ, ok = model.NotifyLike, ev.Op == changefeed.OpCreated
	case changefeed.KindComment:
		typ, ok = model.NotifyComment, ev.Op == changefeed.OpCreated
	case changefeed.KindMessage:
		typ, ok = model.NotifyMessage, ev.Op == changefeed.OpCreated
	case changefeed.KindRelationship:
		typ, ok = relationshipType(ev)
	case changefeed.KindContent, changefeed.KindNotification, changefeed.KindGroup:
	}
	if !ok {
		return model.Notification{}, false
	}

	if ev.TargetID == 0 || ev.TargetID == ev.ActorID {
		return model.Notification{}, false
	}
	n := model.Notification{
		RecipientID:  ev.TargetID,
		Type:         typ,
		SourceUserID: ev.ActorID,
		Message:      truncate(ev.Snippet, 255),
	}
	switch typ {
	case model.NotifyLike, model.NotifyComment:
		if ev.ContentID == 0 {
			return model.Notification{}, false
		}
		id := ev.ContentID
		n.RelatedContentID = &id
	case model.NotifyFriendRequest, model.NotifyFriendAccepted, model.NotifyMessage:
	}
	return n, true
}

// relationshipType maps a relationship transition to a notification type:
// creation notifies the addressee, acceptance notifies the requester. The
// event target is already the other party in both cases.
func relationshipType(ev changefeed.Event) (model.NotificationType, bool) {
	switch model.RelationshipStatus(ev.Status) {
	case model.RelationshipPending:
		return model.NotifyFriendRequest, ev.Op == changefeed.OpCreated
	case model.RelationshipAccepted:
		return model.NotifyFriendAccepted, ev.Op == changefeed.OpUpdated
	case model.RelationshipRejected:
		return "", false
	}
	return "", false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
