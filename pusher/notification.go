package pusher

import (
	"context"
)

// Badge-count opt-out keys in pusher data.
const (
	DataDisableBadgeCount         = "disable_badge_count"
	DataDisableBadgeCountUnstable = "org.matrix.msc4076.disable_badge_count"
)

// ProfileSource resolves user profile fields.
type ProfileSource interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// RoomSource resolves room state used to label notifications.
type RoomSource interface {
	Name(ctx context.Context, roomID string) (string, error)
	CanonicalAlias(ctx context.Context, roomID string) (string, error)
}

// Lookups are the optional sources consulted while building a notification.
// Nil sources and failed lookups leave the corresponding field empty.
type Lookups struct {
	Profiles ProfileSource
	Rooms    RoomSource
}

// BuildNotification assembles the gateway payload for an http pusher.
//
// The event_id_only format carries only ids, counts and the device without
// tweaks. Counts are omitted when the pusher data opts out of badge counts.
// Priority is high for encrypted events or when a tweak asks for sound or
// highlight, low otherwise.
func BuildNotification(ctx context.Context, lk Lookups, p *Pusher, ev *Event, unread uint64, tweaks []Tweak) *Notification {
	var http HTTPData
	if p.HTTP != nil {
		http = *p.HTTP
	}
	eventIDOnly := http.Format == FormatEventIDOnly

	device := Device{
		AppID:   p.AppID,
		PushKey: p.PushKey,
		Format:  http.Format,
		Data:    http.Data,
	}
	if !eventIDOnly {
		device.Tweaks = tweaks
	}

	n := &Notification{
		EventID: ev.ID,
		RoomID:  ev.RoomID,
		Devices: []Device{device},
	}
	if !badgeCountDisabled(http.Data) {
		n.Counts = Counts{Unread: unread}
	}
	if eventIDOnly {
		return n
	}

	n.Priority = PriorityLow
	if ev.Type == EventRoomEncrypted || anyRaisesPriority(tweaks) {
		n.Priority = PriorityHigh
	}
	n.Sender = ev.Sender
	n.Type = ev.Type
	n.Content = ev.Content
	if ev.Type == EventRoomMember {
		n.UserIsTarget = ev.StateKey != nil && *ev.StateKey == ev.Sender
	}

	if lk.Profiles != nil {
		if name, err := lk.Profiles.DisplayName(ctx, ev.Sender); err == nil {
			n.SenderDisplayName = name
		}
	}
	if lk.Rooms != nil {
		if name, err := lk.Rooms.Name(ctx, ev.RoomID); err == nil {
			n.RoomName = name
		}
		if alias, err := lk.Rooms.CanonicalAlias(ctx, ev.RoomID); err == nil {
			n.RoomAlias = alias
		}
	}
	return n
}

func badgeCountDisabled(data map[string]any) bool {
	_, off := data[DataDisableBadgeCount]
	_, offUnstable := data[DataDisableBadgeCountUnstable]
	return off || offUnstable
}

func anyRaisesPriority(tweaks []Tweak) bool {
	for _, t := range tweaks {
		if t.raisesPriority() {
			return true
		}
	}
	return false
}
