package pusher

import (
	"encoding/json"
	"maps"
)

// Kind identifies how a pusher delivers notifications.
type Kind string

const (
	KindHTTP  Kind = "http"
	KindEmail Kind = "email"
)

// Format selects how much of an event a push gateway receives.
type Format string

// FormatEventIDOnly strips content, sender details and tweaks from
// notifications.
const FormatEventIDOnly Format = "event_id_only"

// Event types with delivery-specific handling.
const (
	EventRoomEncrypted = "m.room.encrypted"
	EventRoomMember    = "m.room.member"
)

// Pusher is a registered push destination of a user's device.
type Pusher struct {
	Kind    Kind      `json:"kind"`
	AppID   string    `json:"app_id"`
	PushKey string    `json:"pushkey"`
	HTTP    *HTTPData `json:"data,omitempty"`
}

// HTTPData configures an http pusher. Data carries any additional keys the
// client registered; they are forwarded to the gateway verbatim.
type HTTPData struct {
	URL    string         `json:"url"`
	Format Format         `json:"format,omitempty"`
	Data   map[string]any `json:"-"`
}

// Event is the timeline event a notification is sent for.
type Event struct {
	ID       string          `json:"event_id"`
	RoomID   string          `json:"room_id"`
	Sender   string          `json:"sender"`
	Type     string          `json:"type"`
	StateKey *string         `json:"state_key,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// Priority is the delivery priority hint given to the gateway.
type Priority string

const (
	PriorityHigh Priority = "high"
	PriorityLow  Priority = "low"
)

// Counts are the badge counts shown on the device. The zero value is not
// serialised.
type Counts struct {
	Unread      uint64 `json:"unread,omitempty"`
	MissedCalls uint64 `json:"missed_calls,omitempty"`
}

// Device is the pusher a notification is addressed to.
type Device struct {
	AppID   string
	PushKey string
	Format  Format
	Data    map[string]any
	Tweaks  []Tweak
}

// MarshalJSON renders the device in push gateway form: the format is merged
// into data and tweaks become an object keyed by tweak name.
func (d Device) MarshalJSON() ([]byte, error) {
	data := make(map[string]any, len(d.Data)+1)
	maps.Copy(data, d.Data)
	if d.Format != "" {
		data["format"] = d.Format
	}

	var tweaks map[string]any
	if len(d.Tweaks) > 0 {
		tweaks = make(map[string]any, len(d.Tweaks))
		for _, t := range d.Tweaks {
			tweaks[t.Name] = t.value()
		}
	}

	return json.Marshal(struct {
		AppID   string         `json:"app_id"`
		PushKey string         `json:"pushkey"`
		Data    map[string]any `json:"data,omitempty"`
		Tweaks  map[string]any `json:"tweaks,omitempty"`
	}{d.AppID, d.PushKey, data, tweaks})
}

// Notification is the payload POSTed to a push gateway.
type Notification struct {
	EventID           string          `json:"event_id,omitempty"`
	RoomID            string          `json:"room_id,omitempty"`
	Type              string          `json:"type,omitempty"`
	Sender            string          `json:"sender,omitempty"`
	SenderDisplayName string          `json:"sender_display_name,omitempty"`
	RoomName          string          `json:"room_name,omitempty"`
	RoomAlias         string          `json:"room_alias,omitempty"`
	UserIsTarget      bool            `json:"user_is_target,omitempty"`
	Priority          Priority        `json:"prio,omitempty"`
	Content           json.RawMessage `json:"content,omitempty"`
	Counts            Counts          `json:"counts,omitzero"`
	Devices           []Device        `json:"devices"`
}

// Target pairs a user with one of their pushers.
type Target struct {
	UserID string
	Pusher Pusher
}

// Failure records a target whose notice could not be sent.
type Failure struct {
	Target Target
	Err    error
}

func (f Failure) Error() string {
	return f.Target.UserID + " (" + f.Target.Pusher.PushKey + "): " + f.Err.Error()
}

func (f Failure) Unwrap() error { return f.Err }
