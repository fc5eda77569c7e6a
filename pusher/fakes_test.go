package pusher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type fakeRules struct {
	byUser map[string][]Action
	err    error
}

func (f *fakeRules) Actions(_ context.Context, userID string, _ *Event) ([]Action, error) {
	if f.err != nil {
		return nil, f.err
	}
	if actions, ok := f.byUser[userID]; ok {
		return actions, nil
	}
	return []Action{Notify()}, nil
}

type fakeCounts struct {
	unread uint64
	err    error
}

func (f *fakeCounts) NotificationCount(context.Context, string, string) (uint64, error) {
	return f.unread, f.err
}

type fakeProfiles map[string]string

func (f fakeProfiles) DisplayName(_ context.Context, userID string) (string, error) {
	if name, ok := f[userID]; ok {
		return name, nil
	}
	return "", errors.New("profile not found")
}

type fakeRooms struct {
	name, alias string
}

func (f fakeRooms) Name(context.Context, string) (string, error) {
	if f.name == "" {
		return "", errors.New("no name")
	}
	return f.name, nil
}

func (f fakeRooms) CanonicalAlias(context.Context, string) (string, error) {
	if f.alias == "" {
		return "", errors.New("no alias")
	}
	return f.alias, nil
}

type sent struct {
	url          string
	notification *Notification
}

// recordingGateway records sends and tracks how many run at once.
type recordingGateway struct {
	delay time.Duration
	fail  map[string]error // by URL

	mu     sync.Mutex
	sends  []sent
	active atomic.Int32
	peak   atomic.Int32
}

func (g *recordingGateway) Send(ctx context.Context, url string, n *Notification) error {
	cur := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		peak := g.peak.Load()
		if cur <= peak || g.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := g.fail[url]; err != nil {
		return err
	}
	g.mu.Lock()
	g.sends = append(g.sends, sent{url: url, notification: n})
	g.mu.Unlock()
	return nil
}

func (g *recordingGateway) sent() []sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sent(nil), g.sends...)
}

func httpPusher(pushkey, url string) Pusher {
	return Pusher{
		Kind:    KindHTTP,
		AppID:   "com.example.app",
		PushKey: pushkey,
		HTTP:    &HTTPData{URL: url},
	}
}

func testEvent() *Event {
	return &Event{
		ID:      "$ev1",
		RoomID:  "!room:example.org",
		Sender:  "@alice:example.org",
		Type:    "m.room.message",
		Content: []byte(`{"body":"hi","msgtype":"m.text"}`),
	}
}
