package pusher

import (
	"testing"

	"github.com/kbukum/broadband/errors"
)

func TestEvaluateActions(t *testing.T) {
	tests := []struct {
		name       string
		actions    []Action
		wantNotify bool
		wantTweaks int
		wantErr    bool
	}{
		{"empty", nil, false, 0, false},
		{"notify", []Action{Notify()}, true, 0, false},
		{"dont notify", []Action{DontNotify()}, false, 0, false},
		{"coalesce", []Action{Coalesce()}, false, 0, false},
		{"notify with tweaks", []Action{Notify(), SetTweak(TweakSound, "default"), SetTweak(TweakHighlight, nil)}, true, 2, false},
		{"tweaks only", []Action{SetTweak(TweakHighlight, false)}, false, 1, false},
		{"notify and dont notify", []Action{Notify(), DontNotify()}, false, 0, true},
		{"notify twice", []Action{Notify(), SetTweak(TweakSound, "x"), Notify()}, false, 0, true},
		{"coalesce and notify", []Action{Coalesce(), Notify()}, false, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			notify, tweaks, err := EvaluateActions(tc.actions)
			if tc.wantErr {
				if !errors.Is(err, errors.ErrCodeMalformedRule) {
					t.Fatalf("expected MALFORMED_RULE, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if notify != tc.wantNotify {
				t.Errorf("notify = %v, want %v", notify, tc.wantNotify)
			}
			if len(tweaks) != tc.wantTweaks {
				t.Errorf("tweaks = %v, want %d", tweaks, tc.wantTweaks)
			}
		})
	}
}

func TestTweakRaisesPriority(t *testing.T) {
	tests := []struct {
		tweak Tweak
		want  bool
	}{
		{Tweak{Name: TweakSound, Value: "default"}, true},
		{Tweak{Name: TweakHighlight}, true},
		{Tweak{Name: TweakHighlight, Value: true}, true},
		{Tweak{Name: TweakHighlight, Value: false}, false},
		{Tweak{Name: "custom", Value: true}, false},
	}
	for _, tc := range tests {
		if got := tc.tweak.raisesPriority(); got != tc.want {
			t.Errorf("%+v: got %v, want %v", tc.tweak, got, tc.want)
		}
	}
}
