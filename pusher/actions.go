package pusher

import (
	"github.com/kbukum/broadband/errors"
)

// ActionKind is the kind of a push rule action.
type ActionKind string

const (
	ActionNotify     ActionKind = "notify"
	ActionDontNotify ActionKind = "dont_notify"
	ActionCoalesce   ActionKind = "coalesce"
	ActionSetTweak   ActionKind = "set_tweak"
)

// Tweak names with priority semantics.
const (
	TweakHighlight = "highlight"
	TweakSound     = "sound"
)

// Action is one action produced by push rule evaluation. Tweak is set only
// for ActionSetTweak.
type Action struct {
	Kind  ActionKind
	Tweak Tweak
}

// Tweak adjusts how a device presents a notification.
type Tweak struct {
	Name string
	// Value is nil for a highlight tweak given without a value, which
	// means true.
	Value any
}

// Notify, DontNotify, Coalesce and SetTweak build actions.
func Notify() Action     { return Action{Kind: ActionNotify} }
func DontNotify() Action { return Action{Kind: ActionDontNotify} }
func Coalesce() Action   { return Action{Kind: ActionCoalesce} }

func SetTweak(name string, value any) Action {
	return Action{Kind: ActionSetTweak, Tweak: Tweak{Name: name, Value: value}}
}

func (t Tweak) value() any {
	if t.Name == TweakHighlight && t.Value == nil {
		return true
	}
	return t.Value
}

// raisesPriority reports whether the tweak asks for immediate delivery:
// any sound, or a highlight that is true.
func (t Tweak) raisesPriority() bool {
	switch t.Name {
	case TweakSound:
		return true
	case TweakHighlight:
		v, ok := t.value().(bool)
		return ok && v
	}
	return false
}

// EvaluateActions folds rule actions into a notify decision and the tweaks
// to apply. At most one of notify, dont_notify and coalesce may appear;
// more is reported as MALFORMED_RULE. No deciding action means no notify.
func EvaluateActions(actions []Action) (notify bool, tweaks []Tweak, err error) {
	decided := false
	for _, a := range actions {
		if a.Kind == ActionSetTweak {
			tweaks = append(tweaks, a.Tweak)
			continue
		}
		if decided {
			return false, nil, errors.MalformedRule(`more than one of ["dont_notify", "notify", "coalesce"]`)
		}
		decided = true
		notify = a.Kind == ActionNotify
	}
	return notify, tweaks, nil
}
