package appointment

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidTransition = errors.New("appointment was already acted upon")

type Transition string

const (
	TransitionConfirm  Transition = "confirm"
	TransitionReject   Transition = "reject"
	TransitionCancel   Transition = "cancel"
	TransitionComplete Transition = "complete"
)

var transitions = map[Transition]struct {
	from []Status
	to   Status
}{
	TransitionConfirm:  {from: []Status{StatusPending}, to: StatusConfirmed},
	TransitionReject:   {from: []Status{StatusPending}, to: StatusRejected},
	TransitionCancel:   {from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelled},
	TransitionComplete: {from: []Status{StatusConfirmed}, to: StatusCompleted},
}

// Next returns the status t leads to from current, or ErrInvalidTransition.
// Repeating a transition that already happened is also invalid.
func Next(current Status, t Transition) (Status, error) {
	rule, ok := transitions[t]
	if !ok {
		return "", fmt.Errorf("unknown transition %q", t)
	}
	if !slices.Contains(rule.from, current) {
		return "", fmt.Errorf("%w: cannot %s a %s appointment", ErrInvalidTransition, t, current)
	}
	return rule.to, nil
}

// releasesSlot reports whether moving into s frees the appointment's slot.
func releasesSlot(s Status) bool {
	return s == StatusRejected || s == StatusCancelled
}
