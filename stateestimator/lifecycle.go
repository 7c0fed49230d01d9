package stateestimator

import (
	"fmt"

	"github.com/samber/lo"
)

// LifecycleState is the state of an Estimator.
type LifecycleState int32

// The lifecycle states, in the order an estimator normally moves through them.
const (
	Unconfigured LifecycleState = iota
	Configured
	Active
	Inactive
	ShutDown
)

func (ls LifecycleState) String() string {
	switch ls {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	case ShutDown:
		return "shutdown"
	default:
		return fmt.Sprintf("unknown(%d)", int32(ls))
	}
}

type transition string

const (
	transitionConfigure   transition = "configure"
	transitionReconfigure transition = "reconfigure"
	transitionActivate    transition = "activate"
	transitionDeactivate  transition = "deactivate"
	transitionShutdown    transition = "shutdown"
)

// allowedFrom lists the states each transition may start from.
var allowedFrom = map[transition][]LifecycleState{
	transitionConfigure:   {Unconfigured},
	transitionReconfigure: {Configured, Inactive},
	transitionActivate:    {Configured, Inactive},
	transitionDeactivate:  {Active},
	transitionShutdown:    {Unconfigured, Configured, Active, Inactive},
}

// TransitionError is returned when a lifecycle transition is requested from a state that does not
// allow it.
type TransitionError struct {
	Transition string
	From       LifecycleState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Transition, e.From)
}

func checkTransition(t transition, from LifecycleState) error {
	if lo.Contains(allowedFrom[t], from) {
		return nil
	}
	return &TransitionError{Transition: string(t), From: from}
}
