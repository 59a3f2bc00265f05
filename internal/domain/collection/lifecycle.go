package collection

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Machine states. Untyped so they convert to statekit.StateID and Status alike.
const (
	StatePending    = "PENDING"
	StateAccepted   = "ACCEPTED"
	StateInProgress = "IN_PROGRESS"
	StateCompleted  = "COMPLETED"
	StateRejected   = "REJECTED"
	StateCancelled  = "CANCELLED"
)

const (
	EventAccept   = "accept"
	EventAssign   = "assign"
	EventReject   = "reject"
	EventStart    = "start"
	EventComplete = "complete"
	EventCancel   = "cancel"
)

// ErrTransition is returned when an event is not allowed from the current status.
type ErrTransition struct {
	From  Status
	Event string
}

func (e *ErrTransition) Error() string {
	return fmt.Sprintf("cannot %s a request that is %s", e.Event, e.From)
}

type lifecycleContext struct {
	// fired is set by the transition guard so self-transitions (assign on ACCEPTED)
	// are distinguishable from ignored events.
	fired *bool
}

// Lifecycle drives a single ServiceRequest through its status graph.
type Lifecycle struct {
	interpreter *statekit.Interpreter[lifecycleContext]
	fired       *bool
}

func NewLifecycle(current Status) (*Lifecycle, error) {
	if !current.Valid() {
		return nil, fmt.Errorf("unknown service request status %q", current)
	}
	fired := new(bool)
	builder := statekit.NewMachine[lifecycleContext]("service-request").
		WithInitial(statekit.StateID(current)).
		WithContext(lifecycleContext{fired: fired}).
		WithGuard("fired", func(c lifecycleContext, _ statekit.Event) bool {
			*c.fired = true
			return true
		})

	builder.State(StatePending).
		On(EventAccept).Target(StateAccepted).Guard("fired").
		On(EventAssign).Target(StateAccepted).Guard("fired").
		On(EventReject).Target(StateRejected).Guard("fired").
		On(EventCancel).Target(StateCancelled).Guard("fired").
		Done()

	builder.State(StateAccepted).
		On(EventAssign).Target(StateAccepted).Guard("fired").
		On(EventStart).Target(StateInProgress).Guard("fired").
		On(EventReject).Target(StateRejected).Guard("fired").
		On(EventCancel).Target(StateCancelled).Guard("fired").
		Done()

	builder.State(StateInProgress).
		On(EventComplete).Target(StateCompleted).Guard("fired").
		On(EventReject).Target(StateRejected).Guard("fired").
		On(EventCancel).Target(StateCancelled).Guard("fired").
		Done()

	builder.State(StateCompleted).Done()
	builder.State(StateRejected).Done()
	builder.State(StateCancelled).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build service request machine: %w", err)
	}
	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &Lifecycle{interpreter: interpreter, fired: fired}, nil
}

func (l *Lifecycle) Current() Status {
	return Status(l.interpreter.State().Value)
}

// Fire applies event and returns the resulting status.
func (l *Lifecycle) Fire(event string) (Status, error) {
	from := l.Current()
	*l.fired = false
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if !*l.fired {
		return from, &ErrTransition{From: from, Event: event}
	}
	return l.Current(), nil
}

// Next computes the status reached from current by event without keeping the machine around.
func Next(current Status, event string) (Status, error) {
	l, err := NewLifecycle(current)
	if err != nil {
		return current, err
	}
	return l.Fire(event)
}

// SourcesFor lists every status from which event is accepted. Used as the
// compare-and-set guard when persisting a transition.
func SourcesFor(event string) []Status {
	out := make([]Status, 0, 3)
	for _, s := range Statuses {
		if _, err := Next(s, event); err == nil {
			out = append(out, s)
		}
	}
	return out
}
