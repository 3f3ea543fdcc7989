package fsm

import (
	"fmt"
	"strings"
	"sync"
)

//
//  machine := fsm.MustNewFSM("scan_session", StateIdle, []fsm.EventDesc{...})
//
//  if _, err := machine.Do(event); err != nil {
//     // transition is not allowed from the current state
//  }
//

type State string

func (s State) String() string {
	return string(s)
}

type Event string

func (e Event) String() string {
	return string(e)
}

// EventDesc declares a single transition: an event that moves the
// machine from any of SrcState into DstState.
type EventDesc struct {
	Name Event

	SrcState []State

	DstState State
}

// FSM is a transition-table state machine. A pair (current state, event)
// either maps to exactly one destination state or the event is rejected.
// Do is atomic: concurrent callers race for the transition and only one
// of them wins, which is what the scan session relies on for stop/start
// races.
type FSM struct {
	name         string
	initialState State
	currentState State

	transitions map[trKey]State

	// stateMu guards currentState; Do holds it across the
	// check-and-transition so transitions are exactly-once.
	stateMu sync.RWMutex
}

// Transition key: source state + event.
type trKey struct {
	source State
	event  Event
}

// MustNewFSM validates the transition table and panics on a malformed
// machine. Misconfigured transitions are a programming error, not a
// runtime condition.
func MustNewFSM(machineName string, initialState State, events []EventDesc) *FSM {
	machineName = strings.TrimSpace(machineName)
	initialState = State(strings.TrimSpace(initialState.String()))

	if machineName == "" {
		panic("machine name cannot be empty")
	}

	if initialState == "" {
		panic("initial state cannot be empty")
	}

	if len(events) == 0 {
		panic("cannot init fsm with empty events")
	}

	f := &FSM{
		name:         machineName,
		initialState: initialState,
		currentState: initialState,
		transitions:  make(map[trKey]State),
	}

	allEvents := make(map[Event]bool)
	allStates := make(map[State]bool)

	for _, event := range events {
		event.Name = Event(strings.TrimSpace(event.Name.String()))
		event.DstState = State(strings.TrimSpace(event.DstState.String()))

		if event.Name == "" {
			panic("cannot init empty event")
		}

		if event.DstState == "" {
			panic("event dest cannot be empty")
		}

		if _, ok := allEvents[event.Name]; ok {
			panic(fmt.Sprintf("duplicate event \"%s\"", event.Name))
		}

		allEvents[event.Name] = true
		allStates[event.DstState] = true

		trimmedSourcesCounter := 0

		for _, sourceState := range event.SrcState {
			sourceState := State(strings.TrimSpace(sourceState.String()))

			if sourceState == "" {
				continue
			}

			tKey := trKey{
				sourceState,
				event.Name,
			}

			if _, ok := f.transitions[tKey]; ok {
				panic("duplicate dst for pair `source + event`")
			}

			f.transitions[tKey] = event.DstState

			allStates[sourceState] = true
			trimmedSourcesCounter++
		}

		if trimmedSourcesCounter == 0 {
			panic("event must have minimum one source available state")
		}
	}

	if len(allStates) < 2 {
		panic("machine must contain at least two states")
	}

	return f
}

// Do executes the event if it is allowed from the current state and
// returns the new state. The error carries the rejected event and the
// state it was rejected from.
func (f *FSM) Do(event Event) (State, error) {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()

	dstState, ok := f.transitions[trKey{f.currentState, event}]
	if !ok {
		return f.currentState, fmt.Errorf("cannot execute event \"%s\" for state \"%s\"", event, f.currentState)
	}

	f.currentState = dstState

	return dstState, nil
}

// State returns the current state of the FSM.
func (f *FSM) State() State {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	return f.currentState
}

func (f *FSM) Is(state State) bool {
	return f.State() == state
}

func (f *FSM) Name() string {
	return f.name
}

func (f *FSM) InitialState() State {
	return f.initialState
}
