package pipeline

import "fmt"

// State is the orchestrator's position in a run.
type State string

const (
	StateIdle        State = "IDLE"
	StateDownloading State = "DOWNLOADING"
	StateProcessing  State = "PROCESSING"
	StateIngesting   State = "INGESTING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

var stateRank = map[State]int{
	StateIdle:        0,
	StateDownloading: 1,
	StateProcessing:  2,
	StateIngesting:   3,
}

func (s State) active() bool {
	return s == StateDownloading || s == StateProcessing || s == StateIngesting
}

func (s State) terminal() bool {
	return s == StateDone || s == StateFailed
}

// transition validates a state change. Runs may start at any phase and may
// skip later ones, but never move backwards, and terminal states are final.
// FAILED and DONE are only reachable from an active state.
func transition(from, to State) (State, error) {
	switch {
	case from.terminal():
		return from, fmt.Errorf("illegal state transition %s -> %s: run already finished", from, to)
	case to == StateFailed || to == StateDone:
		if !from.active() {
			return from, fmt.Errorf("illegal state transition %s -> %s", from, to)
		}
		return to, nil
	case to.active():
		if stateRank[to] <= stateRank[from] {
			return from, fmt.Errorf("illegal state transition %s -> %s", from, to)
		}
		return to, nil
	default:
		return from, fmt.Errorf("illegal state transition %s -> %s", from, to)
	}
}
