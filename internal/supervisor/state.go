// SPDX-License-Identifier: MPL-2.0

package supervisor

import (
	"github.com/playrun/playrun/pkg/types"
)

const (
	stateCreated state = iota
	stateStarting
	stateRunning
	stateSuccessful
	stateFailed
	stateTimeout
	stateCanceled
	stateError
)

// state is the lock-free representation of a Process lifecycle.
type state int32

var stateStatus = [...]types.Status{
	stateCreated:    types.StatusUnstarted,
	stateStarting:   types.StatusStarting,
	stateRunning:    types.StatusRunning,
	stateSuccessful: types.StatusSuccessful,
	stateFailed:     types.StatusFailed,
	stateTimeout:    types.StatusTimeout,
	stateCanceled:   types.StatusCanceled,
	stateError:      types.StatusError,
}

// Status returns the public tag of s.
func (s state) Status() types.Status {
	if int(s) < len(stateStatus) {
		return stateStatus[s]
	}
	return types.StatusError
}

func (s state) terminal() bool { return s >= stateSuccessful }

func terminalState(st types.Status) state {
	for i, v := range stateStatus {
		if v == st && state(i).terminal() {
			return state(i)
		}
	}
	return stateError
}

// transition moves p from one state to another and notifies the status
// handler. It fails when p is not in from.
func (p *Process) transition(from, to state) bool {
	if !p.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	p.logger.Debug("status", "from", from.Status(), "to", to.Status())
	if p.spec.StatusHandler != nil {
		p.spec.StatusHandler(to.Status())
	}
	return true
}
