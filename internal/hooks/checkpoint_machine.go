package hooks

import (
	"github.com/qmuntal/stateless"

	"github.com/your-org/sow/internal/layers/statemachine"
	"github.com/your-org/sow/internal/schema"
)

// checkpointMachine is an advisory-only FSM used solely to render the
// permitted next phase events to a human operator at a checkpoint. The
// actual pass/fail transition check required by the state-machine
// layer is the static table lookup in internal/layers/statemachine;
// this machine never gates validation, it only narrates it.
type checkpointMachine struct {
	fsm *stateless.StateMachine
}

// newCheckpointMachine builds a stateless.StateMachine whose states and
// triggers mirror the phase transition table, so PermittedTriggers()
// reports exactly what the static table would allow.
func newCheckpointMachine(current string) *checkpointMachine {
	fsm := stateless.NewStateMachine(current)

	for from, tos := range allPhaseStates() {
		cfg := fsm.Configure(from)
		for _, to := range tos {
			cfg.Permit(to, to)
		}
	}

	return &checkpointMachine{fsm: fsm}
}

// allPhaseStates enumerates every phase status this package knows
// about, even ones with no outgoing transitions, so Configure always
// has a row to attach to.
func allPhaseStates() map[string][]string {
	states := []string{
		string(schema.PhasePlanning),
		string(schema.PhaseExecuting),
		string(schema.PhaseVerifying),
		string(schema.PhaseComplete),
		string(schema.PhaseBlocked),
		string(schema.PhaseReadyToStart),
	}
	out := make(map[string][]string, len(states))
	for _, s := range states {
		out[s] = statemachine.NextPhaseStates(s)
	}
	return out
}

// PermittedNext returns the phase statuses the operator may move to
// from the machine's current state, for display purposes only.
func (m *checkpointMachine) PermittedNext() []string {
	triggers, _ := m.fsm.PermittedTriggers()
	out := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if s, ok := t.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
