package tap

import "fmt"

// State is one of the 16 IEEE 1149.1 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR
)

var stateNames = [...]string{
	StateTestLogicReset: "TestLogicReset",
	StateRunTestIdle:    "RunTestIdle",
	StateSelectDRScan:   "SelectDRScan",
	StateCaptureDR:      "CaptureDR",
	StateShiftDR:        "ShiftDR",
	StateExit1DR:        "Exit1DR",
	StatePauseDR:        "PauseDR",
	StateExit2DR:        "Exit2DR",
	StateUpdateDR:       "UpdateDR",
	StateSelectIRScan:   "SelectIRScan",
	StateCaptureIR:      "CaptureIR",
	StateShiftIR:        "ShiftIR",
	StateExit1IR:        "Exit1IR",
	StatePauseIR:        "PauseIR",
	StateExit2IR:        "Exit2IR",
	StateUpdateIR:       "UpdateIR",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// InstructionColumn reports whether the state belongs to the IR side of the
// state diagram.
func (s State) InstructionColumn() bool {
	return s >= StateSelectIRScan
}

// transitions[s] holds the successor of s for TMS=0 and TMS=1.
var transitions = [16][2]State{
	StateTestLogicReset: {StateRunTestIdle, StateTestLogicReset},
	StateRunTestIdle:    {StateRunTestIdle, StateSelectDRScan},
	StateSelectDRScan:   {StateCaptureDR, StateSelectIRScan},
	StateCaptureDR:      {StateShiftDR, StateExit1DR},
	StateShiftDR:        {StateShiftDR, StateExit1DR},
	StateExit1DR:        {StatePauseDR, StateUpdateDR},
	StatePauseDR:        {StatePauseDR, StateExit2DR},
	StateExit2DR:        {StateShiftDR, StateUpdateDR},
	StateUpdateDR:       {StateRunTestIdle, StateSelectDRScan},
	StateSelectIRScan:   {StateCaptureIR, StateTestLogicReset},
	StateCaptureIR:      {StateShiftIR, StateExit1IR},
	StateShiftIR:        {StateShiftIR, StateExit1IR},
	StateExit1IR:        {StatePauseIR, StateUpdateIR},
	StatePauseIR:        {StatePauseIR, StateExit2IR},
	StateExit2IR:        {StateShiftIR, StateUpdateIR},
	StateUpdateIR:       {StateRunTestIdle, StateSelectDRScan},
}

// NextState returns the state reached from current after one TCK cycle with
// the given TMS level. It panics on an out-of-range state, which cannot
// happen through the exported API.
func NextState(current State, tms bool) State {
	if int(current) >= len(transitions) {
		panic(fmt.Sprintf("tap: invalid state %d", current))
	}
	if tms {
		return transitions[current][1]
	}
	return transitions[current][0]
}

// Machine mirrors the TAP controller state of a chain locally. It performs no
// I/O; it produces TMS patterns for an adapter to replay and tracks where the
// hardware will be after they are applied.
type Machine struct {
	state State
}

// NewMachine returns a machine in Test-Logic-Reset.
func NewMachine() *Machine {
	return &Machine{state: StateTestLogicReset}
}

// State reports the tracked controller state.
func (m *Machine) State() State {
	return m.state
}

// Clock advances the machine one TCK cycle and returns the new state.
func (m *Machine) Clock(tms bool) State {
	m.state = NextState(m.state, tms)
	return m.state
}

// Reset produces the IEEE-recommended five TMS=1 cycles that force any TAP
// into Test-Logic-Reset, advancing the machine accordingly.
func (m *Machine) Reset() []bool {
	tms := make([]bool, 5)
	for i := range tms {
		tms[i] = true
		m.Clock(true)
	}
	return tms
}

// PathTo computes the shortest TMS sequence from the current state to target
// and advances the machine along it. The returned slice is empty when the
// machine is already in target.
func (m *Machine) PathTo(target State) ([]bool, error) {
	if int(target) >= len(transitions) {
		return nil, fmt.Errorf("tap: invalid target state %d", target)
	}
	if m.state == target {
		return nil, nil
	}

	// BFS over the 16-state diagram.
	type visit struct {
		from State
		tms  bool
	}
	seen := make(map[State]visit, len(transitions))
	seen[m.state] = visit{from: m.state}
	queue := []State{m.state}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, tms := range []bool{false, true} {
			next := NextState(cur, tms)
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = visit{from: cur, tms: tms}
			if next == target {
				var rev []bool
				for s := target; s != m.state; s = seen[s].from {
					rev = append(rev, seen[s].tms)
				}
				tmsSeq := make([]bool, len(rev))
				for i := range rev {
					tmsSeq[i] = rev[len(rev)-1-i]
				}
				for _, bit := range tmsSeq {
					m.Clock(bit)
				}
				return tmsSeq, nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("tap: no path from %s to %s", m.state, target)
}
