package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop.
// In this codebase, those are calls on the spin engine and replies to requesters.
type Command interface {
	commandMarker()
	String() string
}

// CmdSpin asks the engine to spin, optionally forcing a winner.
type CmdSpin struct {
	Winner string
	Origin string
	Reply  chan<- SpinReply
}

func (CmdSpin) commandMarker() {}
func (c CmdSpin) String() string {
	return fmt.Sprintf("CmdSpin(winner=%q, origin=%s)", c.Winner, c.Origin)
}

// CmdActivate marks the wheel visible.
type CmdActivate struct{}

func (CmdActivate) commandMarker() {}
func (CmdActivate) String() string { return "CmdActivate()" }

// CmdDeactivate hides the wheel and cancels any spin in flight.
type CmdDeactivate struct{}

func (CmdDeactivate) commandMarker() {}
func (CmdDeactivate) String() string { return "CmdDeactivate()" }

// CmdReplySpin delivers the outcome of a spin request to its requester.
type CmdReplySpin struct {
	Reply chan<- SpinReply
	Value SpinReply
}

func (CmdReplySpin) commandMarker() {}
func (c CmdReplySpin) String() string {
	return fmt.Sprintf("CmdReplySpin(started=%v)", c.Value.Started)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
