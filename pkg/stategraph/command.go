package stategraph

// Outcome is the result of one node execution: either a state delta that
// continues along the node's declared edges, or a command that overrides
// ordinary edge resolution. Construct outcomes with Continue, Goto,
// GotoWith, Stop, Apply, Send, or Interrupt.
//
// The zero Outcome is a continuation with the zero state delta.
type Outcome[S any] struct {
	delta    S
	hasDelta bool
	cmd      *command[S]
}

type commandKind int

const (
	cmdGoto commandKind = iota + 1
	cmdStop
	cmdApply
	cmdSend
	cmdInterrupt
)

// command is the internal representation of a control-flow override.
type command[S any] struct {
	kind     commandKind
	target   string
	targets  []string
	delta    S
	hasDelta bool
	payload  any
}

// Continue returns an ordinary outcome: state is merged into the current
// state via the graph's reducer, then the node's declared edges decide the
// next node.
func Continue[S any](state S) Outcome[S] {
	return Outcome[S]{delta: state, hasDelta: true}
}

// Goto jumps directly to the named target, bypassing any declared edges and
// routers. The target must be a registered node or END.
func Goto[S any](target string) Outcome[S] {
	return Outcome[S]{cmd: &command[S]{kind: cmdGoto, target: target}}
}

// GotoWith applies a state delta through the reducer, then jumps to the
// named target exactly as Goto does.
func GotoWith[S any](target string, update S) Outcome[S] {
	return Outcome[S]{cmd: &command[S]{kind: cmdGoto, target: target, delta: update, hasDelta: true}}
}

// Stop terminates execution unconditionally, regardless of declared edges.
func Stop[S any]() Outcome[S] {
	return Outcome[S]{cmd: &command[S]{kind: cmdStop}}
}

// Apply merges a state delta through the reducer, then falls through to
// ordinary edge resolution. It differs from Continue only in intent: use it
// when the node wants to make the override explicit.
func Apply[S any](update S) Outcome[S] {
	return Outcome[S]{cmd: &command[S]{kind: cmdApply, delta: update, hasDelta: true}}
}

// Send dispatches every named target concurrently as a join barrier. The
// owning invocation suspends until all targets finish, then merges the
// update each returned into the current state, in the order the targets are
// listed here, regardless of completion order. After the merge, ordinary
// edge resolution of the dispatching node decides the next node.
func Send[S any](targets ...string) Outcome[S] {
	return Outcome[S]{cmd: &command[S]{kind: cmdSend, targets: targets}}
}

// Interrupt pauses execution mid-node with an arbitrary payload,
// independent of any structural interrupt declaration. The engine
// checkpoints the state as it was before this node ran and returns an
// Interrupted result carrying the payload. On resume the interrupting node
// executes again from the top, so interrupting nodes must be safe to re-run.
func Interrupt[S any](payload any) Outcome[S] {
	return Outcome[S]{cmd: &command[S]{kind: cmdInterrupt, payload: payload}}
}

// IsCommand reports whether the outcome carries a control-flow command
// rather than an ordinary state continuation.
func (o Outcome[S]) IsCommand() bool {
	return o.cmd != nil
}
