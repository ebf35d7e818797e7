package stategraph

import (
	"errors"
	"iter"
)

// Stream executes the graph like Invoke but yields an event after each node
// completes. ModeValues events carry the full accumulated state; ModeUpdates
// events carry only the delta the node returned.
//
// The sequence is pull-based: execution advances only as the consumer
// iterates, and breaking out of the loop stops the run after the node in
// flight finishes. During a fan-out barrier, one event per branch is yielded
// in registration order once the barrier joins.
//
// Errors terminate the sequence with a final (zero event, err) pair. An
// interrupted run ends the sequence cleanly; use GetState to inspect where
// the thread paused.
func (cg *CompiledGraph[S]) Stream(ctx Context, state S, mode StreamMode, opts ...RunOption) iter.Seq2[Event[S], error] {
	return func(yield func(Event[S], error) bool) {
		stopped := false

		emit := func(node string, delta S, hasDelta bool, full S) bool {
			ev := Event[S]{Node: node}
			switch mode {
			case ModeUpdates:
				ev.State = delta
			default:
				ev.State = full
			}
			if !yield(ev, nil) {
				stopped = true
				return false
			}
			return true
		}

		_, err := cg.invoke(ctx, state, opts, emit)
		if err != nil && !stopped && !errors.Is(err, errStreamStopped) {
			var zero Event[S]
			yield(zero, err)
		}
	}
}
