package benchmarks

import (
	"context"
	"testing"

	"github.com/ridgewell/stategraph/pkg/stategraph"
)

// BenchmarkInvoke_Linear_5 runs a 5-node linear graph.
func BenchmarkInvoke_Linear_5(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(5))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkInvoke_Linear_50 runs a 50-node linear graph.
func BenchmarkInvoke_Linear_50(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(50))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkInvoke_Loop_10 runs a looping graph (10 iterations).
func BenchmarkInvoke_Loop_10(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(10))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkInvoke_FanOut measures a three-way Send barrier per invocation.
func BenchmarkInvoke_FanOut(b *testing.B) {
	g := stategraph.NewGraph[State]().
		AddNode("dispatch", func(ctx stategraph.Context, s State) (stategraph.Outcome[State], error) {
			return stategraph.Send[State]("a", "b", "c"), nil
		}).
		AddNode("a", noopNode).
		AddNode("b", noopNode).
		AddNode("c", noopNode).
		AddEdge(stategraph.START, "dispatch").
		AddEdge("dispatch", stategraph.END)
	compiled := mustCompile(g)
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkStream_Linear_10 measures streaming overhead against Invoke.
func BenchmarkStream_Linear_10(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(10))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, err := range compiled.Stream(ctx, State{}, stategraph.ModeValues) {
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}
