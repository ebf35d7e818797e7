package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/ridgewell/stategraph/pkg/stategraph"
	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
)

// BenchmarkInvoke_WithCheckpointing measures per-node checkpoint overhead
// against the in-memory store.
func BenchmarkInvoke_WithCheckpointing(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	compiled, err := buildLinearGraph(10).Compile(stategraph.WithCheckpointer(store))
	if err != nil {
		b.Fatal(err)
	}
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{},
			stategraph.WithThreadID(fmt.Sprintf("bench-%d", i)))
	}
}

// BenchmarkMemoryStore_Put measures raw store write throughput.
func BenchmarkMemoryStore_Put(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()
	state := []byte(`{"value":42}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cp := checkpoint.New("bench", i+1, state, "work")
		if err := store.Put(ctx, cp); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMemoryStore_GetLatest measures latest-checkpoint lookup in a
// thread with deep history.
func BenchmarkMemoryStore_GetLatest(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()
	state := []byte(`{"value":42}`)
	for i := 0; i < 1000; i++ {
		if err := store.Put(ctx, checkpoint.New("bench", i+1, state, "work")); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Get(ctx, "bench", ""); err != nil {
			b.Fatal(err)
		}
	}
}
