package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryGate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("check before voting", func(t *testing.T) {
		t.Parallel()
		g := NewMemoryGate()
		voted, err := g.CheckVoted(ctx, 101)
		if err != nil {
			t.Fatalf("CheckVoted: unexpected error: %v", err)
		}
		if voted {
			t.Fatal("CheckVoted: expected false for a fresh voter")
		}
	})

	t.Run("cast then check", func(t *testing.T) {
		t.Parallel()
		g := NewMemoryGate()
		receipt, err := g.CastVote(ctx, 101)
		if err != nil {
			t.Fatalf("CastVote: unexpected error: %v", err)
		}
		if receipt.TxHash == "" {
			t.Fatal("CastVote: expected a synthetic tx hash")
		}

		voted, err := g.CheckVoted(ctx, 101)
		if err != nil {
			t.Fatalf("CheckVoted: unexpected error: %v", err)
		}
		if !voted {
			t.Fatal("CheckVoted: expected true after casting")
		}
	})

	t.Run("double cast is rejected atomically", func(t *testing.T) {
		t.Parallel()
		g := NewMemoryGate()
		if _, err := g.CastVote(ctx, 101); err != nil {
			t.Fatalf("CastVote first: unexpected error: %v", err)
		}
		_, err := g.CastVote(ctx, 101)
		if !errors.Is(err, ErrAlreadyVoted) {
			t.Fatalf("CastVote second: expected ErrAlreadyVoted, got %v", err)
		}
		if g.Casts() != 1 {
			t.Fatalf("Casts: expected 1, got %d", g.Casts())
		}
	})

	t.Run("concurrent casts admit exactly one", func(t *testing.T) {
		t.Parallel()

		const goroutines = 50
		g := NewMemoryGate()

		var wg sync.WaitGroup
		wg.Add(goroutines)
		for i := 0; i < goroutines; i++ {
			go func() {
				defer wg.Done()
				_, _ = g.CastVote(ctx, 777)
			}()
		}
		wg.Wait()

		if g.Casts() != 1 {
			t.Fatalf("Casts: expected exactly 1, got %d", g.Casts())
		}
	})

	t.Run("ping always succeeds", func(t *testing.T) {
		t.Parallel()
		if err := NewMemoryGate().Ping(ctx); err != nil {
			t.Fatalf("Ping: unexpected error: %v", err)
		}
	})
}
