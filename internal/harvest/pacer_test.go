package harvest

import (
	"context"
	"testing"
	"time"
)

func TestPacerEnforcesMinimumInterval(t *testing.T) {
	p := NewPacer(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	elapsed := time.Since(start)

	// First call is immediate, the next two each wait the interval.
	if elapsed < 60*time.Millisecond {
		t.Errorf("3 calls finished in %v, expected at least 60ms", elapsed)
	}
}

func TestPacerDisabledWithoutInterval(t *testing.T) {
	p := NewPacer(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("disabled pacer should not block, took %v", elapsed)
	}
}

func TestPacerRespectsCancellation(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	// Drain the initial token so the next wait would block for an hour.
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}
	cancel()
	if err := p.Wait(ctx); err == nil {
		t.Error("Wait should fail once the context is cancelled")
	}
}
