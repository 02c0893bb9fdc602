package db

import (
	"context"
	"fmt"
	"sync"
)

type memTxKey struct{}

// Snapshotter is an in-memory store that can participate in a MemoryTx.
// Snapshot captures the current state and returns a func restoring it.
type Snapshotter interface {
	Snapshot() (restore func())
}

// MemoryTx is a Transactor for in-memory stores. Transactions are serialized
// by one coarse lock, which gives the same guarantees as row locks over a
// whole store. A failing fn restores every participant.
type MemoryTx struct {
	mu           sync.Mutex
	participants []Snapshotter
}

func NewMemoryTx(participants ...Snapshotter) *MemoryTx {
	return &MemoryTx{participants: participants}
}

// Join adds stores created after the transactor.
func (t *MemoryTx) Join(p ...Snapshotter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.participants = append(t.participants, p...)
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	restores := make([]func(), 0, len(t.participants))
	for _, p := range t.participants {
		restores = append(restores, p.Snapshot())
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		for _, restore := range restores {
			restore()
		}
	}()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		return err
	}
	committed = true
	return nil
}
