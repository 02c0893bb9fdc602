package db

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type counterStore struct {
	mu sync.Mutex
	n  int
}

func (s *counterStore) Snapshot() func() {
	s.mu.Lock()
	saved := s.n
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.n = saved
		s.mu.Unlock()
	}
}

func (s *counterStore) inc() {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *counterStore) get() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func TestMemoryTx_CommitKeepsChanges(t *testing.T) {
	store := &counterStore{}
	tx := NewMemoryTx(store)

	err := tx.RunInTx(context.Background(), func(ctx context.Context) error {
		store.inc()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.get() != 1 {
		t.Errorf("expected 1, got %d", store.get())
	}
}

func TestMemoryTx_ErrorRestores(t *testing.T) {
	store := &counterStore{n: 5}
	tx := NewMemoryTx(store)
	boom := errors.New("boom")

	err := tx.RunInTx(context.Background(), func(ctx context.Context) error {
		store.inc()
		store.inc()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if store.get() != 5 {
		t.Errorf("expected rollback to 5, got %d", store.get())
	}
}

func TestMemoryTx_NestedJoinsOuter(t *testing.T) {
	store := &counterStore{}
	tx := NewMemoryTx(store)

	err := tx.RunInTx(context.Background(), func(ctx context.Context) error {
		store.inc()
		// Would deadlock if the inner call tried to take the lock again.
		if err := tx.RunInTx(ctx, func(ctx context.Context) error {
			store.inc()
			return nil
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if store.get() != 0 {
		t.Errorf("expected the outer rollback to undo both increments, got %d", store.get())
	}
}

func TestMemoryTx_PanicRestores(t *testing.T) {
	store := &counterStore{}
	tx := NewMemoryTx(store)

	func() {
		defer func() { recover() }()
		tx.RunInTx(context.Background(), func(ctx context.Context) error {
			store.inc()
			panic("boom")
		})
	}()
	if store.get() != 0 {
		t.Errorf("expected rollback after panic, got %d", store.get())
	}
}

func TestMemoryTx_CancelledContext(t *testing.T) {
	tx := NewMemoryTx()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Errorf("expected abort without calling fn, err=%v called=%v", err, called)
	}
}
