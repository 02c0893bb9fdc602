package journey

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository for tests and local runs. It
// participates in db.MemoryTx through Snapshot.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]Patient
	history  []HistoryRecord
	nextID   int64
	now      func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{patients: make(map[uuid.UUID]Patient), now: time.Now}
}

// AddPatient seeds a patient with the given status.
func (r *InMemoryRepository) AddPatient(id uuid.UUID, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[id] = Patient{ID: id, Status: status, UpdatedAt: r.now()}
}

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	patients := make(map[uuid.UUID]Patient, len(r.patients))
	for k, v := range r.patients {
		patients[k] = v
	}
	history := append([]HistoryRecord(nil), r.history...)
	nextID := r.nextID
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.patients = patients
		r.history = history
		r.nextID = nextID
		r.mu.Unlock()
	}
}

func (r *InMemoryRepository) Get(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

// Lock is a plain read; the surrounding MemoryTx already serializes writers.
func (r *InMemoryRepository) Lock(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.Get(ctx, id)
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return ErrPatientNotFound
	}
	p.Status = status
	p.UpdatedAt = r.now()
	r.patients[id] = p
	return nil
}

func (r *InMemoryRepository) AppendHistory(_ context.Context, h *HistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	h.ID = r.nextID
	h.ChangedAt = r.now()
	r.history = append(r.history, *h)
	return nil
}

func (r *InMemoryRepository) HasInitialHistory(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.history {
		if h.PatientID == id && h.StatusAnterior == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryRepository) ListHistory(_ context.Context, id uuid.UUID) ([]*HistoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var items []*HistoryRecord
	for i := range r.history {
		if r.history[i].PatientID == id {
			h := r.history[i]
			items = append(items, &h)
		}
	}
	return items, nil
}
