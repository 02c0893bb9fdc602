package intake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a Repository that participates in db.MemoryTx.
type InMemoryRepository struct {
	mu         sync.RWMutex
	interviews map[uuid.UUID]Interview
	decisions  []VagaDecision
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{interviews: make(map[uuid.UUID]Interview)}
}

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	interviews := make(map[uuid.UUID]Interview, len(r.interviews))
	for k, v := range r.interviews {
		interviews[k] = v
	}
	decisions := append([]VagaDecision(nil), r.decisions...)
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.interviews = interviews
		r.decisions = decisions
		r.mu.Unlock()
	}
}

func (r *InMemoryRepository) CreateInterview(_ context.Context, iv *Interview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv.ID = uuid.New()
	iv.CreatedAt = time.Now()
	iv.UpdatedAt = iv.CreatedAt
	r.interviews[iv.ID] = *iv
	return nil
}

func (r *InMemoryRepository) GetInterview(_ context.Context, id uuid.UUID) (*Interview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	iv, ok := r.interviews[id]
	if !ok {
		return nil, ErrInterviewNotFound
	}
	return &iv, nil
}

func (r *InMemoryRepository) UpdateInterview(_ context.Context, iv *Interview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.interviews[iv.ID]; !ok {
		return ErrInterviewNotFound
	}
	iv.UpdatedAt = time.Now()
	r.interviews[iv.ID] = *iv
	return nil
}

func (r *InMemoryRepository) CreateDecision(_ context.Context, d *VagaDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	r.decisions = append(r.decisions, *d)
	return nil
}

// Decisions returns the recorded decisions for a patient.
func (r *InMemoryRepository) Decisions(patientID uuid.UUID) []VagaDecision {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []VagaDecision
	for _, d := range r.decisions {
		if d.PatientID == patientID {
			out = append(out, d)
		}
	}
	return out
}
