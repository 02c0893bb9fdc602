package access

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps the singleton row in memory. Used by the server
// wiring tests and local runs without a database.
type InMemoryRepository struct {
	mu  sync.Mutex
	rec *Record
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Get(_ context.Context) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return nil, ErrNotSeeded
	}
	rec := *r.rec
	return &rec, nil
}

func (r *InMemoryRepository) EnsureSingleton(_ context.Context, d Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		r.rec = toRecord(d, nil, nil)
	}
	return nil
}

func (r *InMemoryRepository) Save(_ context.Context, p Patch, actorID int64) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	base := Defaults()
	if r.rec != nil {
		base = r.rec.Normalize()
	}
	now := time.Now()
	r.rec = toRecord(p.Apply(base), &now, &actorID)
	rec := *r.rec
	return &rec, nil
}

func toRecord(s Settings, at *time.Time, by *int64) *Record {
	mode, policy := string(s.RegistrationMode), string(s.LinkPolicy)
	create, block, public := s.AllowCreateUserFromProfessional, s.BlockDuplicateEmail, s.AllowPublicRegistration
	return &Record{
		RegistrationMode:                &mode,
		LinkPolicy:                      &policy,
		AllowCreateUserFromProfessional: &create,
		BlockDuplicateEmail:             &block,
		AllowPublicRegistration:         &public,
		UpdatedAt:                       at,
		UpdatedBy:                       by,
	}
}
