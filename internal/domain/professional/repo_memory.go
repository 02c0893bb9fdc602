package professional

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/acolhida/acolhida/internal/platform/db"
)

// InMemoryRepository is a Repository that participates in db.MemoryTx. It
// enforces the same unique constraints as the schema and reports violations
// as *pgconn.PgError.
type InMemoryRepository struct {
	mu            sync.RWMutex
	professionals map[uuid.UUID]Professional
	users         map[int64]User
	requests      map[uuid.UUID]LinkRequest
	now           func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		professionals: make(map[uuid.UUID]Professional),
		users:         make(map[int64]User),
		requests:      make(map[uuid.UUID]LinkRequest),
		now:           time.Now,
	}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: db.SQLStateUniqueViolation, ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func (r *InMemoryRepository) AddProfessional(p Professional) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Status == "" {
		p.Status = ProfessionalAtivo
	}
	r.professionals[p.ID] = p
}

func (r *InMemoryRepository) AddUser(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

// AddLinkRequest stores lr as-is, bypassing the pending constraints.
func (r *InMemoryRepository) AddLinkRequest(lr LinkRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lr.ID == uuid.Nil {
		lr.ID = uuid.New()
	}
	if lr.CreatedAt.IsZero() {
		lr.CreatedAt = r.now()
		lr.UpdatedAt = lr.CreatedAt
	}
	r.requests[lr.ID] = lr
}

func (r *InMemoryRepository) Professional(id uuid.UUID) (Professional, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.professionals[id]
	return p, ok
}

func (r *InMemoryRepository) Snapshot() func() {
	r.mu.RLock()
	professionals := make(map[uuid.UUID]Professional, len(r.professionals))
	for k, v := range r.professionals {
		professionals[k] = v
	}
	users := make(map[int64]User, len(r.users))
	for k, v := range r.users {
		users[k] = v
	}
	requests := make(map[uuid.UUID]LinkRequest, len(r.requests))
	for k, v := range r.requests {
		requests[k] = v
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		r.professionals = professionals
		r.users = users
		r.requests = requests
		r.mu.Unlock()
	}
}

func (r *InMemoryRepository) LockProfessional(_ context.Context, id uuid.UUID) (*Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.professionals[id]
	if !ok {
		return nil, ErrProfessionalNotFound
	}
	return &p, nil
}

func (r *InMemoryRepository) LockUser(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *InMemoryRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	return r.LockUser(ctx, id)
}

func (r *InMemoryRepository) LinkedProfessional(_ context.Context, userID int64) (uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, p := range r.professionals {
		if p.UserID != nil && *p.UserID == userID {
			return id, nil
		}
	}
	return uuid.Nil, nil
}

func (r *InMemoryRepository) SetLink(_ context.Context, professionalID uuid.UUID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.professionals[professionalID]
	if !ok || p.UserID != nil {
		return false, nil
	}
	for id, other := range r.professionals {
		if id != professionalID && other.UserID != nil && *other.UserID == userID {
			return false, uniqueViolation(ConstraintUserLink)
		}
	}
	p.UserID = &userID
	p.UpdatedAt = r.now()
	r.professionals[professionalID] = p
	return true, nil
}

func (r *InMemoryRepository) ClearLink(_ context.Context, professionalID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.professionals[professionalID]
	if !ok {
		return nil
	}
	p.UserID = nil
	p.UpdatedAt = r.now()
	r.professionals[professionalID] = p
	return nil
}

func (r *InMemoryRepository) FindUnlinkedByEmail(_ context.Context, email string) ([]*Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var items []*Professional
	for _, p := range r.professionals {
		if p.Email == nil || !strings.EqualFold(*p.Email, email) {
			continue
		}
		if p.Status != ProfessionalAtivo || p.UserID != nil {
			continue
		}
		cp := p
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID.String() < items[j].ID.String() })
	return items, nil
}

func (r *InMemoryRepository) CreateLinkRequest(_ context.Context, lr *LinkRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lr.Status == RequestPending {
		for _, other := range r.requests {
			if other.Status != RequestPending {
				continue
			}
			if other.UserID == lr.UserID {
				return uniqueViolation(ConstraintPendingPerUser)
			}
			if other.ProfessionalID == lr.ProfessionalID {
				return uniqueViolation(ConstraintPendingPerProfessional)
			}
		}
	}
	lr.ID = uuid.New()
	lr.CreatedAt = r.now()
	lr.UpdatedAt = lr.CreatedAt
	r.requests[lr.ID] = *lr
	return nil
}

func (r *InMemoryRepository) LockLinkRequest(_ context.Context, id uuid.UUID) (*LinkRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lr, ok := r.requests[id]
	if !ok {
		return nil, ErrLinkRequestNotFound
	}
	return &lr, nil
}

func (r *InMemoryRepository) DecideLinkRequest(_ context.Context, lr *LinkRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[lr.ID]
	if !ok || stored.Status != RequestPending {
		return ErrLinkRequestNotFound
	}
	now := r.now()
	stored.Status = lr.Status
	if lr.Notes != nil {
		stored.Notes = lr.Notes
	}
	stored.DecidedAt = &now
	stored.DecidedByUserID = lr.DecidedByUserID
	stored.UpdatedAt = now
	r.requests[lr.ID] = stored
	*lr = stored
	return nil
}

func (r *InMemoryRepository) ListLinkRequests(_ context.Context, f ListFilter) ([]*LinkRequest, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*LinkRequest
	for _, lr := range r.requests {
		if f.Status != "" && lr.Status != f.Status {
			continue
		}
		cp := lr
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	if f.Offset >= total {
		return []*LinkRequest{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], total, nil
}
