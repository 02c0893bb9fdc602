package journey

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("patient not found")

// Repository persists patients' journey status and history. Lock and the
// writes are only meaningful inside a transaction started by a Transactor.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Patient, error)
	Lock(ctx context.Context, id uuid.UUID) (*Patient, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	AppendHistory(ctx context.Context, h *HistoryRecord) error
	HasInitialHistory(ctx context.Context, id uuid.UUID) (bool, error)
	ListHistory(ctx context.Context, id uuid.UUID) ([]*HistoryRecord, error)
}
