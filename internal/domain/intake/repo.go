package intake

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrInterviewNotFound = errors.New("interview not found")

type Repository interface {
	CreateInterview(ctx context.Context, iv *Interview) error
	GetInterview(ctx context.Context, id uuid.UUID) (*Interview, error)
	UpdateInterview(ctx context.Context, iv *Interview) error
	CreateDecision(ctx context.Context, d *VagaDecision) error
}
