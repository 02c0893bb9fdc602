package professional

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrLinkRequestNotFound  = errors.New("link request not found")
)

// Repository is the storage behind the linking workflows. Lock* methods take
// row locks and must run inside a transaction; callers lock in the order
// request, professional, user.
type Repository interface {
	LockProfessional(ctx context.Context, id uuid.UUID) (*Professional, error)
	LockUser(ctx context.Context, id int64) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	// LinkedProfessional returns the professional linked to userID, or
	// uuid.Nil when there is none.
	LinkedProfessional(ctx context.Context, userID int64) (uuid.UUID, error)
	// SetLink links the professional to userID only while it is unlinked and
	// reports whether exactly one row changed.
	SetLink(ctx context.Context, professionalID uuid.UUID, userID int64) (bool, error)
	ClearLink(ctx context.Context, professionalID uuid.UUID) error
	FindUnlinkedByEmail(ctx context.Context, email string) ([]*Professional, error)

	CreateLinkRequest(ctx context.Context, lr *LinkRequest) error
	LockLinkRequest(ctx context.Context, id uuid.UUID) (*LinkRequest, error)
	DecideLinkRequest(ctx context.Context, lr *LinkRequest) error
	ListLinkRequests(ctx context.Context, f ListFilter) ([]*LinkRequest, int, error)
}
