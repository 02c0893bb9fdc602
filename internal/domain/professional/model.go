package professional

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProfessionalAtivo   = "ATIVO"
	ProfessionalInativo = "INATIVO"
)

// Professional is a staff record. UserID is the linked login account.
type Professional struct {
	ID        uuid.UUID `json:"id"`
	Nome      string    `json:"nome"`
	Email     *string   `json:"email,omitempty"`
	Status    string    `json:"status"`
	UserID    *int64    `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is the slice of the login account the linking workflows need.
type User struct {
	ID     int64   `json:"id"`
	Email  *string `json:"email,omitempty"`
	Role   string  `json:"role"`
	Status string  `json:"status"`
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// ParseRequestStatus accepts the three request states in any case.
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	s := RequestStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return s, true
	}
	return s, false
}

// LinkRequest is a user's claim on a professional record, decided by an
// admin. Decided requests are never modified again.
type LinkRequest struct {
	ID              uuid.UUID     `json:"id"`
	UserID          int64         `json:"user_id"`
	ProfessionalID  uuid.UUID     `json:"professional_id"`
	Status          RequestStatus `json:"status"`
	Notes           *string       `json:"notes"`
	DecidedAt       *time.Time    `json:"decided_at"`
	DecidedByUserID *int64        `json:"decided_by_user_id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ListFilter narrows ListLinkRequests. An empty Status lists every request.
type ListFilter struct {
	Status RequestStatus
	Limit  int
	Offset int
}

// LinkResult is the link state of a professional after a link operation.
type LinkResult struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	UserID         *int64    `json:"user_id"`
	Changed        bool      `json:"changed"`
}

func notesPtr(notes string) *string {
	n := strings.TrimSpace(notes)
	if n == "" {
		return nil
	}
	return &n
}
