package professional

import (
	"strings"

	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/internal/platform/db"
)

// Unique constraints guarding the link invariants.
const (
	ConstraintPendingPerUser         = "uq_link_requests_pending_user"
	ConstraintPendingPerProfessional = "uq_link_requests_pending_professional"
	ConstraintUserLink               = "uq_professionals_user_link"
)

var constraintConflicts = []struct {
	match string
	code  string
	msg   string
}{
	{ConstraintPendingPerUser, apperr.CodePendingRequestExists, "you already have a pending link request"},
	{ConstraintPendingPerProfessional, apperr.CodePendingRequestExists, "this professional already has a pending link request"},
	{ConstraintUserLink, apperr.CodeAlreadyLinkedElsewhere, "user already linked to another professional"},
}

// classifyWriteError turns unique violations into specific conflicts and
// everything else into an internal error.
func classifyWriteError(err error, msg string) error {
	if constraint, ok := db.UniqueViolation(err); ok {
		for _, c := range constraintConflicts {
			if strings.EqualFold(constraint, c.match) {
				return apperr.Conflict(c.code, c.msg)
			}
		}
		return apperr.Conflict(apperr.CodeConcurrentLinkLostRace, "conflicting change, retry the request")
	}
	return apperr.Internal(msg, err)
}
